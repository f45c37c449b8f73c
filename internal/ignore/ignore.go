// Package ignore reads .alertlensignore files. Patterns follow a small
// gitignore subset: one glob per line, '#' comments, a trailing '/' to match
// a directory and everything below it, and a leading '!' to re-include.
package ignore

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file looked up at the batch root.
const FileName = ".alertlensignore"

type rule struct {
	pattern string
	dirOnly bool
	negate  bool
}

// Matcher reports whether slash-separated relative paths are ignored. The
// zero value matches nothing.
type Matcher struct {
	rules []rule
}

// Load reads the ignore file at p. A missing file yields an empty Matcher
// and no error.
func Load(p string) (Matcher, error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Matcher{}, nil
		}
		return Matcher{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads ignore patterns from r.
func Parse(r io.Reader) (Matcher, error) {
	var m Matcher
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var ru rule
		if strings.HasPrefix(line, "!") {
			ru.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			ru.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		ru.pattern = strings.TrimPrefix(line, "/")
		if ru.pattern != "" {
			m.rules = append(m.rules, ru)
		}
	}
	return m, sc.Err()
}

// Match reports whether p is ignored. The last matching rule wins.
func (m Matcher) Match(p string) bool {
	p = strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "./")
	ignored := false
	for _, r := range m.rules {
		if r.matches(p) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r rule) matches(p string) bool {
	segs := strings.Split(p, "/")
	if r.dirOnly {
		// any ancestor directory, or p itself when it names a directory
		for i := 1; i <= len(segs); i++ {
			if r.glob(strings.Join(segs[:i], "/")) {
				return true
			}
		}
		return false
	}
	return r.glob(p)
}

func (r rule) glob(p string) bool {
	if ok, _ := doublestar.Match(r.pattern, p); ok {
		return true
	}
	if !strings.Contains(r.pattern, "/") {
		ok, _ := doublestar.Match(r.pattern, path.Base(p))
		return ok
	}
	return false
}
