package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"

	"github.com/redactyl/alertlens/internal/artifacts"
	"github.com/redactyl/alertlens/internal/ignore"
)

var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"th-context":   true,
}

// DiscoverConfig controls which alert directories Discover returns.
type DiscoverConfig struct {
	Root string
	// Comma-separated doublestar globs matched against the directory path
	// relative to Root and against its base name.
	IncludeGlobs    string
	ExcludeGlobs    string
	DefaultExcludes bool
}

// Discover returns the directories under cfg.Root that contain at least one
// artifact file, sorted. Root itself counts. Paths listed in Root's
// .alertlensignore are skipped.
func Discover(cfg DiscoverConfig) ([]string, error) {
	fi, err := os.Stat(cfg.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("discover %s: %w", cfg.Root, artifacts.ErrNotFound)
		}
		return nil, fmt.Errorf("discover %s: %w", cfg.Root, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("discover %s: not a directory: %w", cfg.Root, artifacts.ErrNotFound)
	}
	ign, err := ignore.Load(filepath.Join(cfg.Root, ignore.FileName))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ignore.FileName, err)
	}

	seen := map[string]bool{}
	var dirs []string
	err = filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(cfg.Root, p)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if p == cfg.Root {
				return nil
			}
			if cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			if ign.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := artifacts.KindOf(d.Name()); !ok {
			return nil
		}
		dir := filepath.Dir(p)
		if seen[dir] {
			return nil
		}
		seen[dir] = true
		relDir, _ := filepath.Rel(cfg.Root, dir)
		if !allowedByGlobs(filepath.ToSlash(relDir), cfg) {
			return nil
		}
		dirs = append(dirs, dir)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name] || strings.HasPrefix(name, ".git")
}

func allowedByGlobs(relPath string, cfg DiscoverConfig) bool {
	rp := strings.ReplaceAll(relPath, "\\", "/")
	includes := parseGlobsList(cfg.IncludeGlobs)
	excludes := parseGlobsList(cfg.ExcludeGlobs)
	if len(includes) > 0 && !matchAnyGlob(rp, includes) {
		return false
	}
	if len(excludes) > 0 && matchAnyGlob(rp, excludes) {
		return false
	}
	return true
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p, trimGlobPrefix(p))
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}
