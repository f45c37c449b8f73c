package files

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/redactyl/alertlens/internal/audit"
	"github.com/redactyl/alertlens/internal/cache"
)

// AppendIgnore ensures the given pattern is present in .gitignore at root.
// It creates the file if missing. Idempotent.
func AppendIgnore(root, pattern string) error {
	path := filepath.Join(root, ".gitignore")
	existing := map[string]bool{}
	endsWithNewline := true
	if b, err := os.ReadFile(path); err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(b)))
		for sc.Scan() {
			existing[strings.TrimSpace(sc.Text())] = true
		}
		endsWithNewline = len(b) == 0 || b[len(b)-1] == '\n'
	}
	if existing[pattern] {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	line := pattern + "\n"
	if !endsWithNewline {
		line = "\n" + line
	}
	_, err = f.WriteString(line)
	return err
}

// StateFiles are the files alertlens writes under an analysed root.
func StateFiles() []string {
	return []string{
		cache.FileName,
		cache.ResultsFileName,
		audit.FileName,
	}
}

// IgnoreStateFiles adds every state file to root's .gitignore.
func IgnoreStateFiles(root string) error {
	for _, p := range StateFiles() {
		if err := AppendIgnore(root, p); err != nil {
			return err
		}
	}
	return nil
}
