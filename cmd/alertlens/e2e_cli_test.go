package alertlens

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/redactyl/alertlens/internal/audit"
	"github.com/redactyl/alertlens/internal/cache"
)

func goRun(t *testing.T, args ...string) ([]byte, int) {
	t.Helper()
	if testing.Short() {
		t.Skip("subprocess test")
	}
	// run as subprocess to avoid os.Exit in-process
	cmd := exec.Command("go", append([]string{"run", "."}, args...)...)
	cmd.Dir = filepath.Clean(filepath.Join("..", ".."))
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir())
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return out.Bytes(), exit.ExitCode()
	}
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return out.Bytes(), 0
}

func TestCLI_Batch_JSON_HistoryAndCache(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root)

	out, code := goRun(t, "batch", "--json", "--fail-on", "none", root)
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	var arr []map[string]any
	if err := json.Unmarshal(out, &arr); err != nil {
		t.Fatalf("json unmarshal: %v\n%s", err, out)
	}
	if len(arr) != 1 || arr[0]["alert_id"] != "200025_001373" {
		t.Fatalf("unexpected findings: %s", out)
	}
	for _, name := range []string{cache.FileName, cache.ResultsFileName, audit.FileName} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestCLI_Batch_FailOnAndBaseline(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root)

	if _, code := goRun(t, "batch", "--json", "--fail-on", "low", root); code != 1 {
		t.Fatalf("expected exit 1 with fail-on low, got %d", code)
	}
	if _, code := goRun(t, "batch", "--write-baseline", root); code != 0 {
		t.Fatalf("write baseline exit %d", code)
	}
	out, code := goRun(t, "batch", "--json", "--fail-on", "low", root)
	if code != 0 {
		t.Fatalf("baselined run should pass, got %d", code)
	}
	if string(bytes.TrimSpace(out)) != "[]" {
		t.Fatalf("expected no new findings, got %s", out)
	}
}

func TestCLI_Analyze_SARIF(t *testing.T) {
	dir := writeBundle(t, t.TempDir())
	out, _ := goRun(t, "analyze", "--sarif", "--fail-on", "none", dir)
	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("sarif unmarshal: %v\n%s", err, out)
	}
	if doc["version"] != "2.1.0" {
		t.Fatalf("unexpected SARIF version: %v", doc["version"])
	}
}

func TestCLI_MissingDir_ExitsTwo(t *testing.T) {
	_, code := goRun(t, "analyze", filepath.Join(t.TempDir(), "missing"))
	if code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}
