package harness

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

// BinEnv names a prebuilt runplan binary to test instead of building one.
const BinEnv = "RUNPLAN_TEST_BIN"

var (
	rootOnce sync.Once
	root     string
	rootErr  error

	binOnce sync.Once
	binPath string
	binErr  error
)

// RepoRoot returns the directory holding the module's go.mod.
func RepoRoot(t *testing.T) string {
	t.Helper()
	rootOnce.Do(func() {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			rootErr = errors.New("runtime.Caller failed")
			return
		}
		root, rootErr = findModuleRoot(filepath.Dir(file))
	})
	if rootErr != nil {
		t.Fatalf("resolve repo root: %v", rootErr)
	}
	return root
}

func findModuleRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no go.mod above harness")
		}
		dir = parent
	}
}

// BuildBinary returns the runplan CLI under test, compiling it once per run
// unless BinEnv points at an existing binary.
func BuildBinary(t *testing.T) string {
	t.Helper()
	if p := os.Getenv(BinEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s: %v", BinEnv, err)
		}
		return p
	}
	dir := RepoRoot(t)

	binOnce.Do(func() {
		tmp, err := os.MkdirTemp("", "runplan-bin-")
		if err != nil {
			binErr = fmt.Errorf("create temp dir: %w", err)
			return
		}
		out := filepath.Join(tmp, "runplan")
		cmd := exec.Command("go", "build", "-o", out, "./cmd/runplan")
		cmd.Dir = dir
		if output, err := cmd.CombinedOutput(); err != nil {
			binErr = fmt.Errorf("go build: %w\n%s", err, output)
			return
		}
		binPath = out
	})
	if binErr != nil {
		t.Fatalf("build runplan binary: %v", binErr)
	}
	return binPath
}
