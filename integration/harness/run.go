package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// Result captures one CLI invocation.
type Result struct {
	Args   []string
	Stdout string
	Stderr string
	Code   int
}

func (r Result) String() string {
	return fmt.Sprintf("runplan %s: exit %d\nstdout:\n%s\nstderr:\n%s", strings.Join(r.Args, " "), r.Code, r.Stdout, r.Stderr)
}

// Run executes the CLI in workDir. A non-zero exit is reported in Code, not
// as a test failure.
func Run(t *testing.T, binPath, workDir string, args ...string) Result {
	t.Helper()
	return run(t, binPath, workDir, nil, args)
}

// RunWithEnv is Run with environment overrides, e.g. RUNPLAN_* tunables.
func RunWithEnv(t *testing.T, binPath, workDir string, env map[string]string, args ...string) Result {
	t.Helper()
	return run(t, binPath, workDir, env, args)
}

// MustRun fails the test unless the command exits zero.
func MustRun(t *testing.T, binPath, workDir string, args ...string) Result {
	t.Helper()
	res := run(t, binPath, workDir, nil, args)
	if res.Code != 0 {
		t.Fatalf("%s", res)
	}
	return res
}

func run(t *testing.T, binPath, workDir string, env map[string]string, args []string) Result {
	t.Helper()

	cmd := exec.Command(binPath, args...)
	cmd.Dir = workDir
	if len(env) > 0 {
		cmd.Env = withEnv(os.Environ(), env)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := Result{Args: args}
	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			t.Fatalf("run %s: %v", binPath, err)
		}
		res.Code = ee.ExitCode()
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res
}

// withEnv replaces or appends the overridden keys, keeping base order.
func withEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, entry := range base {
		key, _, _ := strings.Cut(entry, "=")
		if v, ok := overrides[key]; ok {
			out = append(out, key+"="+v)
			seen[key] = true
			continue
		}
		out = append(out, entry)
	}
	for k, v := range overrides {
		if !seen[k] {
			out = append(out, k+"="+v)
		}
	}
	return out
}
