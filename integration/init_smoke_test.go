package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"runplan/integration/harness"
)

func TestInitSmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspaceRoot := filepath.Join(t.TempDir(), "workspace-init")

	harness.MustRun(t, binPath, runDir, "init", "--workspace", workspaceRoot, "--goal", "10k", "--experience", "beginner")

	paths := []string{
		filepath.Join(workspaceRoot, "data"),
		filepath.Join(workspaceRoot, "artifacts", "state"),
		filepath.Join(workspaceRoot, "artifacts", "plans"),
		filepath.Join(workspaceRoot, "audit"),
		filepath.Join(workspaceRoot, "profile.yml"),
		filepath.Join(workspaceRoot, "config.yml"),
		filepath.Join(workspaceRoot, "rules.yml"),
		filepath.Join(workspaceRoot, "data", "feed.json"),
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing init path %s: %v", path, err)
		}
	}
	profileData, err := os.ReadFile(filepath.Join(workspaceRoot, "profile.yml"))
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if !strings.Contains(string(profileData), "goal: 10k") {
		t.Fatalf("profile does not carry the requested goal:\n%s", profileData)
	}

	auditPath := filepath.Join(workspaceRoot, "audit", "audit.sqlite")
	if _, err := os.Stat(auditPath); err != nil {
		t.Fatalf("audit db not written at %s: %v", auditPath, err)
	}
	requireAuditEvents(t, auditPath, []string{
		"workspace_init_started",
		"workspace_init_finished",
	})

	// A fresh workspace has no history; generation still succeeds on fallbacks.
	harness.MustRun(t, binPath, runDir, "state", "compute", "--workspace", workspaceRoot, "--as-of", testAsOf)
	res := harness.MustRun(t, binPath, runDir, "plan", "generate", "--workspace", workspaceRoot)
	if !strings.Contains(res.Stdout, "10k-standard") {
		t.Fatalf("expected 10k plan summary\n%s", res)
	}
}
