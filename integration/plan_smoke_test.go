package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"runplan/integration/harness"
)

func TestPlanSmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	workspace := t.TempDir()
	runDir := t.TempDir()

	harness.CopyFixture(t, "workspace-min", workspace)

	run := func(args ...string) string {
		t.Helper()
		args = append(args, "--workspace", workspace, "--no-color")
		return harness.MustRun(t, binPath, runDir, args...).Stdout
	}

	run("state", "compute", "--as-of", testAsOf)
	out := run("plan", "generate")
	if !strings.Contains(out, "half-marathon-standard, 12 weeks from 2026-03-02") {
		t.Fatalf("unexpected plan summary:\n%s", out)
	}

	planPath := filepath.Join(workspace, "artifacts", "plans", testAsOf, "plan.json")
	if _, err := os.Stat(planPath); err != nil {
		t.Fatalf("plan not written at %s: %v", planPath, err)
	}
	first, err := os.ReadFile(planPath)
	if err != nil {
		t.Fatalf("read plan: %v", err)
	}

	// Same inputs, same bytes.
	run("plan", "generate")
	second, err := os.ReadFile(planPath)
	if err != nil {
		t.Fatalf("read plan: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("regenerating from the same inputs changed the plan")
	}

	out = run("plan", "show")
	for _, want := range []string{"template: half-marathon-standard", "week 12 [taper]", "decision audit:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("plan show missing %q\n%s", want, out)
		}
	}

	whatIf := filepath.Join("artifacts", "plans", "what-if-14.json")
	run("plan", "generate", "--weeks", "14", "--out", whatIf)
	if _, err := os.Stat(filepath.Join(workspace, whatIf)); err != nil {
		t.Fatalf("what-if plan not written: %v", err)
	}

	out = run("plan", "diff", filepath.Join("artifacts", "plans", testAsOf), whatIf)
	if !strings.Contains(out, "+week 14") {
		t.Fatalf("diff should add week 14:\n%s", out)
	}
	out = run("plan", "diff", planPath, planPath)
	if strings.TrimSpace(out) != "plans are identical" {
		t.Fatalf("unexpected self diff:\n%s", out)
	}

	out = run("rules", "export")
	if !strings.Contains(out, "sg06-long-run-share") {
		t.Fatalf("rules export missing workspace rules:\n%s", out)
	}

	auditPath := filepath.Join(workspace, "audit", "audit.sqlite")
	requireAuditEvents(t, auditPath, []string{
		"plan_generate_started",
		"plan_generate_finished",
		"plan_show_started",
		"plan_diff_finished",
	})
	if n := countPlanDecisions(t, auditPath); n == 0 {
		t.Fatalf("no decisions recorded in %s", auditPath)
	}
}
