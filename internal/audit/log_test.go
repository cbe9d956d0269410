package audit

import (
	"path/filepath"
	"reflect"
	"testing"

	"runplan/internal/decision"
)

func TestLogEventAppends(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "audit", "audit.sqlite"))
	if err := logger.LogEvent("cli", "plan_generate_started", map[string]any{"weeks": 12}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := logger.LogEvent("cli", "plan_generate_finished", map[string]any{"ok": true}); err != nil {
		t.Fatalf("log: %v", err)
	}
	events, err := logger.Events()
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != "plan_generate_started" || events[0].PayloadJSON != `{"weeks":12}` {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].ID <= events[0].ID {
		t.Fatalf("ids not increasing: %d, %d", events[0].ID, events[1].ID)
	}
}

func TestLogEventUsesEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.sqlite")
	t.Setenv(EnvAuditDB, path)
	if err := LogEvent("cli", "init_started", nil); err != nil {
		t.Fatalf("log: %v", err)
	}
	events, err := NewLogger(path).Events()
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].PayloadJSON != "null" {
		t.Fatalf("events = %+v", events)
	}
}

func TestRecordPlanReplacesDecisions(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "audit.sqlite"))
	var trail decision.Trail
	trail.Append(decision.Decision{Stage: "template", Kind: decision.KindSelection, Question: "which template", ChosenValue: "10k-standard", Rationale: "goal"})
	trail.Append(decision.Decision{Stage: "safeguard", Week: 1, Kind: decision.KindSafeguard, Question: "rule sg02", ChosenValue: "volume_km capped 24 -> 22", Rationale: "ramp", TriggeredRuleIDs: []string{"sg02-ramp-cap"}})
	want := trail.Entries()

	if err := logger.RecordPlan("plan-a", want); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := logger.RecordPlan("plan-a", want); err != nil {
		t.Fatalf("record again: %v", err)
	}
	got, err := logger.PlanDecisions("plan-a")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("decisions = %+v, want %+v", got, want)
	}
	other, err := logger.PlanDecisions("plan-b")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("unexpected decisions for plan-b: %+v", other)
	}
	if err := logger.RecordPlan("", want); err == nil {
		t.Fatalf("expected error for empty plan id")
	}
}
