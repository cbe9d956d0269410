package safeguards

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"runplan/internal/decision"
	"runplan/internal/inference"
)

var asOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func baseState() inference.RunnerState {
	return inference.RunnerState{
		AsOf: asOf,
		InjuryRisk: inference.Inferred[inference.InjuryRisk]{
			Value:        inference.InjuryRisk{Level: inference.RiskLow},
			Confidence:   1,
			InferredFrom: []string{"activity:run:20"},
		},
		DataQuality: inference.Inferred[float64]{Value: 0.9, Confidence: 1, InferredFrom: []string{"activity:20"}},
	}
}

func proposal() WeekProposal {
	return WeekProposal{
		Week:             1,
		Phase:            "base",
		PreviousVolumeKm: 30,
		VolumeKm:         32,
		LongRunKm:        9,
		KeySessions:      3,
		RestDays:         2,
		EasyIntensity:    0.72,
	}
}

func TestDefaultRulesAreValid(t *testing.T) {
	if err := Check(DefaultRules(), "default"); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
	kinds := make(map[Kind]bool)
	for _, r := range DefaultRules() {
		kinds[r.Kind] = true
	}
	for _, k := range Kinds() {
		if !kinds[k] {
			t.Fatalf("default rules do not cover kind %s", k)
		}
	}
}

func TestEveryKindHasDefaultsAndCheck(t *testing.T) {
	for _, k := range Kinds() {
		spec, ok := kindSpecs[k]
		if !ok || spec.check == nil {
			t.Fatalf("kind %s has no check", k)
		}
		if len(kindDefaults[k]) == 0 {
			t.Fatalf("kind %s has no default params", k)
		}
		r := Rule{ID: "r", Kind: k, Severity: SeverityWarn}
		for name, want := range kindDefaults[k] {
			if got := r.param(name); got != want {
				t.Fatalf("%s param %s = %v, want %v", k, name, got, want)
			}
		}
	}
}

func TestBlockOnlyAllowedForVolume(t *testing.T) {
	for _, k := range Kinds() {
		rules := []Rule{{ID: "r", Kind: k, Severity: SeverityBlock}}
		err := Check(rules, "rules.yml")
		volume := kindSpecs[k].field == FieldVolumeKm
		if volume && err != nil {
			t.Fatalf("%s: block should be allowed: %v", k, err)
		}
		if !volume && err == nil {
			t.Fatalf("%s: block on %s should be rejected", k, kindSpecs[k].field)
		}
	}
}

func TestValidatePassesSafeProposal(t *testing.T) {
	res := Validate(baseState(), proposal(), DefaultRules())
	if res.Outcome != OutcomePass {
		t.Fatalf("outcome = %s, want pass (triggers %+v)", res.Outcome, res.Triggers)
	}
	if len(res.Decisions) != 0 {
		t.Fatalf("expected no decisions, got %+v", res.Decisions)
	}
	if !reflect.DeepEqual(res.Adjusted, proposal()) {
		t.Fatalf("adjusted proposal changed: %+v", res.Adjusted)
	}
}

func TestRampCapClampsVolume(t *testing.T) {
	p := proposal()
	p.VolumeKm = 34.56

	res := Validate(baseState(), p, DefaultRules())
	if got, want := res.Outcome, OutcomeCapped; got != want {
		t.Fatalf("outcome = %s, want %s", got, want)
	}
	if got, want := res.Adjusted.VolumeKm, 33.0; got != want {
		t.Fatalf("capped volume = %v, want %v", got, want)
	}
	if len(res.Decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(res.Decisions))
	}
	d := res.Decisions[0]
	if d.Kind != decision.KindSafeguard || d.Week != 1 || !reflect.DeepEqual(d.TriggeredRuleIDs, []string{"sg02-ramp-cap"}) {
		t.Fatalf("unexpected decision %+v", d)
	}
	if !strings.Contains(d.ChosenValue, "33") {
		t.Fatalf("chosen value %q should name the bound", d.ChosenValue)
	}
}

func TestRampRulesSkipWithoutBaseline(t *testing.T) {
	p := proposal()
	p.PreviousVolumeKm = 0
	p.VolumeKm = 80
	p.LongRunKm = 20
	res := Validate(baseState(), p, DefaultRules())
	if res.Outcome != OutcomePass {
		t.Fatalf("outcome = %s, want pass", res.Outcome)
	}
}

func TestInjuryHistoryBlocksRamp(t *testing.T) {
	state := baseState()
	state.InjuryRisk.Value = inference.InjuryRisk{
		Level:               inference.RiskModerate,
		ContributingFactors: []string{inference.FactorInjuryHistory},
	}
	p := proposal()
	p.VolumeKm = 36

	res := Validate(state, p, DefaultRules())
	if !res.Blocked() {
		t.Fatalf("expected block, got %s", res.Outcome)
	}
	if !reflect.DeepEqual(res.Adjusted, p) {
		t.Fatalf("blocked result must return the input proposal")
	}
	bound, ok := res.BlockBound(FieldVolumeKm)
	if !ok || bound != 33 {
		t.Fatalf("block bound = %v, %v; want 33", bound, ok)
	}
	// Both ramp rules fired; each produced one decision, block first by ID.
	if got, want := len(res.Decisions), 2; got != want {
		t.Fatalf("decisions = %d, want %d", got, want)
	}
	if res.Decisions[0].TriggeredRuleIDs[0] != "sg01-injury-history-ramp" {
		t.Fatalf("first decision = %+v", res.Decisions[0])
	}

	p.VolumeKm = 33
	if res := Validate(state, p, DefaultRules()); res.Blocked() {
		t.Fatalf("10%% increase should pass, got %+v", res.Triggers)
	}
}

func TestCapRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*inference.RunnerState, *WeekProposal)
		ruleID string
		check  func(WeekProposal) bool
	}{
		{
			name: "min rest days",
			mutate: func(s *inference.RunnerState, p *WeekProposal) {
				s.RecentPatterns.LowRestWeeks = &inference.Inferred[int]{Value: 3, Confidence: 1, InferredFrom: []string{"x"}}
				p.RestDays = 1
			},
			ruleID: "sg03-min-rest-days",
			check:  func(p WeekProposal) bool { return p.RestDays == 2 },
		},
		{
			name: "high risk key sessions",
			mutate: func(s *inference.RunnerState, p *WeekProposal) {
				s.InjuryRisk.Value.Level = inference.RiskHigh
			},
			ruleID: "sg04-high-risk-key-sessions",
			check:  func(p WeekProposal) bool { return p.KeySessions == 2 },
		},
		{
			name: "easy intensity",
			mutate: func(s *inference.RunnerState, p *WeekProposal) {
				s.Paces.EasyAboveThreshold = &inference.Inferred[float64]{Value: 0.6, Confidence: 1, InferredFrom: []string{"x"}}
				p.EasyIntensity = 0.8
			},
			ruleID: "sg05-easy-intensity-cap",
			check:  func(p WeekProposal) bool { return p.EasyIntensity == 0.7 },
		},
		{
			name: "long run share",
			mutate: func(s *inference.RunnerState, p *WeekProposal) {
				p.LongRunKm = 16
			},
			ruleID: "sg06-long-run-share",
			check:  func(p WeekProposal) bool { return p.LongRunKm == 11.2 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := baseState()
			p := proposal()
			tt.mutate(&state, &p)
			res := Validate(state, p, DefaultRules())
			if res.Outcome != OutcomeCapped {
				t.Fatalf("outcome = %s, want capped (triggers %+v)", res.Outcome, res.Triggers)
			}
			if len(res.Decisions) != 1 || res.Decisions[0].TriggeredRuleIDs[0] != tt.ruleID {
				t.Fatalf("decisions = %+v, want one from %s", res.Decisions, tt.ruleID)
			}
			if !tt.check(res.Adjusted) {
				t.Fatalf("adjusted proposal %+v not capped as expected", res.Adjusted)
			}
		})
	}
}

func TestLowDataQualityWarns(t *testing.T) {
	state := baseState()
	state.DataQuality.Value = 0.1
	res := Validate(state, proposal(), DefaultRules())
	if res.Outcome != OutcomeWarned {
		t.Fatalf("outcome = %s, want warned", res.Outcome)
	}
	if !reflect.DeepEqual(res.Adjusted, proposal()) {
		t.Fatalf("warn must not alter values")
	}
	if len(res.Decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(res.Decisions))
	}
}

func TestValidateOrdersByIDAndIsPure(t *testing.T) {
	rules := DefaultRules()
	// reverse the slice; evaluation order must not depend on it
	for i, j := 0, len(rules)-1; i < j; i, j = i+1, j-1 {
		rules[i], rules[j] = rules[j], rules[i]
	}
	firstID := rules[0].ID

	state := baseState()
	state.DataQuality.Value = 0.1
	state.InjuryRisk.Value.Level = inference.RiskHigh
	p := proposal()
	p.VolumeKm = 40
	p.LongRunKm = 20

	a := Validate(state, p, rules)
	b := Validate(state, p, rules)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("validate is not deterministic")
	}
	if rules[0].ID != firstID {
		t.Fatalf("validate reordered the caller's slice")
	}
	var ids []string
	for _, d := range a.Decisions {
		ids = append(ids, d.TriggeredRuleIDs[0])
	}
	want := []string{"sg02-ramp-cap", "sg04-high-risk-key-sessions", "sg06-long-run-share", "sg07-low-data-quality"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("decision order = %v, want %v", ids, want)
	}
	// long-run share is measured against the already capped volume
	if got, want := a.Adjusted.LongRunKm, 11.55; got != want {
		t.Fatalf("long run = %v, want %v", got, want)
	}
}

func TestCheckRejectsBadRuleSets(t *testing.T) {
	tests := []struct {
		name    string
		rules   []Rule
		wantMsg string
	}{
		{"empty", nil, "at least one rule"},
		{"unknown kind", []Rule{{ID: "a", Kind: "teleport", Severity: SeverityCap}}, "unknown rule kind"},
		{"warn only", []Rule{{ID: "a", Kind: KindLowDataQuality, Severity: SeverityBlock}}, "not allowed"},
		{"block on rest days", []Rule{{ID: "a", Kind: KindMinRestDays, Severity: SeverityBlock}}, "not allowed"},
		{"block on long run", []Rule{{ID: "a", Kind: KindLongRunShare, Severity: SeverityBlock}}, "not allowed"},
		{"block on key sessions", []Rule{{ID: "a", Kind: KindHighRiskKeySessions, Severity: SeverityBlock}}, "not allowed"},
		{"block on easy intensity", []Rule{{ID: "a", Kind: KindEasyIntensityCap, Severity: SeverityBlock}}, "not allowed"},
		{"unknown param", []Rule{{ID: "a", Kind: KindRampCap, Severity: SeverityCap, Params: map[string]float64{"speed": 1}}}, "unknown param"},
		{"duplicate", []Rule{{ID: "a", Kind: KindRampCap, Severity: SeverityCap}, {ID: "a", Kind: KindLongRunShare, Severity: SeverityCap}}, "duplicate rule id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.rules, "rules.yml")
			var rse *RuleSetError
			if !errors.As(err, &rse) {
				t.Fatalf("expected RuleSetError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestExportParseRoundTrip(t *testing.T) {
	data, err := ExportYAML(DefaultRules())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	rules, err := ParseRules(data, "rules.yml")
	if err != nil {
		t.Fatalf("parse exported rules: %v\n%s", err, data)
	}
	if !reflect.DeepEqual(rules, DefaultRules()) {
		t.Fatalf("round trip changed rules:\n%s", data)
	}
}

func TestParseRulesFillsDefaultParams(t *testing.T) {
	doc := `
rules:
  - id: ramp
    kind: ramp_cap
    severity: cap
    description: ramp
`
	rules, err := ParseRules([]byte(doc), "rules.yml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := proposal()
	p.VolumeKm = 40
	res := Validate(baseState(), p, rules)
	if got, want := res.Adjusted.VolumeKm, 33.0; got != want {
		t.Fatalf("volume = %v, want %v", got, want)
	}

	if _, err := ParseRules([]byte("rules:\n  - id: x\n    colour: red\n"), "bad.yml"); err == nil {
		t.Fatalf("expected unknown field error")
	}
}
