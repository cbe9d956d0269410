package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"runplan/internal/activity"
)

var testAsOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

var weekDays = []int{0, 1, 3, 4, 6, 2, 5}

// runsForWeek places n runs of km each inside week w (0 = most recent).
func runsForWeek(w, n int, km float64) []activity.Activity {
	var out []activity.Activity
	for i := 0; i < n; i++ {
		daysAgo := w*7 + weekDays[i]
		out = append(out, activity.Activity{
			ID:          fmt.Sprintf("w%d-r%d", w, i),
			Kind:        activity.KindRun,
			Start:       testAsOf.AddDate(0, 0, -daysAgo).Add(6 * time.Hour),
			DurationSec: km * 360,
			DistanceM:   km * 1000,
			AvgHR:       140,
			MaxHR:       185,
		})
	}
	return out
}

func steady(weeks, perWeek int, km float64) []activity.Activity {
	var out []activity.Activity
	for w := weeks - 1; w >= 0; w-- {
		out = append(out, runsForWeek(w, perWeek, km)...)
	}
	return out
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestComputeEmptyInput(t *testing.T) {
	state := Compute(Input{AsOf: testAsOf}, DefaultParams())

	if state.TrainingLoad.Confidence != 0 {
		t.Fatalf("training load confidence = %v, want 0", state.TrainingLoad.Confidence)
	}
	if state.TrainingLoad.InferredFrom == nil || len(state.TrainingLoad.InferredFrom) != 0 {
		t.Fatalf("training load inferred_from = %#v, want empty slice", state.TrainingLoad.InferredFrom)
	}
	if got, want := state.TrainingLoad.Value.Trend, TrendMaintaining; got != want {
		t.Fatalf("trend = %q, want %q", got, want)
	}
	if state.InjuryRisk.Confidence != 0 || len(state.InjuryRisk.InferredFrom) != 0 {
		t.Fatalf("injury risk should carry zero confidence and no sources: %+v", state.InjuryRisk)
	}
	if got, want := state.InjuryRisk.Value.Level, RiskLow; got != want {
		t.Fatalf("risk level = %q, want %q", got, want)
	}
	if state.RecentPatterns.Volume7d != nil || state.RecentPatterns.Volume28d != nil {
		t.Fatalf("volume metrics must be omitted without samples")
	}
	if state.Paces.EasyPaceSecPerKm != nil || state.Biometrics.RestingHR != nil {
		t.Fatalf("pace and biometric metrics must be omitted without samples")
	}
	if state.DataQuality.Value != 0 || state.DataQuality.Confidence != 0 {
		t.Fatalf("data quality = %+v, want zero", state.DataQuality)
	}
	if len(state.Warnings) == 0 || state.Warnings[0].Code != WarningInsufficientData {
		t.Fatalf("expected insufficient data warning, got %+v", state.Warnings)
	}

	data, err := json.Marshal(state.TrainingLoad)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if got, want := string(raw["inferred_from"]), "[]"; got != want {
		t.Fatalf("inferred_from json = %s, want %s", got, want)
	}
}

func TestComputeSteadyRunner(t *testing.T) {
	state := Compute(Input{Activities: steady(10, 5, 6), AsOf: testAsOf}, DefaultParams())

	v7 := state.RecentPatterns.Volume7d
	if v7 == nil {
		t.Fatalf("volume7d missing")
	}
	if got, want := v7.Value, 30.0; got != want {
		t.Fatalf("volume7d = %v, want %v", got, want)
	}
	if got, want := v7.Confidence, 1.0; got != want {
		t.Fatalf("volume7d confidence = %v, want %v", got, want)
	}
	if len(v7.InferredFrom) == 0 {
		t.Fatalf("volume7d must record its sources")
	}
	if got, want := state.RecentPatterns.Volume28d.Value, 120.0; got != want {
		t.Fatalf("volume28d = %v, want %v", got, want)
	}
	if got, want := state.RecentPatterns.RestDayFrequency.Value, 2.0; got != want {
		t.Fatalf("rest day frequency = %v, want %v", got, want)
	}
	if got, want := state.RecentPatterns.VolumeConsistency.Value, 0.0; got != want {
		t.Fatalf("volume cv = %v, want %v", got, want)
	}

	load := state.TrainingLoad.Value
	if got, want := load.Trend, TrendMaintaining; got != want {
		t.Fatalf("trend = %q, want %q", got, want)
	}
	if load.ChronicLoad <= 0 || load.AcuteLoad <= 0 {
		t.Fatalf("expected positive loads, got %+v", load)
	}
	if !approx(load.Balance, load.ChronicLoad-load.AcuteLoad, 0.011) {
		t.Fatalf("balance %v != ctl-atl %v", load.Balance, load.ChronicLoad-load.AcuteLoad)
	}
	if got, want := load.TrendConfidence, 1.0; got != want {
		t.Fatalf("trend confidence = %v, want %v", got, want)
	}

	risk := state.InjuryRisk.Value
	if got, want := risk.Level, RiskLow; got != want {
		t.Fatalf("risk = %q (factors %v), want %q", got, risk.ContributingFactors, want)
	}

	if p := state.Paces.EasyPaceSecPerKm; p == nil || p.Value != 360 {
		t.Fatalf("easy pace = %+v, want 360", p)
	}
	if p := state.Paces.EasyAboveThreshold; p == nil || p.Value != 0 {
		t.Fatalf("easy above threshold = %+v, want 0", p)
	}
	if state.DataQuality.Value <= 0.5 {
		t.Fatalf("data quality = %v, want > 0.5", state.DataQuality.Value)
	}
}

func TestComputeRampRaisesRisk(t *testing.T) {
	acts := steady(9, 4, 5)
	for i := range acts {
		// shift the older block back one week
		acts[i].ID = "old-" + acts[i].ID
		acts[i].Start = acts[i].Start.AddDate(0, 0, -7)
	}
	acts = append(acts, runsForWeek(0, 5, 6)...)

	state := Compute(Input{Activities: acts, AsOf: testAsOf}, DefaultParams())
	risk := state.InjuryRisk.Value
	if got, want := risk.RampRatePercent, 50.0; got != want {
		t.Fatalf("ramp = %v, want %v", got, want)
	}
	if !risk.HasFactor(FactorRampRate) {
		t.Fatalf("expected ramp factor, got %v", risk.ContributingFactors)
	}
	if got, want := risk.Level, RiskHigh; got != want {
		t.Fatalf("risk = %q, want %q", got, want)
	}
	if got, want := state.TrainingLoad.Value.Trend, TrendBuilding; got != want {
		t.Fatalf("trend = %q, want %q", got, want)
	}
}

func TestComputeModerateRampThreshold(t *testing.T) {
	var acts []activity.Activity
	for w := 5; w >= 1; w-- {
		acts = append(acts, runsForWeek(w, 4, 5)...)
	}
	acts = append(acts, runsForWeek(0, 4, 5.75)...)

	p := DefaultParams()
	state := Compute(Input{Activities: acts, AsOf: testAsOf}, p)
	if got, want := state.InjuryRisk.Value.Level, RiskModerate; got != want {
		t.Fatalf("risk = %q, want %q (ramp %v)", got, want, state.InjuryRisk.Value.RampRatePercent)
	}

	p.RampThresholdPercent = 20
	state = Compute(Input{Activities: acts, AsOf: testAsOf}, p)
	if got, want := state.InjuryRisk.Value.Level, RiskLow; got != want {
		t.Fatalf("risk with raised threshold = %q, want %q", got, want)
	}
}

func TestComputeLowRestAndDeclaredFlags(t *testing.T) {
	state := Compute(Input{
		Activities: steady(4, 7, 5),
		AsOf:       testAsOf,
		Declared:   Declared{InjuryHistory: true, PushesThroughPain: true},
	}, DefaultParams())

	risk := state.InjuryRisk.Value
	for _, f := range []string{FactorLowRestFrequency, FactorInjuryHistory, FactorPushesThroughPain} {
		if !risk.HasFactor(f) {
			t.Fatalf("missing factor %s in %v", f, risk.ContributingFactors)
		}
	}
	if got, want := risk.Level, RiskHigh; got != want {
		t.Fatalf("risk = %q, want %q", got, want)
	}
	if lw := state.RecentPatterns.LowRestWeeks; lw == nil || lw.Value != 4 {
		t.Fatalf("low rest weeks = %+v, want 4", lw)
	}
}

func TestDeclaredFlagsWithoutData(t *testing.T) {
	state := Compute(Input{AsOf: testAsOf, Declared: Declared{InjuryHistory: true}}, DefaultParams())
	risk := state.InjuryRisk
	if got, want := risk.Value.Level, RiskModerate; got != want {
		t.Fatalf("risk = %q, want %q", got, want)
	}
	if got, want := risk.Confidence, 0.5; got != want {
		t.Fatalf("confidence = %v, want %v", got, want)
	}
	if len(risk.InferredFrom) != 1 || risk.InferredFrom[0] != "profile:injury_history" {
		t.Fatalf("inferred_from = %v", risk.InferredFrom)
	}
}

func TestComputeErraticTrend(t *testing.T) {
	var acts []activity.Activity
	for w := 7; w >= 0; w-- {
		km := 2.0
		if w%2 == 0 {
			km = 8.0
		}
		acts = append(acts, runsForWeek(w, 5, km)...)
	}
	state := Compute(Input{Activities: acts, AsOf: testAsOf}, DefaultParams())
	if got, want := state.TrainingLoad.Value.Trend, TrendErratic; got != want {
		t.Fatalf("trend = %q, want %q", got, want)
	}
	if !state.InjuryRisk.Value.HasFactor(FactorVolumeVariability) {
		t.Fatalf("expected variability factor, got %v", state.InjuryRisk.Value.ContributingFactors)
	}
}

func TestComputeShortHistoryTrendUnknown(t *testing.T) {
	state := Compute(Input{Activities: steady(2, 4, 5), AsOf: testAsOf}, DefaultParams())
	load := state.TrainingLoad.Value
	if load.Trend != TrendMaintaining || load.TrendConfidence != 0 {
		t.Fatalf("trend = %q (%v), want maintaining with zero confidence", load.Trend, load.TrendConfidence)
	}
	if state.TrainingLoad.Confidence >= 1 {
		t.Fatalf("short history should lower load confidence, got %v", state.TrainingLoad.Confidence)
	}
}

func TestEWMADecaysWithoutResetting(t *testing.T) {
	full := ewma([]float64{10, 10, 10}, 7)
	gap := ewma([]float64{10, 10, 10, 0, 0}, 7)
	if !(gap < full && gap > 0) {
		t.Fatalf("ewma after rest days = %v, want within (0, %v)", gap, full)
	}
	long := make([]float64, 400)
	for i := range long {
		long[i] = 10
	}
	if v := ewma(long, 42); !approx(v, 10, 0.01) {
		t.Fatalf("ewma of constant series = %v, want ~10", v)
	}
}

func TestMedianResistsOutliers(t *testing.T) {
	acts := steady(6, 4, 6)
	// A single very slow recovery jog must not drag the easy pace.
	acts = append(acts, activity.Activity{
		ID: "slow", Kind: activity.KindRun,
		Start:       testAsOf.AddDate(0, 0, -2).Add(18 * time.Hour),
		DurationSec: 50 * 60, DistanceM: 5000,
	})
	state := Compute(Input{Activities: acts, AsOf: testAsOf}, DefaultParams())
	if p := state.Paces.EasyPaceSecPerKm; p == nil || p.Value != 360 {
		t.Fatalf("easy pace = %+v, want 360", p)
	}
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	acts := steady(6, 4, 5)
	acts = append(acts,
		activity.Activity{ID: "bad", Kind: activity.KindRun, Start: testAsOf, DurationSec: -5},
		activity.Activity{ID: "hr", Kind: activity.KindRun, Start: testAsOf, DurationSec: 600, AvgHR: 400},
	)
	clean := Compute(Input{Activities: steady(6, 4, 5), AsOf: testAsOf}, DefaultParams())
	dirty := Compute(Input{Activities: acts, AsOf: testAsOf}, DefaultParams())

	if clean.RecentPatterns.Volume7d.Value != dirty.RecentPatterns.Volume7d.Value {
		t.Fatalf("bad records changed volume: %v vs %v", clean.RecentPatterns.Volume7d.Value, dirty.RecentPatterns.Volume7d.Value)
	}
	if dirty.DataQuality.Value >= clean.DataQuality.Value {
		t.Fatalf("skipped records should lower data quality: %v >= %v", dirty.DataQuality.Value, clean.DataQuality.Value)
	}
}

func TestBiometricsStaleness(t *testing.T) {
	state := Compute(Input{
		AsOf: testAsOf,
		Daily: []activity.DailyRecord{
			{ID: "d-old", Date: testAsOf.AddDate(0, 0, -20), RestingHR: 60},
			{ID: "d-new", Date: testAsOf.AddDate(0, 0, -1), RestingHR: 50, SleepHours: 7},
		},
		Body: []activity.BodyRecord{
			{ID: "w-stale", Kind: activity.BodyWeight, Timestamp: testAsOf.AddDate(0, 0, -40), Value: 72},
			{ID: "hrv-1", Kind: activity.BodyHRV, Timestamp: testAsOf.AddDate(0, 0, -10), Value: 65},
		},
	}, DefaultParams())

	bio := state.Biometrics
	if bio.RestingHR == nil || bio.RestingHR.Value != 50 || bio.RestingHR.Confidence != 1 {
		t.Fatalf("resting hr = %+v, want latest 50 with full confidence", bio.RestingHR)
	}
	if got, want := bio.RestingHR.InferredFrom, "daily:d-new"; len(got) != 1 || got[0] != want {
		t.Fatalf("resting hr sources = %v, want [%s]", got, want)
	}
	if bio.Weight != nil {
		t.Fatalf("stale weight should be omitted, got %+v", bio.Weight)
	}
	if bio.HRV == nil || bio.HRV.Confidence >= 1 || bio.HRV.Confidence <= 0 {
		t.Fatalf("hrv confidence should be partial, got %+v", bio.HRV)
	}
	if bio.SleepHours == nil || bio.SleepHours.Value != 7 {
		t.Fatalf("sleep = %+v, want 7", bio.SleepHours)
	}
	if state.TrainingLoad.Confidence != 0 {
		t.Fatalf("no activities should leave load confidence at 0")
	}
}

func TestComputeDeterministic(t *testing.T) {
	in := Input{Activities: steady(8, 5, 6), AsOf: testAsOf, Declared: Declared{InjuryHistory: true}}
	a, err := json.Marshal(Compute(in, DefaultParams()))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(Compute(in, DefaultParams()))
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("compute is not deterministic")
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	p := DefaultParams()
	p.ChronicTimeConstantDays = 5
	if err := p.Validate(); err == nil {
		t.Fatalf("expected chronic <= acute to be rejected")
	}
}
