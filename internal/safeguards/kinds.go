package safeguards

import (
	"fmt"
	"math"

	"runplan/internal/inference"
)

const epsilon = 1e-9

// check inspects one proposal. It returns ok=false when the rule does not
// fire.
type check func(r Rule, state inference.RunnerState, p WeekProposal) (Trigger, bool)

type kindSpec struct {
	field      Field
	severities []Severity
	check      check
}

// Only volume rules may block: a reproposal lowers volume and nothing else.
var (
	anySeverity = []Severity{SeverityBlock, SeverityCap, SeverityWarn}
	capOrWarn   = []Severity{SeverityCap, SeverityWarn}
)

// kindDefaults lists each kind's params with their defaults. Check functions
// read it through param, so it must not refer to kindSpecs.
var kindDefaults = map[Kind]map[string]float64{
	KindRampCap:             {"max_increase_percent": 10},
	KindInjuryHistoryRamp:   {"max_increase_percent": 10},
	KindMinRestDays:         {"min_rest_days": 2, "low_rest_weeks": 3},
	KindEasyIntensityCap:    {"max_share_above_threshold": 0.3, "max_easy_intensity": 0.7},
	KindHighRiskKeySessions: {"max_key_sessions": 2},
	KindLongRunShare:        {"max_share": 0.35},
	KindLowDataQuality:      {"min_score": 0.4},
}

var kindSpecs = map[Kind]kindSpec{
	KindRampCap: {
		field:      FieldVolumeKm,
		severities: anySeverity,
		check:      checkRamp(false),
	},
	KindInjuryHistoryRamp: {
		field:      FieldVolumeKm,
		severities: anySeverity,
		check:      checkRamp(true),
	},
	KindMinRestDays: {
		field:      FieldRestDays,
		severities: capOrWarn,
		check:      checkMinRestDays,
	},
	KindEasyIntensityCap: {
		field:      FieldEasyIntensity,
		severities: capOrWarn,
		check:      checkEasyIntensity,
	},
	KindHighRiskKeySessions: {
		field:      FieldKeySessions,
		severities: capOrWarn,
		check:      checkHighRiskKeySessions,
	},
	KindLongRunShare: {
		field:      FieldLongRunKm,
		severities: capOrWarn,
		check:      checkLongRunShare,
	},
	KindLowDataQuality: {
		field:      FieldNone,
		severities: []Severity{SeverityWarn},
		check:      checkLowDataQuality,
	},
}

// Kinds lists every supported rule kind.
func Kinds() []Kind {
	return []Kind{
		KindRampCap,
		KindInjuryHistoryRamp,
		KindMinRestDays,
		KindEasyIntensityCap,
		KindHighRiskKeySessions,
		KindLongRunShare,
		KindLowDataQuality,
	}
}

func checkRamp(requireInjuryHistory bool) check {
	return func(r Rule, state inference.RunnerState, p WeekProposal) (Trigger, bool) {
		if requireInjuryHistory && !state.InjuryRisk.Value.HasFactor(inference.FactorInjuryHistory) {
			return Trigger{}, false
		}
		if p.PreviousVolumeKm <= 0 {
			return Trigger{}, false
		}
		pct := r.param("max_increase_percent")
		limit := floor2(p.PreviousVolumeKm * (1 + pct/100))
		if p.VolumeKm <= limit+epsilon {
			return Trigger{}, false
		}
		increase := (p.VolumeKm - p.PreviousVolumeKm) / p.PreviousVolumeKm * 100
		msg := fmt.Sprintf("week-over-week increase %.1f%% exceeds %.0f%%", increase, pct)
		if requireInjuryHistory {
			msg += " with declared injury history"
		}
		return Trigger{Observed: p.VolumeKm, Bound: limit, Message: msg}, true
	}
}

func checkMinRestDays(r Rule, state inference.RunnerState, p WeekProposal) (Trigger, bool) {
	lw := state.RecentPatterns.LowRestWeeks
	if lw == nil || float64(lw.Value) < r.param("low_rest_weeks") {
		return Trigger{}, false
	}
	minRest := math.Floor(r.param("min_rest_days"))
	if float64(p.RestDays) >= minRest {
		return Trigger{}, false
	}
	return Trigger{
		Observed: float64(p.RestDays),
		Bound:    minRest,
		Message:  fmt.Sprintf("fewer than one rest day per week for %d weeks; forcing %d rest days", lw.Value, int(minRest)),
	}, true
}

func checkEasyIntensity(r Rule, state inference.RunnerState, p WeekProposal) (Trigger, bool) {
	above := state.Paces.EasyAboveThreshold
	if above == nil || above.Value <= r.param("max_share_above_threshold") {
		return Trigger{}, false
	}
	ceiling := r.param("max_easy_intensity")
	if p.EasyIntensity <= ceiling+epsilon {
		return Trigger{}, false
	}
	return Trigger{
		Observed: p.EasyIntensity,
		Bound:    ceiling,
		Message:  fmt.Sprintf("%.0f%% of recent easy runs were above the aerobic threshold", above.Value*100),
	}, true
}

func checkHighRiskKeySessions(r Rule, state inference.RunnerState, p WeekProposal) (Trigger, bool) {
	if state.InjuryRisk.Value.Level != inference.RiskHigh {
		return Trigger{}, false
	}
	maxKey := math.Floor(r.param("max_key_sessions"))
	if float64(p.KeySessions) <= maxKey {
		return Trigger{}, false
	}
	return Trigger{
		Observed: float64(p.KeySessions),
		Bound:    maxKey,
		Message:  fmt.Sprintf("injury risk is high (%v); limiting key sessions", state.InjuryRisk.Value.ContributingFactors),
	}, true
}

func checkLongRunShare(r Rule, _ inference.RunnerState, p WeekProposal) (Trigger, bool) {
	if p.VolumeKm <= 0 {
		return Trigger{}, false
	}
	share := r.param("max_share")
	limit := floor2(p.VolumeKm * share)
	if p.LongRunKm <= limit+epsilon {
		return Trigger{}, false
	}
	return Trigger{
		Observed: p.LongRunKm,
		Bound:    limit,
		Message:  fmt.Sprintf("long run would be %.0f%% of weekly volume (max %.0f%%)", p.LongRunKm/p.VolumeKm*100, share*100),
	}, true
}

func checkLowDataQuality(r Rule, state inference.RunnerState, _ WeekProposal) (Trigger, bool) {
	minScore := r.param("min_score")
	if state.DataQuality.Value >= minScore {
		return Trigger{}, false
	}
	return Trigger{
		Observed: state.DataQuality.Value,
		Bound:    minScore,
		Message:  fmt.Sprintf("data quality %.2f is below %.2f; targets rely on conservative defaults", state.DataQuality.Value, minScore),
	}, true
}

// floor2 rounds down to two decimals so a capped value never exceeds its
// limit.
func floor2(v float64) float64 {
	return math.Floor(v*100+1e-6) / 100
}
