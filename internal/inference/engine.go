package inference

import (
	"time"

	"runplan/internal/activity"
)

// Input is everything the engine reads. Records need not be sanitized.
type Input struct {
	Activities []activity.Activity
	Daily      []activity.DailyRecord
	Body       []activity.BodyRecord
	AsOf       time.Time
	Declared   Declared
}

// Compute derives a RunnerState from raw records. It never fails: sparse or
// malformed input lowers confidence instead. Each metric is computed on its
// own so a gap in one does not block the others.
func Compute(in Input, p Params) RunnerState {
	feed, skipped := activity.Sanitize(activity.Feed{
		Activities: in.Activities,
		Daily:      in.Daily,
		Body:       in.Body,
	}, in.AsOf)
	h := newHistory(feed, len(skipped), in.AsOf, p)

	state := RunnerState{AsOf: h.asOf}
	var warnings []Warning

	load, w := computeTrainingLoad(h, p)
	state.TrainingLoad = load
	warnings = append(warnings, w...)

	patterns, w := computeRecentPatterns(h, p)
	state.RecentPatterns = patterns
	warnings = append(warnings, w...)

	state.InjuryRisk = computeInjuryRisk(h, patterns, in.Declared, p)
	state.Paces = computePaces(h, p)
	state.Biometrics = computeBiometrics(h)
	state.DataQuality = computeDataQuality(h)
	state.Warnings = warnings
	return state
}

// ComputeFromFeed is Compute over a loaded feed.
func ComputeFromFeed(feed activity.Feed, asOf time.Time, declared Declared, p Params) RunnerState {
	return Compute(Input{
		Activities: feed.Activities,
		Daily:      feed.Daily,
		Body:       feed.Body,
		AsOf:       asOf,
		Declared:   declared,
	}, p)
}
