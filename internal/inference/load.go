package inference

import (
	"math"

	"runplan/internal/activity"
)

// kindWeight scales non-running activities down relative to running load.
var kindWeight = map[activity.Kind]float64{
	activity.KindRun:   1.0,
	activity.KindRide:  0.7,
	activity.KindWalk:  0.4,
	activity.KindOther: 0.6,
}

// activityLoad converts one activity into load units: minutes weighted by an
// intensity proxy derived from heart rate when available.
func activityLoad(a activity.Activity, maxHR float64, p Params) float64 {
	intensity := p.DefaultIntensity
	if a.AvgHR > 0 && maxHR > 0 {
		intensity = clamp(a.AvgHR/maxHR, 0.4, 1.0)
	}
	w, ok := kindWeight[a.Kind]
	if !ok {
		w = kindWeight[activity.KindOther]
	}
	return a.DurationMin() * intensity * w
}

// dailyLoads returns one load value per day from the window start through
// the as-of day. Days without activity carry zero.
func dailyLoads(h history, p Params) []float64 {
	days := int(h.asOf.Sub(h.start)/day) + 1
	series := make([]float64, days)
	for _, a := range h.activities {
		idx := days - 1 - h.daysAgo(a.Start)
		if idx < 0 || idx >= days {
			continue
		}
		series[idx] += activityLoad(a, h.maxHR, p)
	}
	return series
}

// ewma runs an exponentially weighted moving average over series. A zero
// day decays the average rather than resetting it.
func ewma(series []float64, timeConstant float64) float64 {
	alpha := 1 - math.Exp(-1/timeConstant)
	var v float64
	for _, x := range series {
		v += alpha * (x - v)
	}
	return v
}

func computeTrainingLoad(h history, p Params) (Inferred[TrainingLoad], []Warning) {
	var warnings []Warning
	if len(h.activities) == 0 {
		warnings = append(warnings, Warning{
			Code:    WarningInsufficientData,
			Metric:  "training_load",
			Message: "no activity records in the history window",
		})
		return Inferred[TrainingLoad]{
			Value:        TrainingLoad{Trend: TrendMaintaining},
			Confidence:   0,
			InferredFrom: []string{},
			ComputedAt:   h.asOf,
		}, warnings
	}

	series := dailyLoads(h, p)
	// Only the span actually covered by records feeds the averages, so a
	// short history is not diluted by leading zeros.
	covered := series[len(series)-h.spanDays:]
	atl := ewma(covered, p.AcuteTimeConstantDays)
	ctl := ewma(covered, p.ChronicTimeConstantDays)

	trend, trendConf := classifyTrend(h, p)
	if trendConf == 0 {
		warnings = append(warnings, Warning{
			Code:    WarningInsufficientData,
			Metric:  "trend",
			Message: "fewer than 3 weeks of running data; trend defaults to maintaining",
		})
	}
	conf := math.Min(1, float64(h.spanDays)/p.ChronicTimeConstantDays)
	if conf < 1 {
		warnings = append(warnings, Warning{
			Code:    WarningInsufficientData,
			Metric:  "chronic_load",
			Message: "history shorter than the chronic time constant",
		})
	}

	value := TrainingLoad{
		AcuteLoad:       round(atl, 2),
		ChronicLoad:     round(ctl, 2),
		Balance:         round(ctl-atl, 2),
		Trend:           trend,
		TrendConfidence: round(trendConf, 3),
	}
	sources := append(activitySources(h.activities), h.windowSource(h.spanDays))
	return *newInferred(value, conf, sources, h.asOf), warnings
}

// classifyTrend compares the recent half of up to eight weeks of volume with
// the preceding half. High variability overrides the direction.
func classifyTrend(h history, p Params) (Trend, float64) {
	weeks := h.weeksOfRunData()
	if weeks < 3 {
		return TrendMaintaining, 0
	}
	if weeks > 8 {
		weeks = 8
	}
	volumes := h.weeklyRunVolumes(weeks)
	half := weeks / 2
	recentWeeks := volumes[:half]
	if weeks >= 8 {
		recentWeeks = volumes[:4]
	}
	recent := mean(recentWeeks)
	previous := mean(volumes[len(recentWeeks):])
	conf := float64(weeks) / 8

	cvWindow := volumes
	if len(cvWindow) > 4 {
		cvWindow = cvWindow[:4]
	}
	if coefficientOfVariation(cvWindow) > p.ErraticCVPercent {
		return TrendErratic, conf
	}
	if previous == 0 {
		if recent > 0 {
			return TrendBuilding, conf
		}
		return TrendMaintaining, conf
	}
	change := (recent - previous) / previous * 100
	switch {
	case change > 10:
		return TrendBuilding, conf
	case change < -10:
		return TrendDeclining, conf
	default:
		return TrendMaintaining, conf
	}
}
