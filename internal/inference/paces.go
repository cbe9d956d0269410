package inference

import (
	"fmt"
	"math"

	"runplan/internal/activity"
)

const (
	easyMinMinutes    = 20
	easyMaxMinutes    = 75
	longRunMinMinutes = 75
	longRunDistFactor = 1.5
	paceWindowDays    = 56
)

// computePaces derives easy-pace and long-run heuristics from the recent
// runs. Medians are used throughout so a single race or GPS glitch does not
// move the result.
func computePaces(h history, p Params) PaceProfile {
	var out PaceProfile
	var runs []activity.Activity
	for _, r := range h.runs {
		if r.DistanceM > 0 && h.daysAgo(r.Start) < paceWindowDays {
			runs = append(runs, r)
		}
	}
	if len(runs) == 0 {
		return out
	}

	paces := make([]float64, 0, len(runs))
	dists := make([]float64, 0, len(runs))
	for _, r := range runs {
		paces = append(paces, r.PaceSecPerKm())
		dists = append(dists, r.DistanceKm())
	}
	medianPace := median(paces)
	medianDist := median(dists)
	sampleConf := math.Min(1, float64(len(runs))/8)

	var easy []activity.Activity
	for _, r := range runs {
		mins := r.DurationMin()
		if mins < easyMinMinutes || mins > easyMaxMinutes {
			continue
		}
		if r.PaceSecPerKm() < medianPace {
			continue
		}
		easy = append(easy, r)
	}
	if len(easy) > 0 {
		easyPaces := make([]float64, 0, len(easy))
		for _, r := range easy {
			easyPaces = append(easyPaces, r.PaceSecPerKm())
		}
		out.EasyPaceSecPerKm = newInferred(round(median(easyPaces), 1),
			math.Min(1, float64(len(easy))/5)*sampleConf,
			[]string{fmt.Sprintf("activity:run:%d", len(easy)), "filter:easy"}, h.asOf)
	}

	var easyHR []float64
	for _, r := range easy {
		if r.AvgHR > 0 {
			easyHR = append(easyHR, r.AvgHR)
		}
	}
	if len(easyHR) > 0 {
		out.EasyRunHR = newInferred(round(median(easyHR), 1),
			math.Min(1, float64(len(easyHR))/5),
			[]string{fmt.Sprintf("activity:run:%d", len(easyHR)), "filter:easy_with_hr"}, h.asOf)
	}

	if h.maxHR > 0 {
		threshold := round(h.maxHR*p.AerobicThresholdFraction, 1)
		out.AerobicThresholdHR = newInferred(threshold, 0.6,
			[]string{"activity:max_hr", fmt.Sprintf("param:aerobic_threshold_fraction:%.2f", p.AerobicThresholdFraction)}, h.asOf)
		if len(easyHR) > 0 {
			above := 0
			for _, hr := range easyHR {
				if hr > threshold {
					above++
				}
			}
			out.EasyAboveThreshold = newInferred(round(float64(above)/float64(len(easyHR)), 3),
				math.Min(1, float64(len(easyHR))/5),
				[]string{fmt.Sprintf("activity:run:%d", len(easyHR)), "filter:easy_with_hr"}, h.asOf)
		}
	}

	var long []float64
	for _, r := range runs {
		if r.DurationMin() >= longRunMinMinutes || r.DistanceKm() >= longRunDistFactor*medianDist {
			long = append(long, r.DistanceKm())
		}
	}
	if len(long) > 0 {
		out.LongRunKm = newInferred(round(median(long), 2),
			math.Min(1, float64(len(long))/4),
			[]string{fmt.Sprintf("activity:run:%d", len(long)), "filter:long_run"}, h.asOf)
	}
	return out
}
