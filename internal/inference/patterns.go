package inference

import (
	"math"
)

func computeRecentPatterns(h history, p Params) (RecentPatterns, []Warning) {
	var out RecentPatterns
	if len(h.runs) == 0 {
		return out, []Warning{{
			Code:    WarningInsufficientData,
			Metric:  "recent_patterns",
			Message: "no running records in the history window",
		}}
	}

	volumes := h.weeklyRunVolumes(8)
	runSources := h.runSources()

	out.Volume7d = newInferred(round(volumes[0], 2),
		math.Min(1, float64(h.runSpanDays)/7),
		append(runSources, h.windowSource(7)), h.asOf)

	var v28 float64
	for _, v := range volumes[:4] {
		v28 += v
	}
	out.Volume28d = newInferred(round(v28, 2),
		math.Min(1, float64(h.runSpanDays)/28),
		append(runSources, h.windowSource(28)), h.asOf)

	weeks := h.weeksOfRunData()
	if weeks > 8 {
		weeks = 8
	}
	if weeks >= 1 {
		series := make([]float64, weeks)
		for i := 0; i < weeks; i++ {
			series[i] = round(volumes[weeks-1-i], 2)
		}
		out.WeeklyVolumes = newInferred(series, float64(weeks)/8,
			append(runSources, h.windowSource(weeks*7)), h.asOf)
	}

	if weeks >= 2 {
		window := volumes[:min(weeks, 4)]
		out.VolumeConsistency = newInferred(round(coefficientOfVariation(window), 2),
			float64(len(window))/4,
			append(runSources, h.windowSource(len(window)*7)), h.asOf)
	}

	if weeks >= 1 {
		restWeeks := restDaysByWeek(h, min(weeks, 4))
		var total float64
		for _, n := range restWeeks {
			total += float64(n)
		}
		freq := total / float64(len(restWeeks))
		sources := append(activitySources(h.activities), h.windowSource(len(restWeeks)*7))
		conf := float64(len(restWeeks)) / 4
		out.RestDayFrequency = newInferred(round(freq, 2), conf, sources, h.asOf)

		streak := 0
		for _, n := range restWeeks {
			if float64(n) >= p.RestDaysPerWeekFloor {
				break
			}
			streak++
		}
		out.LowRestWeeks = newInferred(streak, conf, sources, h.asOf)
	}

	return out, nil
}

// restDaysByWeek counts days without any activity per week, newest first.
func restDaysByWeek(h history, weeks int) []int {
	active := h.activeDays()
	out := make([]int, weeks)
	for w := 0; w < weeks; w++ {
		rest := 0
		for d := w * 7; d < w*7+7; d++ {
			if _, ok := active[d]; !ok {
				rest++
			}
		}
		out[w] = rest
	}
	return out
}
