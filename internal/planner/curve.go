package planner

import (
	"math"

	"runplan/internal/templates"
)

// tagPhases walks the phases in order, giving each floor(percent * weeks)
// weeks. The final phase absorbs the remainder so every week is covered
// exactly once. Phases that round to zero weeks are dropped.
func tagPhases(phases []templates.Phase, weeks int) []PhaseSpan {
	spans := make([]PhaseSpan, 0, len(phases))
	next := 1
	for i, p := range phases {
		n := int(math.Floor(p.PercentOfPlan*float64(weeks) + 1e-9))
		if i == len(phases)-1 {
			n = weeks - next + 1
		}
		if n <= 0 {
			continue
		}
		spans = append(spans, PhaseSpan{
			Name:         p.Name,
			Focus:        p.Focus,
			StartWeek:    next,
			EndWeek:      next + n - 1,
			IntensityMin: p.IntensityMin,
			IntensityMax: p.IntensityMax,
		})
		next += n
	}
	return spans
}

func spanFor(spans []PhaseSpan, week int) PhaseSpan {
	for _, s := range spans {
		if week >= s.StartWeek && week <= s.EndWeek {
			return s
		}
	}
	return PhaseSpan{}
}

// resolvePeakWeek maps a template peak index onto a plan of weeks.
// Positive indexes are 1-based; zero and negative count back from the final
// week. The result is clamped so the peak precedes the taper.
func resolvePeakWeek(index, weeks, taperWeeks int) (week int, clamped bool) {
	raw := index
	if index <= 0 {
		raw = weeks + index
	}
	hi := weeks - taperWeeks
	if hi < 1 {
		hi = 1
	}
	week = raw
	if week < 1 {
		week = 1
	}
	if week > hi {
		week = hi
	}
	return week, week != raw
}

// curve is the unmodified template volume formula for one plan.
type curve struct {
	peak       float64
	startPct   float64
	peakWeek   int
	taperStart int
	taperWeeks int
	reduction  float64
}

func (c curve) inTaper(week int) bool {
	return c.taperWeeks > 0 && week >= c.taperStart
}

// taperFactor is the share of the peak kept in a taper week.
func (c curve) taperFactor(week int) float64 {
	k := week - c.taperStart + 1
	return 1 - c.reduction*float64(k)/float64(c.taperWeeks)
}

// volume rises linearly from startPct of peak in week 1 to the peak, holds,
// then steps down across the taper.
func (c curve) volume(week int) float64 {
	switch {
	case c.inTaper(week):
		return round2(c.peak * c.taperFactor(week))
	case week <= c.peakWeek:
		if c.peakWeek == 1 {
			return round2(c.peak)
		}
		start := c.peak * c.startPct
		return round2(start + (c.peak-start)*float64(week-1)/float64(c.peakWeek-1))
	default:
		return round2(c.peak)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func floor2(v float64) float64 {
	return math.Floor(v*100+1e-6) / 100
}
