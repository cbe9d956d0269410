package planner

import (
	"fmt"
	"math"
	"sort"

	"runplan/internal/decision"
	"runplan/internal/profile"
	"runplan/internal/safeguards"
	"runplan/internal/templates"
)

const (
	keyWeight  = 1.2
	easyWeight = 1.0
)

// spreadDays picks n of the available days as evenly as possible, always
// keeping the last available day for the long run.
func spreadDays(avail []profile.Day, n int) []profile.Day {
	days := make([]profile.Day, len(avail))
	copy(days, avail)
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	if n >= len(days) {
		return days
	}
	out := make([]profile.Day, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, days[len(days)-1-i*len(days)/n])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// adjacent reports whether two days fall back to back, Sunday to Monday
// included.
func adjacent(a, b profile.Day) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d == 1 || d == 6
}

// placeWeek lays the week's runs onto days. The long run takes the last run
// day; the other key sessions take the earliest days not next to another key
// session. A key session with no such day is demoted to an easy run.
func (b *builder) placeWeek(week int, p safeguards.WeekProposal, keyIntensity float64) ([]PlannedSession, float64) {
	avail := b.snapshot.AvailableDays
	if len(avail) == 0 {
		avail = profile.AllDays()
	}
	runDays := 7 - p.RestDays
	if runDays > len(avail) {
		runDays = len(avail)
	}
	if runDays < 1 {
		runDays = 1
	}
	days := spreadDays(avail, runDays)

	keyCount := p.KeySessions
	if keyCount > len(days) {
		keyCount = len(days)
	}
	types := make(map[profile.Day]templates.SessionType, len(days))
	hasLong := false
	var others []templates.SessionType
	for _, t := range b.tmpl.Weekly.KeySessionTypes {
		if t == templates.SessionLongRun {
			hasLong = true
			continue
		}
		others = append(others, t)
	}

	var keyDays []profile.Day
	longDay := days[len(days)-1]
	want := keyCount
	if hasLong && keyCount > 0 {
		types[longDay] = templates.SessionLongRun
		keyDays = append(keyDays, longDay)
		want--
	}
	for i := 0; i < want; i++ {
		if len(others) == 0 {
			break
		}
		t := others[i%len(others)]
		placed := false
		for _, d := range days {
			if _, taken := types[d]; taken {
				continue
			}
			clash := false
			for _, k := range keyDays {
				if adjacent(d, k) {
					clash = true
					break
				}
			}
			if clash {
				continue
			}
			types[d] = t
			keyDays = append(keyDays, d)
			placed = true
			break
		}
		if !placed {
			b.record(decision.Decision{
				Stage:       StagePlacement,
				Week:        week,
				Kind:        decision.KindOverride,
				Question:    fmt.Sprintf("week %d %s placement", week, t),
				ChosenValue: "demoted to easy run",
				Rationale:   "no run day left that is not next to another key session",
			})
		}
	}

	longKm := 0.0
	if _, ok := types[longDay]; ok {
		longKm = math.Min(p.LongRunKm, p.VolumeKm)
		if len(days) == 1 {
			longKm = p.VolumeKm
		}
	}

	remaining := p.VolumeKm - longKm
	var weights float64
	for _, d := range days {
		if d == longDay && longKm > 0 {
			continue
		}
		if _, key := types[d]; key {
			weights += keyWeight
		} else {
			weights += easyWeight
		}
	}

	sessions := make([]PlannedSession, 0, len(days))
	var assigned float64
	for i, d := range days {
		t, isKey := types[d]
		if !isKey {
			t = templates.SessionEasy
		}
		var dist float64
		switch {
		case t == templates.SessionLongRun:
			dist = round2(longKm)
		case i == lastFiller(days, longDay, longKm):
			dist = math.Max(round2(p.VolumeKm-longKm-assigned), 0)
		default:
			w := easyWeight
			if isKey {
				w = keyWeight
			}
			dist = round1(remaining * w / weights)
			assigned += dist
		}
		sessions = append(sessions, PlannedSession{
			Week:              week,
			DayOfWeek:         d,
			Date:              b.dateOf(week, d),
			SessionType:       t,
			IsKey:             isKey,
			DistanceKm:        dist,
			StructureSegments: segmentsFor(t, dist, p.EasyIntensity, keyIntensity),
		})
	}
	return sessions, round2(longKm)
}

// lastFiller is the index of the final non-long-run session, which absorbs
// rounding so the week sums to its target.
func lastFiller(days []profile.Day, longDay profile.Day, longKm float64) int {
	for i := len(days) - 1; i >= 0; i-- {
		if days[i] == longDay && longKm > 0 {
			continue
		}
		return i
	}
	return -1
}

func segmentsFor(t templates.SessionType, dist, easy, key float64) []Segment {
	recovery := round2(math.Max(easy-0.05, 0.5))
	switch t {
	case templates.SessionTempo, templates.SessionMarathonPace:
		wu := warmupKm(dist)
		target := key
		if t == templates.SessionMarathonPace {
			target = round2((easy + key) / 2)
		}
		return []Segment{
			{Kind: SegmentWarmup, DistanceKm: wu, TargetIntensity: easy},
			{Kind: SegmentMain, DistanceKm: round2(dist - 2*wu), TargetIntensity: target},
			{Kind: SegmentCooldown, DistanceKm: wu, TargetIntensity: easy},
		}
	case templates.SessionIntervals:
		wu := warmupKm(dist)
		work := dist - 2*wu
		reps := int(work / 1.2)
		if reps < 3 {
			reps = 3
		}
		if reps > 10 {
			reps = 10
		}
		return []Segment{
			{Kind: SegmentWarmup, DistanceKm: wu, TargetIntensity: easy},
			{Kind: SegmentInterval, Repeats: reps, DistanceKm: round2(work * 0.6 / float64(reps)), TargetIntensity: key},
			{Kind: SegmentRecovery, Repeats: reps, DurationMin: 2, TargetIntensity: recovery},
			{Kind: SegmentCooldown, DistanceKm: wu, TargetIntensity: easy},
		}
	case templates.SessionHills:
		wu := warmupKm(dist)
		return []Segment{
			{Kind: SegmentWarmup, DistanceKm: wu, TargetIntensity: easy},
			{Kind: SegmentInterval, Repeats: 8, DurationMin: 1, TargetIntensity: key},
			{Kind: SegmentRecovery, Repeats: 8, DurationMin: 2, TargetIntensity: recovery},
			{Kind: SegmentCooldown, DistanceKm: round2(math.Max(dist-wu, 0)), TargetIntensity: easy},
		}
	case templates.SessionRecovery:
		return []Segment{{Kind: SegmentMain, DistanceKm: dist, TargetIntensity: recovery}}
	default:
		return []Segment{{Kind: SegmentMain, DistanceKm: dist, TargetIntensity: easy}}
	}
}

func warmupKm(dist float64) float64 {
	if dist < 6 {
		return math.Min(1, round2(dist/4))
	}
	return 2
}
