package inference

import (
	"time"

	"runplan/internal/activity"
)

const (
	freshDays = 3
	staleDays = 30
)

// stalenessConfidence is 1 for fresh readings and falls to 0 at staleDays.
func stalenessConfidence(age int) float64 {
	if age <= freshDays {
		return 1
	}
	if age >= staleDays {
		return 0
	}
	return float64(staleDays-age) / float64(staleDays-freshDays)
}

type reading struct {
	id    string
	at    time.Time
	value float64
}

func latest(readings []reading) (reading, bool) {
	var best reading
	found := false
	for _, r := range readings {
		if !found || r.at.After(best.at) || (r.at.Equal(best.at) && r.id > best.id) {
			best = r
			found = true
		}
	}
	return best, found
}

func (h history) biometric(readings []reading, source string) *Inferred[float64] {
	r, ok := latest(readings)
	if !ok {
		return nil
	}
	age := h.daysAgo(r.at)
	conf := stalenessConfidence(age)
	if conf == 0 {
		return nil
	}
	return newInferred(round(r.value, 2), conf, []string{source + ":" + r.id}, h.asOf)
}

func computeBiometrics(h history) Biometrics {
	var resting, hrv, weight, sleep []reading
	for _, d := range h.daily {
		if d.RestingHR > 0 {
			resting = append(resting, reading{id: d.ID, at: d.Date, value: d.RestingHR})
		}
		if d.SleepHours > 0 {
			sleep = append(sleep, reading{id: d.ID, at: d.Date, value: d.SleepHours})
		}
	}
	var bodyResting []reading
	for _, b := range h.body {
		r := reading{id: b.ID, at: b.Timestamp, value: b.Value}
		switch b.Kind {
		case activity.BodyWeight:
			weight = append(weight, r)
		case activity.BodyHRV:
			hrv = append(hrv, r)
		case activity.BodyRestingHR:
			bodyResting = append(bodyResting, r)
		}
	}

	var out Biometrics
	out.RestingHR = h.biometric(resting, "daily")
	if body := h.biometric(bodyResting, "body"); body != nil {
		if out.RestingHR == nil || body.Confidence > out.RestingHR.Confidence {
			out.RestingHR = body
		}
	}
	out.HRV = h.biometric(hrv, "body")
	out.Weight = h.biometric(weight, "body")
	out.SleepHours = h.biometric(sleep, "daily")
	return out
}
