package inference

import (
	"math"
)

// Declared carries the runner-declared flags that feed the risk model.
type Declared struct {
	InjuryHistory     bool
	PushesThroughPain bool
}

type riskFactor struct {
	name  string
	level RiskLevel
}

// computeInjuryRisk combines independent factors. The overall level is the
// most severe factor so one severe signal is never averaged away.
func computeInjuryRisk(h history, patterns RecentPatterns, declared Declared, p Params) Inferred[InjuryRisk] {
	var factors []riskFactor
	var sources []string
	var dataConf float64

	weeks := h.weeksOfRunData()
	var ramp float64
	if weeks >= 2 {
		volumes := h.weeklyRunVolumes(2)
		if volumes[1] > 0 {
			ramp = (volumes[0] - volumes[1]) / volumes[1] * 100
		}
		dataConf = math.Min(1, float64(weeks)/4)
		sources = append(sources, h.runSources()...)
		sources = append(sources, h.windowSource(14))
	}
	rampFactor := false
	if ramp > p.RampThresholdPercent {
		level := RiskModerate
		if ramp > 2*p.RampThresholdPercent {
			level = RiskHigh
		}
		factors = append(factors, riskFactor{name: FactorRampRate, level: level})
		rampFactor = true
	}

	if c := patterns.VolumeConsistency; c != nil && c.Value > p.ErraticCVPercent {
		factors = append(factors, riskFactor{name: FactorVolumeVariability, level: RiskModerate})
		sources = append(sources, c.InferredFrom...)
	}

	if r := patterns.RestDayFrequency; r != nil && r.Value < p.RestDaysPerWeekFloor {
		level := RiskModerate
		if lw := patterns.LowRestWeeks; lw != nil && lw.Value >= 3 {
			level = RiskHigh
		}
		factors = append(factors, riskFactor{name: FactorLowRestFrequency, level: level})
		sources = append(sources, r.InferredFrom...)
	}

	if declared.InjuryHistory {
		level := RiskModerate
		if rampFactor {
			level = RiskHigh
		}
		factors = append(factors, riskFactor{name: FactorInjuryHistory, level: level})
		sources = append(sources, "profile:injury_history")
	}
	if declared.PushesThroughPain {
		factors = append(factors, riskFactor{name: FactorPushesThroughPain, level: RiskModerate})
		sources = append(sources, "profile:recovery_tendency")
	}

	level := RiskLow
	names := make([]string, 0, len(factors))
	for _, f := range factors {
		if f.level.Rank() > level.Rank() {
			level = f.level
		}
		names = append(names, f.name)
	}

	conf := dataConf
	if (declared.InjuryHistory || declared.PushesThroughPain) && conf < 0.5 {
		conf = 0.5
	}
	value := InjuryRisk{
		Level:               level,
		RampRatePercent:     round(ramp, 2),
		ContributingFactors: names,
	}
	return *newInferred(value, conf, sources, h.asOf)
}
