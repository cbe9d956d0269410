package inference

import "fmt"

// Params are the tunable constants of the inference engine.
type Params struct {
	AcuteTimeConstantDays    float64
	ChronicTimeConstantDays  float64
	RampThresholdPercent     float64
	ErraticCVPercent         float64
	RestDaysPerWeekFloor     float64
	AerobicThresholdFraction float64
	HistoryDays              int
	DefaultIntensity         float64
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		AcuteTimeConstantDays:    7,
		ChronicTimeConstantDays:  42,
		RampThresholdPercent:     10,
		ErraticCVPercent:         40,
		RestDaysPerWeekFloor:     1,
		AerobicThresholdFraction: 0.8,
		HistoryDays:              180,
		DefaultIntensity:         0.7,
	}
}

// Validate rejects tunings the engine cannot compute with.
func (p Params) Validate() error {
	if p.AcuteTimeConstantDays <= 0 {
		return fmt.Errorf("acute time constant must be positive")
	}
	if p.ChronicTimeConstantDays <= p.AcuteTimeConstantDays {
		return fmt.Errorf("chronic time constant must exceed acute time constant")
	}
	if p.RampThresholdPercent <= 0 {
		return fmt.Errorf("ramp threshold must be positive")
	}
	if p.ErraticCVPercent <= 0 {
		return fmt.Errorf("erratic cv threshold must be positive")
	}
	if p.RestDaysPerWeekFloor < 0 || p.RestDaysPerWeekFloor > 7 {
		return fmt.Errorf("rest day floor must be within 0..7")
	}
	if p.AerobicThresholdFraction <= 0 || p.AerobicThresholdFraction >= 1 {
		return fmt.Errorf("aerobic threshold fraction must be within (0,1)")
	}
	if p.HistoryDays < 28 {
		return fmt.Errorf("history window must cover at least 28 days")
	}
	if p.DefaultIntensity <= 0 || p.DefaultIntensity > 1 {
		return fmt.Errorf("default intensity must be within (0,1]")
	}
	return nil
}
