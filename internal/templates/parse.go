package templates

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"runplan/internal/validation"
)

const phaseSumEpsilon = 1e-6

type rawTemplate struct {
	ID    string `yaml:"id"`
	Goal  string `yaml:"goal"`
	Name  string `yaml:"name"`
	Weeks struct {
		Min         int `yaml:"min"`
		Recommended int `yaml:"recommended"`
		Max         int `yaml:"max"`
	} `yaml:"weeks"`
	Phases    []rawPhase             `yaml:"phases"`
	Weekly    rawWeekly              `yaml:"weekly_structure"`
	Volume    rawVolume              `yaml:"volume"`
	Modifiers map[string]rawModifier `yaml:"experience_modifiers"`
}

type rawPhase struct {
	Name          string   `yaml:"name"`
	PercentOfPlan *float64 `yaml:"percent_of_plan"`
	Focus         string   `yaml:"focus"`
	Intensity     struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	} `yaml:"intensity"`
}

type rawWeekly struct {
	KeySessionCount int      `yaml:"key_session_count"`
	EasyRunCount    int      `yaml:"easy_run_count"`
	RestDayCount    int      `yaml:"rest_day_count"`
	KeySessionTypes []string `yaml:"key_session_types"`
}

type rawVolume struct {
	StartPercentOfPeak    float64 `yaml:"start_percent_of_peak"`
	PeakWeekIndex         int     `yaml:"peak_week_index"`
	TaperReductionPercent float64 `yaml:"taper_reduction_percent"`
	TaperWeeks            int     `yaml:"taper_weeks"`
	PeakGrowthFactor      float64 `yaml:"peak_growth_factor"`
	FallbackPeakKm        float64 `yaml:"fallback_peak_km"`
}

type rawModifier struct {
	VolumeMultiplier    float64 `yaml:"volume_multiplier"`
	IntensityMultiplier float64 `yaml:"intensity_multiplier"`
}

// ParseTemplate unmarshals and validates a YAML template document.
func ParseTemplate(data []byte, source string) (Template, error) {
	var raw rawTemplate
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return Template{}, validation.Errors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}
	return validateRawTemplate(raw, source)
}

func validateRawTemplate(raw rawTemplate, source string) (Template, error) {
	var errs validation.Errors

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		errs.Add(source, "id", "id is required")
	}
	goal, goalErr := ParseGoal(raw.Goal)
	if goalErr != nil {
		errs.Add(source, "goal", "%v", goalErr)
	}
	if strings.TrimSpace(raw.Name) == "" {
		errs.Add(source, "name", "name is required")
	}

	w := raw.Weeks
	if w.Min < 1 {
		errs.Add(source, "weeks.min", "must be at least 1")
	}
	if w.Recommended < w.Min || w.Recommended > w.Max {
		errs.Add(source, "weeks", "must satisfy min <= recommended <= max (got %d/%d/%d)", w.Min, w.Recommended, w.Max)
	}

	phases, phaseErrs := validatePhases(raw.Phases, source)
	errs = append(errs, phaseErrs...)

	weekly, weeklyErrs := validateWeekly(raw.Weekly, source)
	errs = append(errs, weeklyErrs...)

	volume, volumeErrs := validateVolume(raw.Volume, w.Min, source)
	errs = append(errs, volumeErrs...)

	modifiers := make(map[Experience]ExperienceModifier, len(raw.Modifiers))
	for key, m := range raw.Modifiers {
		exp, err := ParseExperience(key)
		if err != nil {
			errs.Add(source, "experience_modifiers."+key, "%v", err)
			continue
		}
		if m.VolumeMultiplier <= 0 || m.IntensityMultiplier <= 0 {
			errs.Add(source, "experience_modifiers."+key, "multipliers must be positive")
		}
		modifiers[exp] = ExperienceModifier{
			VolumeMultiplier:    m.VolumeMultiplier,
			IntensityMultiplier: m.IntensityMultiplier,
		}
	}
	for _, exp := range ExperienceLevels() {
		if _, ok := modifiers[exp]; !ok {
			errs.Add(source, "experience_modifiers", "missing modifier for %s", exp)
		}
	}

	if len(errs) > 0 {
		return Template{}, errs
	}
	return Template{
		ID:               id,
		Goal:             goal,
		Name:             strings.TrimSpace(raw.Name),
		MinWeeks:         w.Min,
		RecommendedWeeks: w.Recommended,
		MaxWeeks:         w.Max,
		Phases:           phases,
		Weekly:           weekly,
		Volume:           volume,
		Modifiers:        modifiers,
		Source:           source,
	}, nil
}

func validatePhases(raw []rawPhase, source string) ([]Phase, validation.Errors) {
	var errs validation.Errors
	if len(raw) == 0 {
		errs.Add(source, "phases", "must contain at least one phase")
		return nil, errs
	}
	var sum float64
	seen := make(map[string]struct{})
	phases := make([]Phase, 0, len(raw))
	for i, p := range raw {
		path := fmt.Sprintf("phases[%d]", i)
		name := strings.TrimSpace(p.Name)
		if name == "" {
			errs.Add(source, path+".name", "name is required")
		} else if _, dup := seen[name]; dup {
			errs.Add(source, path+".name", "duplicate phase %q", name)
		}
		seen[name] = struct{}{}

		var pct float64
		if p.PercentOfPlan == nil {
			errs.Add(source, path+".percent_of_plan", "percent_of_plan is required")
		} else {
			pct = *p.PercentOfPlan
			if pct <= 0 || pct > 1 {
				errs.Add(source, path+".percent_of_plan", "must be within (0, 1]")
			}
		}
		sum += pct

		if p.Intensity.Min <= 0 || p.Intensity.Max > 1 || p.Intensity.Min > p.Intensity.Max {
			errs.Add(source, path+".intensity", "must satisfy 0 < min <= max <= 1")
		}
		phases = append(phases, Phase{
			Name:          name,
			PercentOfPlan: pct,
			Focus:         strings.TrimSpace(p.Focus),
			IntensityMin:  p.Intensity.Min,
			IntensityMax:  p.Intensity.Max,
		})
	}
	if math.Abs(sum-1) > phaseSumEpsilon {
		errs.Add(source, "phases", "percent_of_plan must sum to 1.0 (got %.4f)", sum)
	}
	return phases, errs
}

func validateWeekly(raw rawWeekly, source string) (WeeklyStructure, validation.Errors) {
	var errs validation.Errors
	if raw.KeySessionCount < 0 || raw.EasyRunCount < 0 || raw.RestDayCount < 0 {
		errs.Add(source, "weekly_structure", "counts cannot be negative")
	}
	if raw.KeySessionCount+raw.EasyRunCount < 1 {
		errs.Add(source, "weekly_structure", "must schedule at least one run")
	}
	if total := raw.KeySessionCount + raw.EasyRunCount + raw.RestDayCount; total != 7 {
		errs.Add(source, "weekly_structure", "key, easy and rest days must total 7 (got %d)", total)
	}
	if raw.KeySessionCount > 0 && len(raw.KeySessionTypes) == 0 {
		errs.Add(source, "weekly_structure.key_session_types", "required when key_session_count > 0")
	}
	types := make([]SessionType, 0, len(raw.KeySessionTypes))
	for i, s := range raw.KeySessionTypes {
		st := SessionType(strings.TrimSpace(s))
		if _, ok := knownSessionTypes[st]; !ok {
			errs.Add(source, fmt.Sprintf("weekly_structure.key_session_types[%d]", i), "unknown session type %q", s)
		}
		types = append(types, st)
	}
	return WeeklyStructure{
		KeySessionCount: raw.KeySessionCount,
		EasyRunCount:    raw.EasyRunCount,
		RestDayCount:    raw.RestDayCount,
		KeySessionTypes: types,
	}, errs
}

func validateVolume(raw rawVolume, minWeeks int, source string) (VolumeGuidelines, validation.Errors) {
	var errs validation.Errors
	if raw.StartPercentOfPeak <= 0 || raw.StartPercentOfPeak > 100 {
		errs.Add(source, "volume.start_percent_of_peak", "must be within (0, 100]")
	}
	if raw.TaperReductionPercent < 0 || raw.TaperReductionPercent >= 100 {
		errs.Add(source, "volume.taper_reduction_percent", "must be within [0, 100)")
	}
	if raw.TaperWeeks < 0 || (minWeeks > 0 && raw.TaperWeeks >= minWeeks) {
		errs.Add(source, "volume.taper_weeks", "must be non-negative and shorter than the minimum plan")
	}
	if raw.PeakWeekIndex > 0 && raw.PeakWeekIndex > minWeeks-raw.TaperWeeks {
		errs.Add(source, "volume.peak_week_index", "must fall before the taper in the shortest plan")
	}
	if raw.PeakWeekIndex <= 0 && -raw.PeakWeekIndex >= minWeeks {
		errs.Add(source, "volume.peak_week_index", "reaches before week 1 in the shortest plan")
	}
	if raw.PeakGrowthFactor < 1 {
		errs.Add(source, "volume.peak_growth_factor", "must be at least 1")
	}
	if raw.FallbackPeakKm <= 0 {
		errs.Add(source, "volume.fallback_peak_km", "must be positive")
	}
	return VolumeGuidelines{
		StartPercentOfPeak:    raw.StartPercentOfPeak,
		PeakWeekIndex:         raw.PeakWeekIndex,
		TaperReductionPercent: raw.TaperReductionPercent,
		TaperWeeks:            raw.TaperWeeks,
		PeakGrowthFactor:      raw.PeakGrowthFactor,
		FallbackPeakKm:        raw.FallbackPeakKm,
	}, errs
}
