// Package config loads engine tunables: built-in defaults, overlaid by an
// optional YAML file, overlaid by RUNPLAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"runplan/internal/inference"
	"runplan/internal/planner"
)

// EnvPrefix prefixes every environment override, e.g.
// RUNPLAN_INFERENCE_RAMP_THRESHOLD_PERCENT.
const EnvPrefix = "RUNPLAN"

// Config holds every tunable.
type Config struct {
	Inference InferenceConfig `yaml:"inference" mapstructure:"inference"`
	Planner   PlannerConfig   `yaml:"planner" mapstructure:"planner"`
}

// InferenceConfig mirrors inference.Params.
type InferenceConfig struct {
	AcuteTimeConstantDays    float64 `yaml:"acute_time_constant_days" mapstructure:"acute_time_constant_days"`
	ChronicTimeConstantDays  float64 `yaml:"chronic_time_constant_days" mapstructure:"chronic_time_constant_days"`
	RampThresholdPercent     float64 `yaml:"ramp_threshold_percent" mapstructure:"ramp_threshold_percent"`
	ErraticCVPercent         float64 `yaml:"erratic_cv_percent" mapstructure:"erratic_cv_percent"`
	RestDaysPerWeekFloor     float64 `yaml:"rest_days_per_week_floor" mapstructure:"rest_days_per_week_floor"`
	AerobicThresholdFraction float64 `yaml:"aerobic_threshold_fraction" mapstructure:"aerobic_threshold_fraction"`
	HistoryDays              int     `yaml:"history_days" mapstructure:"history_days"`
	DefaultIntensity         float64 `yaml:"default_intensity" mapstructure:"default_intensity"`
}

// PlannerConfig mirrors planner.Options.
type PlannerConfig struct {
	MinVolumeConfidence  float64 `yaml:"min_volume_confidence" mapstructure:"min_volume_confidence"`
	MinDataQuality       float64 `yaml:"min_data_quality" mapstructure:"min_data_quality"`
	MaxSafeguardAttempts int     `yaml:"max_safeguard_attempts" mapstructure:"max_safeguard_attempts"`
	BlockShrinkFactor    float64 `yaml:"block_shrink_factor" mapstructure:"block_shrink_factor"`
}

// Default returns the stock configuration.
func Default() *Config {
	p := inference.DefaultParams()
	o := planner.DefaultOptions()
	return &Config{
		Inference: InferenceConfig{
			AcuteTimeConstantDays:    p.AcuteTimeConstantDays,
			ChronicTimeConstantDays:  p.ChronicTimeConstantDays,
			RampThresholdPercent:     p.RampThresholdPercent,
			ErraticCVPercent:         p.ErraticCVPercent,
			RestDaysPerWeekFloor:     p.RestDaysPerWeekFloor,
			AerobicThresholdFraction: p.AerobicThresholdFraction,
			HistoryDays:              p.HistoryDays,
			DefaultIntensity:         p.DefaultIntensity,
		},
		Planner: PlannerConfig{
			MinVolumeConfidence:  o.MinVolumeConfidence,
			MinDataQuality:       o.MinDataQuality,
			MaxSafeguardAttempts: o.MaxSafeguardAttempts,
			BlockShrinkFactor:    o.BlockShrinkFactor,
		},
	}
}

// InferenceParams converts the inference section.
func (c *Config) InferenceParams() inference.Params {
	return inference.Params{
		AcuteTimeConstantDays:    c.Inference.AcuteTimeConstantDays,
		ChronicTimeConstantDays:  c.Inference.ChronicTimeConstantDays,
		RampThresholdPercent:     c.Inference.RampThresholdPercent,
		ErraticCVPercent:         c.Inference.ErraticCVPercent,
		RestDaysPerWeekFloor:     c.Inference.RestDaysPerWeekFloor,
		AerobicThresholdFraction: c.Inference.AerobicThresholdFraction,
		HistoryDays:              c.Inference.HistoryDays,
		DefaultIntensity:         c.Inference.DefaultIntensity,
	}
}

// PlannerOptions converts the planner section.
func (c *Config) PlannerOptions() planner.Options {
	return planner.Options{
		MinVolumeConfidence:  c.Planner.MinVolumeConfidence,
		MinDataQuality:       c.Planner.MinDataQuality,
		MaxSafeguardAttempts: c.Planner.MaxSafeguardAttempts,
		BlockShrinkFactor:    c.Planner.BlockShrinkFactor,
	}
}

// Validate rejects tunings the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.InferenceParams().Validate(); err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	if err := c.PlannerOptions().Validate(); err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	return nil
}

// Load builds the configuration. A missing file at path is not an error;
// an empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides are honoured
// even when the file omits them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("inference.acute_time_constant_days", cfg.Inference.AcuteTimeConstantDays)
	v.SetDefault("inference.chronic_time_constant_days", cfg.Inference.ChronicTimeConstantDays)
	v.SetDefault("inference.ramp_threshold_percent", cfg.Inference.RampThresholdPercent)
	v.SetDefault("inference.erratic_cv_percent", cfg.Inference.ErraticCVPercent)
	v.SetDefault("inference.rest_days_per_week_floor", cfg.Inference.RestDaysPerWeekFloor)
	v.SetDefault("inference.aerobic_threshold_fraction", cfg.Inference.AerobicThresholdFraction)
	v.SetDefault("inference.history_days", cfg.Inference.HistoryDays)
	v.SetDefault("inference.default_intensity", cfg.Inference.DefaultIntensity)
	v.SetDefault("planner.min_volume_confidence", cfg.Planner.MinVolumeConfidence)
	v.SetDefault("planner.min_data_quality", cfg.Planner.MinDataQuality)
	v.SetDefault("planner.max_safeguard_attempts", cfg.Planner.MaxSafeguardAttempts)
	v.SetDefault("planner.block_shrink_factor", cfg.Planner.BlockShrinkFactor)
}

// DefaultYAML is the commented config written by `runplan init`.
const DefaultYAML = `# runplan engine tunables. Every key may be overridden with an environment
# variable: RUNPLAN_<SECTION>_<KEY>, e.g. RUNPLAN_INFERENCE_RAMP_THRESHOLD_PERCENT.
inference:
  acute_time_constant_days: 7
  chronic_time_constant_days: 42
  ramp_threshold_percent: 10
  erratic_cv_percent: 40
  rest_days_per_week_floor: 1
  aerobic_threshold_fraction: 0.8
  history_days: 180
  default_intensity: 0.7
planner:
  min_volume_confidence: 0.5
  min_data_quality: 0.3
  max_safeguard_attempts: 3
  block_shrink_factor: 0.5
`

// WriteDefault writes DefaultYAML to path.
func WriteDefault(path string) error {
	return os.WriteFile(path, []byte(DefaultYAML), 0o644)
}
