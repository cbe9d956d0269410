package safeguards

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"runplan/internal/validation"
)

// RuleSetError reports a structurally invalid rule set.
type RuleSetError struct {
	Source   string
	Problems validation.Errors
}

func (e *RuleSetError) Error() string {
	return fmt.Sprintf("invalid rule set %s:\n%s", e.Source, e.Problems.Error())
}

func (e *RuleSetError) Unwrap() error {
	return e.Problems
}

type ruleSetFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules is the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "sg01-injury-history-ramp",
			Kind:        KindInjuryHistoryRamp,
			Severity:    SeverityBlock,
			Description: "Reject week-over-week volume increases beyond 10% when injury history is present",
			Params:      map[string]float64{"max_increase_percent": 10},
		},
		{
			ID:          "sg02-ramp-cap",
			Kind:        KindRampCap,
			Severity:    SeverityCap,
			Description: "Cap week-over-week volume increase",
			Params:      map[string]float64{"max_increase_percent": 10},
		},
		{
			ID:          "sg03-min-rest-days",
			Kind:        KindMinRestDays,
			Severity:    SeverityCap,
			Description: "Force a second rest day after 3+ weeks with under one rest day per week",
			Params:      map[string]float64{"min_rest_days": 2, "low_rest_weeks": 3},
		},
		{
			ID:          "sg04-high-risk-key-sessions",
			Kind:        KindHighRiskKeySessions,
			Severity:    SeverityCap,
			Description: "Limit key sessions while injury risk is high",
			Params:      map[string]float64{"max_key_sessions": 2},
		},
		{
			ID:          "sg05-easy-intensity-cap",
			Kind:        KindEasyIntensityCap,
			Severity:    SeverityCap,
			Description: "Cap easy-run intensity when recent easy runs drifted above the aerobic threshold",
			Params:      map[string]float64{"max_share_above_threshold": 0.3, "max_easy_intensity": 0.7},
		},
		{
			ID:          "sg06-long-run-share",
			Kind:        KindLongRunShare,
			Severity:    SeverityCap,
			Description: "Keep the long run within a share of weekly volume",
			Params:      map[string]float64{"max_share": 0.35},
		},
		{
			ID:          "sg07-low-data-quality",
			Kind:        KindLowDataQuality,
			Severity:    SeverityWarn,
			Description: "Flag plans built on sparse or stale data",
			Params:      map[string]float64{"min_score": 0.4},
		},
	}
}

// Check validates a rule set. Unknown kinds, disallowed severities, unknown
// params and duplicate IDs are rejected.
func Check(rules []Rule, source string) error {
	var errs validation.Errors
	if len(rules) == 0 {
		errs.Add(source, "rules", "must contain at least one rule")
	}
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		path := fmt.Sprintf("rules[%d]", i)
		if strings.TrimSpace(r.ID) == "" {
			errs.Add(source, path+".id", "id is required")
		} else if _, dup := seen[r.ID]; dup {
			errs.Add(source, path+".id", "duplicate rule id %q", r.ID)
		}
		seen[r.ID] = struct{}{}

		spec, ok := kindSpecs[r.Kind]
		if !ok {
			errs.Add(source, path+".kind", "unknown rule kind %q", r.Kind)
			continue
		}
		allowed := false
		for _, s := range spec.severities {
			if s == r.Severity {
				allowed = true
			}
		}
		if !allowed {
			errs.Add(source, path+".severity", "severity %q not allowed for %s", r.Severity, r.Kind)
		}
		names := make([]string, 0, len(r.Params))
		for name := range r.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, known := kindDefaults[r.Kind][name]; !known {
				errs.Add(source, path+".params."+name, "unknown param for %s", r.Kind)
				continue
			}
			if r.Params[name] < 0 {
				errs.Add(source, path+".params."+name, "must not be negative")
			}
		}
	}
	if len(errs) > 0 {
		return &RuleSetError{Source: source, Problems: errs}
	}
	return nil
}

// ParseRules decodes and checks a YAML rule set.
func ParseRules(data []byte, source string) ([]Rule, error) {
	var f ruleSetFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, &RuleSetError{Source: source, Problems: validation.Errors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}}
	}
	for i := range f.Rules {
		f.Rules[i].ID = strings.TrimSpace(f.Rules[i].ID)
	}
	if err := Check(f.Rules, source); err != nil {
		return nil, err
	}
	return f.Rules, nil
}

// LoadRules reads a rule set file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data, path)
}

// ExportYAML renders rules in the file format ParseRules reads, with every
// param spelled out.
func ExportYAML(rules []Rule) ([]byte, error) {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		full := r
		full.Params = make(map[string]float64)
		for name := range kindDefaults[r.Kind] {
			full.Params[name] = r.param(name)
		}
		out = append(out, full)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ruleSetFile{Rules: out}); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	return buf.Bytes(), nil
}
