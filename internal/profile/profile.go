// Package profile holds the runner's slow-changing declared profile.
package profile

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"runplan/internal/inference"
	"runplan/internal/templates"
	"runplan/internal/validation"
)

// Day is a day of the training week, Monday = 1 through Sunday = 7.
type Day int

const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var (
	dayNames     = []string{"", "mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	fullDayNames = []string{"", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

func (d Day) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("day(%d)", int(d))
	}
	return dayNames[d]
}

// ParseDay accepts three-letter or full English day names.
func ParseDay(value string) (Day, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for i := 1; i < len(dayNames); i++ {
		if v == dayNames[i] || v == fullDayNames[i] {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("invalid day %q", value)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(text []byte) error {
	v, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// AllDays returns Monday through Sunday.
func AllDays() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// RunnerSnapshot is the runner's declared profile. It is passed read-only
// into plan generation and frozen into the generated plan.
type RunnerSnapshot struct {
	Goal              templates.GoalType   `json:"goal"`
	EventDate         *time.Time           `json:"event_date,omitempty"`
	Experience        templates.Experience `json:"experience"`
	InjuryHistory     []string             `json:"injury_history,omitempty"`
	PushesThroughPain bool                 `json:"pushes_through_pain"`
	AvailableDays     []Day                `json:"available_days"`
	RestDaysPerWeek   int                  `json:"rest_days_per_week"`
}

// HasInjuryHistory reports whether any injury was declared.
func (s RunnerSnapshot) HasInjuryHistory() bool {
	return len(s.InjuryHistory) > 0
}

// Declared returns the flags the inference engine folds into injury risk.
func (s RunnerSnapshot) Declared() inference.Declared {
	return inference.Declared{
		InjuryHistory:     s.HasInjuryHistory(),
		PushesThroughPain: s.PushesThroughPain,
	}
}

// MinRestDays is the larger of the declared preference and the days the
// runner is unavailable. No declared availability means every day.
func (s RunnerSnapshot) MinRestDays() int {
	rest := 0
	if len(s.AvailableDays) > 0 {
		rest = 7 - len(s.AvailableDays)
	}
	if s.RestDaysPerWeek > rest {
		rest = s.RestDaysPerWeek
	}
	return rest
}

// WeeksUntilEvent counts whole weeks from start to the event date, rounding
// up. It returns 0 when no event date is set or the event is not ahead.
func (s RunnerSnapshot) WeeksUntilEvent(start time.Time) int {
	if s.EventDate == nil {
		return 0
	}
	days := int(s.EventDate.Sub(start).Hours() / 24)
	if days <= 0 {
		return 0
	}
	return (days + 6) / 7
}

// Copy returns a deep copy.
func (s RunnerSnapshot) Copy() RunnerSnapshot {
	out := s
	if s.EventDate != nil {
		d := *s.EventDate
		out.EventDate = &d
	}
	out.InjuryHistory = append([]string(nil), s.InjuryHistory...)
	out.AvailableDays = append([]Day(nil), s.AvailableDays...)
	return out
}

type rawSnapshot struct {
	Goal              string   `yaml:"goal"`
	EventDate         string   `yaml:"event_date"`
	Experience        string   `yaml:"experience"`
	InjuryHistory     []string `yaml:"injury_history"`
	PushesThroughPain bool     `yaml:"pushes_through_pain"`
	AvailableDays     []string `yaml:"available_days"`
	RestDaysPerWeek   *int     `yaml:"rest_days_per_week"`
}

// Parse decodes and validates a YAML profile.
func Parse(data []byte, source string) (RunnerSnapshot, error) {
	var raw rawSnapshot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return RunnerSnapshot{}, validation.Errors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}

	var errs validation.Errors
	var s RunnerSnapshot

	goal, err := templates.ParseGoal(raw.Goal)
	if err != nil {
		errs.Add(source, "goal", "%v", err)
	}
	s.Goal = goal

	exp, err := templates.ParseExperience(raw.Experience)
	if err != nil {
		errs.Add(source, "experience", "%v", err)
	}
	s.Experience = exp

	if strings.TrimSpace(raw.EventDate) != "" {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(raw.EventDate))
		if err != nil {
			errs.Add(source, "event_date", "must be YYYY-MM-DD")
		} else {
			s.EventDate = &d
		}
	}

	for i, inj := range raw.InjuryHistory {
		inj = strings.TrimSpace(inj)
		if inj == "" {
			errs.Add(source, fmt.Sprintf("injury_history[%d]", i), "entries cannot be empty")
			continue
		}
		s.InjuryHistory = append(s.InjuryHistory, inj)
	}
	s.PushesThroughPain = raw.PushesThroughPain

	if len(raw.AvailableDays) == 0 {
		s.AvailableDays = AllDays()
	}
	seen := make(map[Day]struct{})
	for i, name := range raw.AvailableDays {
		d, err := ParseDay(name)
		if err != nil {
			errs.Add(source, fmt.Sprintf("available_days[%d]", i), "%v", err)
			continue
		}
		if _, dup := seen[d]; dup {
			errs.Add(source, fmt.Sprintf("available_days[%d]", i), "duplicate day %s", d)
			continue
		}
		seen[d] = struct{}{}
		s.AvailableDays = append(s.AvailableDays, d)
	}
	sort.Slice(s.AvailableDays, func(i, j int) bool { return s.AvailableDays[i] < s.AvailableDays[j] })

	s.RestDaysPerWeek = 1
	if raw.RestDaysPerWeek != nil {
		s.RestDaysPerWeek = *raw.RestDaysPerWeek
		if s.RestDaysPerWeek < 0 || s.RestDaysPerWeek > 6 {
			errs.Add(source, "rest_days_per_week", "must be within 0..6")
		}
	}
	if len(errs) == 0 && 7-s.MinRestDays() < 1 {
		errs.Add(source, "available_days", "leaves no day to run")
	}

	if len(errs) > 0 {
		return RunnerSnapshot{}, errs
	}
	return s, nil
}

// Load reads and validates a profile file.
func Load(path string) (RunnerSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunnerSnapshot{}, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data, path)
}
