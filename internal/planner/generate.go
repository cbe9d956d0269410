package planner

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"runplan/internal/decision"
	"runplan/internal/inference"
	"runplan/internal/profile"
	"runplan/internal/safeguards"
	"runplan/internal/templates"
)

// Decision stages recorded by the generator.
const (
	StageTemplate  = "template"
	StageVolume    = "volume"
	StagePhases    = "phases"
	StageStructure = "structure"
	StageWeek      = "week"
	StagePlacement = "placement"
)

const (
	longRunShare     = 0.3
	longRunAnchorMax = 0.4
	easyIntensity    = 0.74
	blockedDecay     = 0.9
)

var planNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("runplan:generated-plan"))

// Generator turns a runner snapshot and inferred state into a plan. It holds
// only immutable configuration and may be shared between goroutines.
type Generator struct {
	registry *templates.Registry
	rules    []safeguards.Rule
	opts     Options
}

// NewGenerator validates rules and options up front so Generate only fails
// for reasons that depend on its inputs. A nil registry means the built-in
// templates.
func NewGenerator(registry *templates.Registry, rules []safeguards.Rule, opts Options) (*Generator, error) {
	if registry == nil {
		builtin, err := templates.Builtin()
		if err != nil {
			return nil, err
		}
		registry = builtin
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("planner options: %w", err)
	}
	if err := safeguards.Check(rules, "rules"); err != nil {
		return nil, err
	}
	owned := make([]safeguards.Rule, len(rules))
	for i, r := range rules {
		owned[i] = r
		if r.Params != nil {
			owned[i].Params = make(map[string]float64, len(r.Params))
			for k, v := range r.Params {
				owned[i].Params[k] = v
			}
		}
	}
	return &Generator{registry: registry, rules: owned, opts: opts}, nil
}

// Rules returns a copy of the rule set the generator enforces.
func (g *Generator) Rules() []safeguards.Rule {
	out := make([]safeguards.Rule, len(g.rules))
	copy(out, g.rules)
	return out
}

// Generate builds a plan for goal over durationWeeks. An empty goal falls
// back to the snapshot's goal and a non-positive duration to the template's
// recommended length. The result depends only on the arguments and the
// generator's configuration.
func (g *Generator) Generate(snapshot profile.RunnerSnapshot, state inference.RunnerState, goal templates.GoalType, durationWeeks int) (GeneratedPlan, error) {
	if goal == "" {
		goal = snapshot.Goal
	}
	if goal == "" {
		return GeneratedPlan{}, fmt.Errorf("goal is required")
	}
	tmpl, weeks, err := g.registry.Select(goal, durationWeeks)
	if err != nil {
		return GeneratedPlan{}, err
	}

	b := &builder{
		g:        g,
		tmpl:     tmpl,
		weeks:    weeks,
		snapshot: snapshot.Copy(),
		state:    state,
		mod:      tmpl.Modifier(snapshot.Experience),
	}
	if !state.AsOf.IsZero() {
		b.start = StartDate(state.AsOf)
	}

	b.selectTemplate(durationWeeks)
	b.estimatePeak()
	b.layoutPhases()
	b.chooseStructure()
	b.anchorLongRun()
	if err := b.planWeeks(); err != nil {
		return GeneratedPlan{}, err
	}

	plan := b.assemble()
	id, err := g.planID(b.snapshot, state, goal, weeks, tmpl.ID)
	if err != nil {
		return GeneratedPlan{}, err
	}
	plan.ID = id
	return plan, nil
}

type builder struct {
	g        *Generator
	tmpl     templates.Template
	weeks    int
	snapshot profile.RunnerSnapshot
	state    inference.RunnerState
	mod      templates.ExperienceModifier
	start    time.Time
	trail    decision.Trail

	rampBaseline float64
	curve        curve
	spans        []PhaseSpan
	restDays     int
	keySessions  int
	recentLong   float64

	weekPlans []WeekPlan
	sessions  []PlannedSession
}

func (b *builder) record(d decision.Decision) {
	b.trail.Append(d)
}

func (b *builder) selectTemplate(requested int) {
	rationale := fmt.Sprintf("goal %s maps to %s (%d-%d weeks)", b.tmpl.Goal, b.tmpl.Name, b.tmpl.MinWeeks, b.tmpl.MaxWeeks)
	if requested == 0 {
		rationale += fmt.Sprintf("; no duration requested, using recommended %d weeks", b.tmpl.RecommendedWeeks)
	}
	b.record(decision.Decision{
		Stage:       StageTemplate,
		Kind:        decision.KindSelection,
		Question:    "which template and duration",
		ChosenValue: fmt.Sprintf("%s, %d weeks", b.tmpl.ID, b.weeks),
		Rationale:   rationale,
	})

	exp := b.snapshot.Experience
	if exp == "" {
		exp = "unspecified"
	}
	b.record(decision.Decision{
		Stage:       StageTemplate,
		Kind:        decision.KindSelection,
		Question:    "which experience modifier",
		ChosenValue: fmt.Sprintf("volume x%.2f, intensity x%.2f", b.mod.VolumeMultiplier, b.mod.IntensityMultiplier),
		Rationale:   fmt.Sprintf("declared experience %s", exp),
	})
}

// estimatePeak derives the target peak from recent volume when it is
// trustworthy and otherwise falls back to the template default.
func (b *builder) estimatePeak() {
	minConf := b.g.opts.MinVolumeConfidence
	var samples []float64
	var used []string
	if v := b.state.RecentPatterns.Volume7d; v != nil && v.Confidence >= minConf && v.Value > 0 {
		samples = append(samples, v.Value)
		used = append(used, fmt.Sprintf("7-day volume %.1f km (confidence %.2f)", v.Value, v.Confidence))
	}
	if v := b.state.RecentPatterns.Volume28d; v != nil && v.Confidence >= minConf && v.Value > 0 {
		samples = append(samples, v.Value/4)
		used = append(used, fmt.Sprintf("28-day volume %.1f km / 4 (confidence %.2f)", v.Value, v.Confidence))
	}

	// Poor data quality discards the volume history entirely.
	dq, minDQ := b.state.DataQuality.Value, b.g.opts.MinDataQuality
	lowQuality := dq < minDQ

	vol := b.tmpl.Volume
	var peak float64
	if len(samples) == 0 || lowQuality {
		reason := fmt.Sprintf("no recent volume with confidence >= %.2f", minConf)
		if lowQuality {
			reason = fmt.Sprintf("data quality %.2f is below %.2f", dq, minDQ)
		}
		peak = round2(vol.FallbackPeakKm * b.mod.VolumeMultiplier)
		b.record(decision.Decision{
			Stage:       StageVolume,
			Kind:        decision.KindFallback,
			Question:    "what peak weekly volume",
			ChosenValue: fmt.Sprintf("%.2f km", peak),
			Rationale: fmt.Sprintf("%s; template default %.1f km x experience %.2f",
				reason, vol.FallbackPeakKm, b.mod.VolumeMultiplier),
		})
	} else {
		var sum float64
		for _, s := range samples {
			sum += s
		}
		baseline := sum / float64(len(samples))
		peak = round2(baseline * vol.PeakGrowthFactor * b.mod.VolumeMultiplier)
		b.rampBaseline = round2(samples[0])
		rationale := ""
		for i, u := range used {
			if i > 0 {
				rationale += ", "
			}
			rationale += u
		}
		b.record(decision.Decision{
			Stage:       StageVolume,
			Kind:        decision.KindComputed,
			Question:    "what peak weekly volume",
			ChosenValue: fmt.Sprintf("%.2f km", peak),
			Rationale: fmt.Sprintf("baseline %.2f km from %s; x growth %.2f x experience %.2f",
				baseline, rationale, vol.PeakGrowthFactor, b.mod.VolumeMultiplier),
		})
	}

	taper := vol.TaperWeeks
	if taper > b.weeks-1 {
		taper = b.weeks - 1
	}
	peakWeek, clamped := resolvePeakWeek(vol.PeakWeekIndex, b.weeks, taper)
	if clamped {
		b.record(decision.Decision{
			Stage:       StageVolume,
			Kind:        decision.KindOverride,
			Question:    "which week peaks",
			ChosenValue: fmt.Sprintf("week %d", peakWeek),
			Rationale:   fmt.Sprintf("template peak index %d falls outside weeks 1-%d before the taper", vol.PeakWeekIndex, b.weeks-taper),
		})
	}
	b.curve = curve{
		peak:       peak,
		startPct:   vol.StartPercentOfPeak / 100,
		peakWeek:   peakWeek,
		taperStart: b.weeks - taper + 1,
		taperWeeks: taper,
		reduction:  vol.TaperReductionPercent / 100,
	}
}

func (b *builder) layoutPhases() {
	b.spans = tagPhases(b.tmpl.Phases, b.weeks)
	summary := ""
	for i, s := range b.spans {
		if i > 0 {
			summary += ", "
		}
		summary += fmt.Sprintf("%s %d-%d", s.Name, s.StartWeek, s.EndWeek)
	}
	rationale := "each phase gets floor(share x weeks); the final phase takes the remainder"
	if len(b.spans) < len(b.tmpl.Phases) {
		rationale += fmt.Sprintf("; %d phase(s) too short for %d weeks were dropped", len(b.tmpl.Phases)-len(b.spans), b.weeks)
	}
	b.record(decision.Decision{
		Stage:       StagePhases,
		Kind:        decision.KindComputed,
		Question:    "how are weeks split into phases",
		ChosenValue: summary,
		Rationale:   rationale,
	})
}

// chooseStructure fixes rest days and key sessions for every week. Declared
// availability can only raise the rest count.
func (b *builder) chooseStructure() {
	weekly := b.tmpl.Weekly
	b.restDays = weekly.RestDayCount
	if need := b.snapshot.MinRestDays(); need > b.restDays {
		b.restDays = need
		b.record(decision.Decision{
			Stage:       StageStructure,
			Kind:        decision.KindOverride,
			Question:    "how many rest days per week",
			ChosenValue: fmt.Sprintf("%d", need),
			Rationale: fmt.Sprintf("template asks for %d; %d available day(s) and a preference of %d rest day(s) require %d",
				weekly.RestDayCount, len(b.snapshot.AvailableDays), b.snapshot.RestDaysPerWeek, need),
		})
	}
	runDays := 7 - b.restDays
	b.keySessions = weekly.KeySessionCount
	if b.keySessions > runDays {
		b.keySessions = runDays
		b.record(decision.Decision{
			Stage:       StageStructure,
			Kind:        decision.KindOverride,
			Question:    "how many key sessions per week",
			ChosenValue: fmt.Sprintf("%d", runDays),
			Rationale:   fmt.Sprintf("template asks for %d but only %d run day(s) remain", weekly.KeySessionCount, runDays),
		})
	}
}

func (b *builder) anchorLongRun() {
	lr := b.state.Paces.LongRunKm
	if lr == nil || lr.Confidence < b.g.opts.MinVolumeConfidence || lr.Value <= 0 {
		return
	}
	b.recentLong = lr.Value
	b.record(decision.Decision{
		Stage:       StageStructure,
		Kind:        decision.KindComputed,
		Question:    "how long is the weekly long run",
		ChosenValue: fmt.Sprintf("at least %.0f%% of weekly volume, up to recent %.1f km", longRunShare*100, lr.Value),
		Rationale: fmt.Sprintf("recent long run %.1f km (confidence %.2f) is kept while it stays under %.0f%% of the week",
			lr.Value, lr.Confidence, longRunAnchorMax*100),
	})
}

func (b *builder) longRunFor(volume float64) float64 {
	long := volume * longRunShare
	if b.recentLong > 0 {
		long = math.Max(long, math.Min(b.recentLong, volume*longRunAnchorMax))
	}
	return round2(long)
}

func (b *builder) planWeeks() error {
	prev := b.rampBaseline
	var realizedPeak float64
	for w := 1; w <= b.weeks; w++ {
		span := spanFor(b.spans, w)
		formula := b.curve.volume(w)
		taper := b.curve.inTaper(w)
		proposed := formula
		if taper {
			anchored := round2(realizedPeak * b.curve.taperFactor(w))
			if anchored != formula {
				b.record(decision.Decision{
					Stage:       StageWeek,
					Week:        w,
					Kind:        decision.KindOverride,
					Question:    fmt.Sprintf("week %d taper volume", w),
					ChosenValue: fmt.Sprintf("%.2f km", anchored),
					Rationale: fmt.Sprintf("taper scales the realized peak %.2f km by %.2f instead of the formula peak %.2f km",
						realizedPeak, b.curve.taperFactor(w), b.curve.peak),
				})
				proposed = anchored
			}
		}

		proposal := safeguards.WeekProposal{
			Week:             w,
			Phase:            span.Name,
			Taper:            taper,
			PreviousVolumeKm: prev,
			VolumeKm:         proposed,
			LongRunKm:        b.longRunFor(proposed),
			KeySessions:      b.keySessions,
			RestDays:         b.restDays,
			EasyIntensity:    round2(easyIntensity * b.mod.IntensityMultiplier),
		}
		res, validated, attempts, err := b.validateWeek(proposal)
		if err != nil {
			return err
		}
		final := res.Adjusted
		// A volume cap can apply after the long run was checked against the
		// larger volume, so its share is kept against the final volume.
		if final.VolumeKm < validated.VolumeKm && validated.VolumeKm > 0 {
			scaled := floor2(final.LongRunKm * final.VolumeKm / validated.VolumeKm)
			final.LongRunKm = math.Min(final.LongRunKm, math.Min(scaled, b.longRunFor(final.VolumeKm)))
		}

		keyIntensity := round2(math.Min(1, span.IntensityMax*b.mod.IntensityMultiplier))
		sessions, longKm := b.placeWeek(w, final, keyIntensity)
		keyCount := 0
		for _, s := range sessions {
			if s.IsKey {
				keyCount++
			}
		}
		b.sessions = append(b.sessions, sessions...)
		b.weekPlans = append(b.weekPlans, WeekPlan{
			Week:             w,
			Phase:            span.Name,
			StartDate:        b.dateOf(w, profile.Monday),
			Taper:            taper,
			FormulaVolumeKm:  formula,
			TargetVolumeKm:   final.VolumeKm,
			LongRunKm:        longKm,
			KeySessions:      keyCount,
			RestDays:         7 - len(sessions),
			EasyIntensity:    final.EasyIntensity,
			KeyIntensity:     keyIntensity,
			SafeguardOutcome: res.Outcome,
			Attempts:         attempts,
		})

		if !taper && final.VolumeKm > realizedPeak {
			realizedPeak = final.VolumeKm
		}
		prev = final.VolumeKm
	}
	return nil
}

// validateWeek runs the rules against proposal, shrinking the volume
// increase after each block until the rules pass or attempts run out. It also
// returns the proposal the final result was computed from.
func (b *builder) validateWeek(proposal safeguards.WeekProposal) (safeguards.ValidationResult, safeguards.WeekProposal, int, error) {
	for attempt := 1; ; attempt++ {
		res := safeguards.Validate(b.state, proposal, b.g.rules)
		b.trail.AppendAll(res.Decisions)
		if !res.Blocked() {
			return res, proposal, attempt, nil
		}
		if attempt >= b.g.opts.MaxSafeguardAttempts {
			return res, proposal, attempt, &UnsafePlanError{
				Week:         proposal.Week,
				Attempts:     attempt,
				LastVolumeKm: proposal.VolumeKm,
				RuleIDs:      blockingRules(res),
			}
		}
		next := b.shrink(proposal, res)
		b.record(decision.Decision{
			Stage:            StageWeek,
			Week:             proposal.Week,
			Kind:             decision.KindOverride,
			Question:         fmt.Sprintf("week %d volume after block", proposal.Week),
			ChosenValue:      fmt.Sprintf("%.2f -> %.2f km", proposal.VolumeKm, next),
			Rationale:        fmt.Sprintf("attempt %d blocked; reproposing with a smaller increase", attempt),
			TriggeredRuleIDs: blockingRules(res),
		})
		proposal.VolumeKm = next
		proposal.LongRunKm = b.longRunFor(next)
	}
}

// shrink returns a volume whose increase over the previous week is strictly
// smaller than the blocked one.
func (b *builder) shrink(p safeguards.WeekProposal, res safeguards.ValidationResult) float64 {
	delta := p.VolumeKm - p.PreviousVolumeKm
	if p.PreviousVolumeKm <= 0 || delta <= 0 {
		return floor2(p.VolumeKm * blockedDecay)
	}
	next := delta * b.g.opts.BlockShrinkFactor
	if bound, ok := res.BlockBound(safeguards.FieldVolumeKm); ok && bound-p.PreviousVolumeKm < next {
		next = math.Max(bound-p.PreviousVolumeKm, 0)
	}
	return floor2(p.PreviousVolumeKm + next)
}

func blockingRules(res safeguards.ValidationResult) []string {
	var ids []string
	for _, t := range res.Triggers {
		if t.Severity == safeguards.SeverityBlock {
			ids = append(ids, t.RuleID)
		}
	}
	return ids
}

func (b *builder) assemble() GeneratedPlan {
	plan := GeneratedPlan{
		SchemaVersion:  PlanSchemaVersion,
		TemplateID:     b.tmpl.ID,
		Goal:           b.tmpl.Goal,
		DurationWeeks:  b.weeks,
		PeakVolumeKm:   b.curve.peak,
		PeakWeek:       b.curve.peakWeek,
		Weeks:          b.weekPlans,
		Sessions:       b.sessions,
		SeasonView:     b.spans,
		RunnerSnapshot: b.snapshot,
		DecisionAudit:  b.trail.Entries(),
	}
	if !b.start.IsZero() {
		plan.StartDate = b.start.Format(dateLayout)
		plan.StateAsOf = b.state.AsOf.UTC().Format(dateLayout)
	}
	return plan
}

const dateLayout = "2006-01-02"

// StartDate is the first Monday strictly after asOf, the day a plan built
// from a state computed on asOf begins.
func StartDate(asOf time.Time) time.Time {
	u := asOf.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	offset := (8 - int(day.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}

func (b *builder) dateOf(week int, day profile.Day) string {
	if b.start.IsZero() {
		return ""
	}
	return b.start.AddDate(0, 0, (week-1)*7+int(day)-1).Format(dateLayout)
}

type planIdentity struct {
	Snapshot   profile.RunnerSnapshot `json:"snapshot"`
	State      inference.RunnerState  `json:"state"`
	Goal       templates.GoalType     `json:"goal"`
	Weeks      int                    `json:"weeks"`
	TemplateID string                 `json:"template_id"`
	Rules      []safeguards.Rule      `json:"rules"`
	Options    Options                `json:"options"`
}

func (g *Generator) planID(snapshot profile.RunnerSnapshot, state inference.RunnerState, goal templates.GoalType, weeks int, templateID string) (string, error) {
	data, err := json.Marshal(planIdentity{
		Snapshot:   snapshot,
		State:      state,
		Goal:       goal,
		Weeks:      weeks,
		TemplateID: templateID,
		Rules:      g.rules,
		Options:    g.opts,
	})
	if err != nil {
		return "", fmt.Errorf("encode plan identity: %w", err)
	}
	return uuid.NewSHA1(planNamespace, data).String(), nil
}
