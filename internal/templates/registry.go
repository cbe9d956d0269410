package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"

	"runplan/internal/validation"
)

//go:embed builtin/*.yml
var builtinFS embed.FS

// Registry is an immutable catalog of templates keyed by ID and goal. It is
// safe for concurrent reads.
type Registry struct {
	byID   map[string]Template
	byGoal map[GoalType]string
	ids    []string
}

// NewRegistry builds a registry, rejecting duplicate IDs or goals.
func NewRegistry(list []Template) (*Registry, error) {
	r := &Registry{
		byID:   make(map[string]Template, len(list)),
		byGoal: make(map[GoalType]string, len(list)),
	}
	var errs validation.Errors
	for _, t := range list {
		if _, dup := r.byID[t.ID]; dup {
			errs.Add(t.Source, "id", "duplicate template id %q", t.ID)
			continue
		}
		if other, dup := r.byGoal[t.Goal]; dup {
			errs.Add(t.Source, "goal", "goal %s already served by %s", t.Goal, other)
			continue
		}
		r.byID[t.ID] = t.clone()
		r.byGoal[t.Goal] = t.ID
		r.ids = append(r.ids, t.ID)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	sort.Strings(r.ids)
	return r, nil
}

// LoadFS parses every *.yml file in dir of fsys into a registry.
func LoadFS(fsys fs.FS, dir string) (*Registry, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("scan templates: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no template files found in %s", dir)
	}
	sort.Strings(files)

	var list []Template
	var errs validation.Errors
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		t, err := ParseTemplate(data, name)
		if err != nil {
			if ve, ok := validation.As(err); ok {
				errs = append(errs, ve...)
				continue
			}
			return nil, err
		}
		list = append(list, t)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return NewRegistry(list)
}

var (
	builtinOnce sync.Once
	builtinReg  *Registry
	builtinErr  error
)

// Builtin returns the registry of embedded templates.
func Builtin() (*Registry, error) {
	builtinOnce.Do(func() {
		builtinReg, builtinErr = LoadFS(builtinFS, "builtin")
	})
	return builtinReg, builtinErr
}

// MustBuiltin is Builtin for callers that treat a broken catalog as a
// programming error.
func MustBuiltin() *Registry {
	r, err := Builtin()
	if err != nil {
		panic(fmt.Sprintf("builtin templates: %v", err))
	}
	return r
}

// Get returns a copy of the template with id.
func (r *Registry) Get(id string) (Template, bool) {
	t, ok := r.byID[id]
	if !ok {
		return Template{}, false
	}
	return t.clone(), true
}

// ForGoal returns a copy of the template serving goal.
func (r *Registry) ForGoal(goal GoalType) (Template, error) {
	id, ok := r.byGoal[goal]
	if !ok {
		return Template{}, &UnknownGoalError{Goal: goal}
	}
	return r.byID[id].clone(), nil
}

// List returns copies of all templates ordered by ID.
func (r *Registry) List() []Template {
	out := make([]Template, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id].clone())
	}
	return out
}

// Select picks the template for goal and checks weeks against its bounds.
// Zero weeks selects the recommended length; a negative request is out of
// bounds like any other. The returned duration
// is the one the plan must use; it is never clamped.
func (r *Registry) Select(goal GoalType, weeks int) (Template, int, error) {
	t, err := r.ForGoal(goal)
	if err != nil {
		return Template{}, 0, err
	}
	if weeks == 0 {
		return t, t.RecommendedWeeks, nil
	}
	if !t.AcceptsWeeks(weeks) {
		return Template{}, 0, &InvalidDurationError{
			Goal:       goal,
			TemplateID: t.ID,
			Requested:  weeks,
			MinWeeks:   t.MinWeeks,
			MaxWeeks:   t.MaxWeeks,
		}
	}
	return t, weeks, nil
}
