package npc

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ErrUnknownTemplate is returned when no template carries the requested ID.
var ErrUnknownTemplate = errors.New("unknown npc template")

// Factory builds fresh combat actors from templates.
// All methods are safe for concurrent use.
type Factory struct {
	mu         sync.RWMutex
	env        *combat.Env
	templates  map[string]*Template
	envs       map[string]*combat.Env
	generation uint64
}

// NewFactory creates a Factory over templates.
//
// Precondition: env must be non-nil; templates must be valid.
func NewFactory(env *combat.Env, templates []*Template) *Factory {
	f := &Factory{env: env}
	f.install(templates)
	return f
}

// Replace swaps the template set, as after a content reload. Actors already
// built keep their old profile.
//
// Postcondition: Generation increases by one.
func (f *Factory) Replace(templates []*Template) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.install(templates)
	f.generation++
}

func (f *Factory) install(templates []*Template) {
	f.templates = make(map[string]*Template, len(templates))
	f.envs = make(map[string]*combat.Env)
	for _, t := range templates {
		f.templates[t.ID] = t
		if t.HasOverrides() {
			e := *f.env
			e.Tuning = t.Tuning(f.env.Tuning)
			f.envs[t.ID] = &e
		}
	}
}

// Generation counts template replacements.
func (f *Factory) Generation() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.generation
}

// Template returns the template with the given ID.
func (f *Factory) Template(id string) (*Template, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.templates[id]
	return t, ok
}

// IDs returns every template ID in sorted order.
func (f *Factory) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.templates))
	for id := range f.templates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Build creates a new hostile from the template id.
//
// Postcondition: Returns ErrUnknownTemplate when id is not loaded.
func (f *Factory) Build(id string) (*combat.Actor, error) {
	f.mu.RLock()
	t, ok := f.templates[id]
	env := f.envs[id]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	if env == nil {
		env = f.env
	}
	return combat.NewEnemy(env, t.Profile())
}
