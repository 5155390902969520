package encounter_test

import (
	"errors"
	"testing"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// fakeAttacker is a scheduler participant with switchable eligibility.
type fakeAttacker struct {
	id      string
	dead    bool
	blocked bool
	begun   int
}

func (f *fakeAttacker) ID() string             { return f.id }
func (f *fakeAttacker) IsDead() bool           { return f.dead }
func (f *fakeAttacker) CanPerformAttack() bool { return !f.dead && !f.blocked }
func (f *fakeAttacker) BeginAttack() bool {
	if !f.CanPerformAttack() {
		return false
	}
	f.begun++
	return true
}

var errNoTemplate = errors.New("no such template")

// unitFactory builds fresh melee units and never recycles.
type unitFactory struct {
	env      *combat.Env
	made     []*combat.Actor
	released []*combat.Actor
}

func (f *unitFactory) Acquire(template string) (*combat.Actor, error) {
	if template == "missing" {
		return nil, errNoTemplate
	}
	a, err := combat.NewEnemy(f.env, combat.Profile{
		Name:      template,
		Archetype: combat.ArchetypeMelee,
		MaxHealth: 10,
		Damage:    dice.Fixed(2),
	})
	if err != nil {
		return nil, err
	}
	f.made = append(f.made, a)
	return a, nil
}

func (f *unitFactory) Release(unit *combat.Actor) { f.released = append(f.released, unit) }

// recordingHooks counts encounter milestones.
type recordingHooks struct {
	waves     []int
	completed []string
}

func (h *recordingHooks) OnWaveStart(_ string, index int) { h.waves = append(h.waves, index) }
func (h *recordingHooks) OnEncounterComplete(id string) { h.completed = append(h.completed, id) }

// eagerThinker queues every unit it is asked about and remembers who it saw.
type eagerThinker struct {
	seen []*combat.Actor
}

func (e *eagerThinker) Think(squad ai.Squad, unit *combat.Actor) ai.PlannedAction {
	e.seen = append(e.seen, unit)
	if unit.State() != combat.StateIdle {
		return ai.PlannedAction{Action: ai.ActionHold}
	}
	squad.RequestAttack(unit)
	return ai.PlannedAction{Action: ai.ActionQueueAttack}
}

func newEnv(t *testing.T, seed uint64) (*combat.Env, *clock.Clock) {
	t.Helper()
	clk := clock.New()
	roller := dice.NewLoggedRoller(dice.NewSeededSource(seed), nil)
	return combat.NewEnv(clk, roller, nil, nil, combat.DefaultTuning()), clk
}
