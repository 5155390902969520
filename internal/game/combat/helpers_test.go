package combat_test

import (
	"testing"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// recordingPresenter keeps every cue in order.
type recordingPresenter struct {
	cues []string
}

func (p *recordingPresenter) Play(_ string, cue string) { p.cues = append(p.cues, cue) }

// eventLog records every event an actor publishes.
type eventLog struct {
	events []combat.Event
}

func watch(a *combat.Actor) *eventLog {
	l := &eventLog{}
	a.Subscribe("test", func(e combat.Event) { l.events = append(l.events, e) })
	return l
}

func (l *eventLog) count(kind combat.EventKind) int {
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) finished() []combat.Event {
	var out []combat.Event
	for _, e := range l.events {
		if e.Kind == combat.EventAttackFinished {
			out = append(out, e)
		}
	}
	return out
}

// fakeSuspender counts Suspend and Resume calls.
type fakeSuspender struct {
	suspended, resumed int
}

func (f *fakeSuspender) Suspend() { f.suspended++ }
func (f *fakeSuspender) Resume()  { f.resumed++ }

// fixedChooser always picks the same brute attack.
type fixedChooser struct{ attack combat.BruteAttack }

func (c fixedChooser) ChooseBruteAttack(*combat.Actor, float64, int) (combat.BruteAttack, bool) {
	return c.attack, true
}

func newEnv(t *testing.T) (*combat.Env, *clock.Clock) {
	t.Helper()
	clk := clock.New()
	roller := dice.NewLoggedRoller(dice.NewSeededSource(7), nil)
	return combat.NewEnv(clk, roller, nil, &recordingPresenter{}, combat.DefaultTuning()), clk
}

func melee(t *testing.T, env *combat.Env, health int, counterChance float64) *combat.Actor {
	t.Helper()
	a, err := combat.NewEnemy(env, combat.Profile{
		Name:              "grunt",
		Archetype:         combat.ArchetypeMelee,
		MaxHealth:         health,
		Damage:            dice.Fixed(2),
		CounterableChance: counterChance,
	})
	if err != nil {
		t.Fatalf("NewEnemy: %v", err)
	}
	return a
}

func enemyOf(t *testing.T, env *combat.Env, arch combat.Archetype, health int) *combat.Actor {
	t.Helper()
	a, err := combat.NewEnemy(env, combat.Profile{
		Name:      string(arch),
		Archetype: arch,
		Class:     combat.ClassHeavy,
		MaxHealth: health,
		Damage:    dice.Fixed(2),
	})
	if err != nil {
		t.Fatalf("NewEnemy: %v", err)
	}
	return a
}

// engaged returns a player and an enemy targeting it.
func engaged(t *testing.T, env *combat.Env, enemy *combat.Actor) *combat.Actor {
	t.Helper()
	p := combat.NewPlayer(env, "hero")
	enemy.SetTarget(p)
	return p
}
