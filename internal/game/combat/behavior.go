package combat

import (
	"fmt"
	"time"
)

// AttackPlan describes one phase of an enemy attack, timed from phase start.
type AttackPlan struct {
	Attack AttackType
	// HitAt is when the hit lands and the counter window closes.
	HitAt time.Duration
	// Duration is when the phase finishes. Values below HitAt are treated as HitAt.
	Duration time.Duration
	Cue      string
}

// Outcome is what a landed hit does to the rest of the attack.
type Outcome int

const (
	// OutcomeComplete finishes the attack once the phase Duration elapses.
	OutcomeComplete Outcome = iota
	// OutcomeContinue starts the next phase immediately.
	OutcomeContinue
	// OutcomeAborted means the behavior already moved the actor out of Attacking.
	OutcomeAborted
)

// Behavior is the archetype-specific part of an enemy.
type Behavior interface {
	// Plan returns the phase to run. Phase 0 is called once per granted attack.
	Plan(a *Actor, phase int) AttackPlan
	// Land applies the phase's effect when its hit time arrives.
	Land(a *Actor, phase int, plan AttackPlan) Outcome
	// Interruptible reports whether damage cancels the actor's attack.
	Interruptible() bool
	// Countered runs after a counter attack the actor survived.
	Countered(a *Actor)
}

// BehaviorFor returns the stock behavior of an enemy archetype.
func BehaviorFor(arch Archetype) (Behavior, error) {
	switch arch {
	case ArchetypeMelee:
		return meleeBehavior{}, nil
	case ArchetypeRanged:
		return rangedBehavior{}, nil
	case ArchetypeBrute:
		return bruteBehavior{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, arch)
}

// strike delivers the actor's damage roll to its target.
func strike(a *Actor, kind DamageKind, attack AttackType) int {
	t := a.target
	if t == nil || t.IsDead() {
		return 0
	}
	amount := a.env.Roller.Roll(a.profile.Damage).Total()
	return t.ReceiveDamage(Hit{Amount: amount, Source: a, Kind: kind, Attack: attack})
}

// knockDown is the common reaction of a countered grunt.
func knockDown(a *Actor) {
	a.finishAttack(true)
	a.enterFor(StateLying, a.env.Tuning.Enemy.TimeToGetUp, a.backToIdle)
}

type meleeBehavior struct{}

func (meleeBehavior) Plan(a *Actor, _ int) AttackPlan {
	attack := UnableToCounter
	if a.env.Roller.Percent(a.profile.CounterableChance) {
		attack = AbleToCounter
	}
	return AttackPlan{
		Attack:   attack,
		HitAt:    a.env.Tuning.Enemy.CounterableTime,
		Duration: a.env.Tuning.Enemy.CompletionTime,
		Cue:      "attack",
	}
}

func (meleeBehavior) Land(a *Actor, _ int, plan AttackPlan) Outcome {
	strike(a, DamageEnemy, plan.Attack)
	return OutcomeComplete
}

func (meleeBehavior) Interruptible() bool { return true }

func (meleeBehavior) Countered(a *Actor) { knockDown(a) }

type rangedBehavior struct{}

func (rangedBehavior) Plan(a *Actor, _ int) AttackPlan {
	rt := a.env.Tuning.Ranged
	return AttackPlan{
		Attack:   UnableToCounter,
		HitAt:    rt.AimTime,
		Duration: rt.AimTime + rt.FireRecovery,
		Cue:      "aim",
	}
}

func (rangedBehavior) Land(a *Actor, _ int, plan AttackPlan) Outcome {
	t := a.target
	if t == nil || t.IsDead() {
		return OutcomeComplete
	}
	a.env.Presenter.Play(a.id, "fire")
	if a.position.Distance(t.position) > a.env.Tuning.Ranged.AimingRange {
		return OutcomeComplete
	}
	strike(a, DamageEnemy, plan.Attack)
	return OutcomeComplete
}

func (rangedBehavior) Interruptible() bool { return true }

func (rangedBehavior) Countered(a *Actor) { knockDown(a) }
