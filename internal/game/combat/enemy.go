package combat

import "go.uber.org/zap"

// commitAttack ends the wind-up and starts phase 0.
func (a *Actor) commitAttack() {
	a.windupTimer = nil
	if a.target == nil || a.target.IsDead() {
		a.finishAttack(true)
		a.enter(StateIdle)
		return
	}
	a.startPhase(0)
}

func (a *Actor) startPhase(phase int) {
	a.phase = phase
	a.plan = a.behavior.Plan(a, phase)
	if a.plan.Duration < a.plan.HitAt {
		a.plan.Duration = a.plan.HitAt
	}
	a.enter(StateAttacking)
	if a.plan.Cue != "" {
		a.env.Presenter.Play(a.id, a.plan.Cue)
	}
	a.env.Logger.Debug("attack phase",
		zap.String("actor", a.id),
		zap.Int("phase", phase),
		zap.Stringer("attack", a.plan.Attack),
		zap.Stringer("brute_attack", a.bruteAttack),
	)
	if a.plan.Attack == AbleToCounter && a.target != nil && a.target.counter != nil {
		a.target.counter.Register(a)
	}
	a.hitTimer = a.env.Clock.After(a.plan.HitAt, a.landHit)
}

func (a *Actor) landHit() {
	a.hitTimer = nil
	a.revokeCounter()
	switch a.behavior.Land(a, a.phase, a.plan) {
	case OutcomeContinue:
		if a.state == StateAttacking {
			a.startPhase(a.phase + 1)
		}
	case OutcomeComplete:
		if a.state == StateAttacking {
			a.finishTimer = a.env.Clock.After(a.plan.Duration-a.plan.HitAt, a.completeAttack)
		}
	case OutcomeAborted:
	}
}

func (a *Actor) completeAttack() {
	a.finishTimer = nil
	a.finishAttack(false)
	a.enter(StateIdle)
}

// enterCountered freezes the victim for the counter exchange.
func (a *Actor) enterCountered() {
	a.stopTimer(&a.windupTimer)
	a.stopTimer(&a.hitTimer)
	a.stopTimer(&a.finishTimer)
	a.enter(StateCountered)
}

// receiveCounter delivers the counter damage and the archetype reaction.
func (a *Actor) receiveCounter(player *Actor) {
	if a.IsDead() {
		return
	}
	a.ReceiveDamage(Hit{
		Amount: a.env.Tuning.Player.CounterDamage,
		Source: player,
		Kind:   DamageCounterAttack,
	})
	if a.IsDead() {
		return
	}
	a.behavior.Countered(a)
}

// releaseCounter returns a frozen victim to Idle when the exchange is abandoned.
func (a *Actor) releaseCounter() {
	if a.IsDead() || a.state != StateCountered {
		return
	}
	a.finishAttack(true)
	a.enter(StateIdle)
}
