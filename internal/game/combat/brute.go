package combat

import "time"

// bruteBehavior is the heavy enemy: super armor, three attacks and a two-step
// counter.
type bruteBehavior struct{}

// ChooseBruteAttack applies the stock rule: close range rolls between Charge
// and Swipe, far range always JumpSlams.
func ChooseBruteAttack(t BruteTuning, distance float64, roll int) BruteAttack {
	if distance < t.FarCloseDistance {
		if float64(roll) < t.ChargeChance {
			return BruteCharge
		}
		return BruteSwipe
	}
	return BruteJumpSlam
}

func (bruteBehavior) choose(a *Actor) BruteAttack {
	distance := a.position.Distance(a.target.position)
	roll := a.env.Roller.Pick(100)
	if a.env.Chooser != nil {
		if attack, ok := a.env.Chooser.ChooseBruteAttack(a, distance, roll); ok && attack != BruteNone {
			return attack
		}
	}
	return ChooseBruteAttack(a.env.Tuning.Brute, distance, roll)
}

func (b bruteBehavior) Plan(a *Actor, phase int) AttackPlan {
	bt := a.env.Tuning.Brute
	if phase == 0 {
		a.bruteAttack = b.choose(a)
		a.aim = a.target.position
	}
	switch a.bruteAttack {
	case BruteCharge:
		travel := bt.ChargeMaxTime
		if bt.ChargeSpeed > 0 {
			d := a.position.Distance(a.aim) / bt.ChargeSpeed
			if t := time.Duration(d * float64(time.Second)); t < travel {
				travel = t
			}
		}
		return AttackPlan{Attack: UnableToCounter, HitAt: travel, Duration: travel + bt.ChargeRecovery, Cue: "charge"}
	case BruteJumpSlam:
		return AttackPlan{Attack: UnableToCounter, HitAt: bt.JumpSlamTime, Duration: bt.JumpSlamTime + bt.JumpSlamRecovery, Cue: "jump_slam"}
	default:
		plan := AttackPlan{Attack: AbleToCounter, HitAt: bt.SwipeTime, Duration: bt.SwipeTime, Cue: "swipe"}
		if phase > 0 {
			plan.Duration += bt.SwipeRecovery
		}
		return plan
	}
}

func (bruteBehavior) Land(a *Actor, phase int, plan AttackPlan) Outcome {
	bt := a.env.Tuning.Brute
	switch a.bruteAttack {
	case BruteCharge:
		a.position = a.aim
		if t := a.target; t != nil && t.state == StateDodge {
			a.env.Presenter.Play(a.id, "wall_hit")
			a.Stun(bt.StunTime)
			return OutcomeAborted
		}
		strike(a, DamageEnemy, plan.Attack)
		return OutcomeComplete
	case BruteJumpSlam:
		a.position = a.aim
		a.env.Presenter.Play(a.id, "slam_impact")
		if t := a.target; t != nil && t.position.Distance(a.aim) <= bt.AoeRadius {
			strike(a, DamageArea, plan.Attack)
		}
		return OutcomeComplete
	default:
		strike(a, DamageEnemy, plan.Attack)
		if phase == 0 {
			return OutcomeContinue
		}
		return OutcomeComplete
	}
}

func (bruteBehavior) Interruptible() bool { return false }

// Countered flinches into the second swipe on the first counter and stuns on
// the second.
func (bruteBehavior) Countered(a *Actor) {
	a.counterHits++
	switch {
	case a.counterHits >= 2:
		a.Stun(a.env.Tuning.Brute.StunTime)
	case a.bruteAttack == BruteSwipe && a.phase == 0 && a.target != nil && !a.target.IsDead():
		a.env.Presenter.Play(a.id, "flinch")
		a.startPhase(1)
	default:
		a.finishAttack(true)
		a.enterFor(StateRecovering, a.env.Tuning.Brute.SwipeRecovery, a.backToIdle)
	}
}
