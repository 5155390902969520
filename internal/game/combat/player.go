package combat

import (
	"math"
	"time"
)

// ComboDamage returns the player's strike damage for a combo count taken
// before the strike increments it.
//
// Postcondition: Result lies in [BaseDamage, MaxDamage] after rounding.
func ComboDamage(t PlayerTuning, combo int) int {
	if combo < 0 {
		combo = 0
	}
	d := t.BaseDamage * (1 + float64(combo)*t.DamageMultiplier)
	if d > t.MaxDamage {
		d = t.MaxDamage
	}
	if d < t.BaseDamage {
		d = t.BaseDamage
	}
	return roundDamage(d)
}

// ComboSpeed returns the attack speed multiplier for a combo count.
//
// Postcondition: Result lies in [1, 1+MaxComboSpeedBonus].
func ComboSpeed(t PlayerTuning, combo int) float64 {
	bonus := float64(combo) * t.ComboSpeedMultiplier
	return 1 + math.Max(0, math.Min(bonus, t.MaxComboSpeedBonus))
}

func scaled(d time.Duration, speed float64) time.Duration {
	if speed <= 0 {
		return d
	}
	return time.Duration(float64(d) / speed)
}

// Attack swings at target. A nil target swings at nothing.
//
// Postcondition: No-op unless CanPerformAttack. Otherwise the player enters
// BeforeAttack and the combo count increments.
func (a *Actor) Attack(target *Actor) {
	if !a.isPlayer() || !a.CanPerformAttack() {
		return
	}
	pt := a.env.Tuning.Player
	if target != nil {
		a.target = target
	}
	a.stopTimer(&a.comboTimer)
	a.currentDamage = ComboDamage(pt, a.combo)
	speed := ComboSpeed(pt, a.combo)
	a.combo++
	a.attacking = true
	a.enter(StateBeforeAttack)
	a.emit(Event{Kind: EventAttackStarted, Class: a.profile.Class})
	a.windupTimer = a.env.Clock.After(scaled(pt.WindUp, speed), func() {
		a.windupTimer = nil
		a.enter(StateAttacking)
		a.env.Presenter.Play(a.id, "strike")
		a.hitTimer = a.env.Clock.After(scaled(pt.AttackHitAt, speed), a.landStrike)
		a.finishTimer = a.env.Clock.After(scaled(pt.AttackDuration, speed), a.finishStrike)
	})
}

func (a *Actor) landStrike() {
	a.hitTimer = nil
	t := a.target
	if t == nil || t.IsDead() {
		return
	}
	t.ReceiveDamage(Hit{Amount: a.currentDamage, Source: a, Kind: DamageStrike})
}

func (a *Actor) finishStrike() {
	a.finishTimer = nil
	a.finishAttack(false)
	a.enter(StateWaitForCombo)
	a.armCombo()
}

func (a *Actor) armCombo() {
	a.stopTimer(&a.comboTimer)
	a.comboTimer = a.env.Clock.After(a.env.Tuning.Player.ComboResetTime, a.comboExpired)
}

func (a *Actor) comboExpired() {
	a.comboTimer = nil
	a.combo = 0
	if a.state == StateWaitForCombo {
		a.enter(StateIdle)
	}
}

func (a *Actor) resetCombo() {
	a.stopTimer(&a.comboTimer)
	a.combo = 0
}

// Dodge spends stamina for a short fully immune roll.
func (a *Actor) Dodge() {
	if !a.CanPerformDodge() {
		return
	}
	a.spendStamina(a.env.Tuning.Player.DodgeCost)
	a.enterFor(StateDodge, a.env.Tuning.Player.DodgeTime, a.afterMove)
}

// Evade is the counter input: a plain sidestep, or the counter attack when a
// victim is registered.
func (a *Actor) Evade() {
	if !a.isPlayer() || !a.canMove() {
		return
	}
	a.enterFor(StateEvade, a.env.Tuning.Player.EvadeTime, a.afterMove)
	if a.counter.CounterCapable() {
		a.counter.TryExecute()
	}
}

// afterMove returns to WaitForCombo while the combo window is still open.
func (a *Actor) afterMove() {
	if a.IsDead() {
		return
	}
	if a.comboTimer.Active() {
		a.enter(StateWaitForCombo)
		return
	}
	a.enter(StateIdle)
}

func (a *Actor) spendStamina(cost float64) {
	pt := a.env.Tuning.Player
	a.stamina = math.Max(0, a.stamina-cost)
	a.stopTimer(&a.regenTimer)
	a.stopTimer(&a.regenDelay)
	a.regenDelay = a.env.Clock.After(pt.StaminaRegenDelay, a.startRegen)
}

func (a *Actor) startRegen() {
	a.regenDelay = nil
	tick := a.env.Tuning.Player.StaminaRegenTick
	if tick <= 0 {
		a.stamina = a.env.Tuning.Player.MaxStamina
		return
	}
	a.regenTimer = a.env.Clock.Every(tick, a.regenTick)
}

func (a *Actor) regenTick() {
	pt := a.env.Tuning.Player
	a.stamina += pt.StaminaRegenPerSecond * pt.StaminaRegenTick.Seconds()
	if a.stamina >= pt.MaxStamina {
		a.stamina = pt.MaxStamina
		a.stopTimer(&a.regenTimer)
	}
}
