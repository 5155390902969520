package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
)

// Suspender is paused for the length of a counter exchange. The attack turn
// scheduler of the encounter the player fights in is the usual binding.
type Suspender interface {
	Suspend()
	Resume()
}

type binding struct {
	key string
	s   Suspender
}

// CounterProtocol is the handshake that lets the player intercept one enemy's
// counterable attack. It is owned by the player actor.
//
// Invariant: at most one victim is registered; a dead victim is never registered.
type CounterProtocol struct {
	player    *Actor
	victim    *Actor
	executing bool
	timer     *clock.Timer
	bindings  []binding
}

func newCounterProtocol(player *Actor) *CounterProtocol {
	return &CounterProtocol{player: player}
}

// Victim returns the registered enemy, or nil.
func (c *CounterProtocol) Victim() *Actor { return c.victim }

// CounterCapable reports whether an evade right now would start a counter.
func (c *CounterProtocol) CounterCapable() bool {
	return c.victim != nil && !c.executing
}

// Executing reports whether a counter exchange is running.
func (c *CounterProtocol) Executing() bool { return c.executing }

// Bind registers s under key to be suspended during every exchange.
func (c *CounterProtocol) Bind(key string, s Suspender) {
	for i := range c.bindings {
		if c.bindings[i].key == key {
			c.bindings[i].s = s
			return
		}
	}
	c.bindings = append(c.bindings, binding{key: key, s: s})
}

// Unbind removes the binding under key. Idempotent.
func (c *CounterProtocol) Unbind(key string) {
	for i := range c.bindings {
		if c.bindings[i].key == key {
			c.bindings = append(c.bindings[:i], c.bindings[i+1:]...)
			return
		}
	}
}

// Register claims the victim slot for an enemy committing to a counterable attack.
//
// Postcondition: Returns true iff victim now holds the slot. The first
// registration wins; later ones are rejected until the slot clears.
func (c *CounterProtocol) Register(victim *Actor) bool {
	if victim == nil || victim.IsDead() || victim == c.player {
		return false
	}
	if c.player.IsDead() || c.executing || c.victim != nil {
		return false
	}
	c.victim = victim
	victim.registeredWith = c
	c.player.env.Logger.Debug("counter window opened",
		zap.String("player", c.player.id),
		zap.String("victim", victim.id),
	)
	c.player.env.Presenter.Play(c.player.id, "counter_window")
	c.player.emit(Event{Kind: EventCounterWindow, Other: victim, Open: true})
	return true
}

// Revoke clears the slot if victim holds it. During an exchange only the
// victim's death aborts it. Idempotent.
func (c *CounterProtocol) Revoke(victim *Actor) {
	if victim == nil || c.victim != victim {
		return
	}
	if c.executing {
		if victim.health > 0 {
			return
		}
		c.abort()
		return
	}
	c.clear()
	c.player.emit(Event{Kind: EventCounterWindow, Other: victim, Open: false})
}

// TryExecute starts the exchange when the player is evading with a victim registered.
//
// Postcondition: Returns true iff the player entered SpecialAttack.
func (c *CounterProtocol) TryExecute() bool {
	if !c.CounterCapable() || c.player.state != StateEvade {
		return false
	}
	victim := c.victim
	c.executing = true
	c.player.enter(StateSpecialAttack)
	c.player.comboTimer.Pause()
	c.player.combo++
	victim.enterCountered()
	for _, b := range c.bindings {
		b.s.Suspend()
	}
	c.player.env.Logger.Info("counter attack",
		zap.String("player", c.player.id),
		zap.String("victim", victim.id),
		zap.String("victim_name", victim.profile.Name),
	)
	c.player.env.Presenter.Play(c.player.id, "counter")
	c.timer = c.player.env.Clock.After(c.player.env.Tuning.Player.CounterDuration, c.resolve)
	return true
}

func (c *CounterProtocol) resolve() {
	c.timer = nil
	victim := c.victim
	c.clear()
	victim.receiveCounter(c.player)
	c.finish(victim)
}

func (c *CounterProtocol) abort() {
	c.stopTimer()
	victim := c.victim
	c.clear()
	c.finish(victim)
}

func (c *CounterProtocol) finish(victim *Actor) {
	c.player.emit(Event{Kind: EventCounterResolved, Other: victim})
	for _, b := range c.bindings {
		b.s.Resume()
	}
	if c.player.IsDead() {
		return
	}
	c.player.enter(StateWaitForCombo)
	c.player.armCombo()
}

func (c *CounterProtocol) clear() {
	if c.victim != nil && c.victim.registeredWith == c {
		c.victim.registeredWith = nil
	}
	c.victim = nil
	c.executing = false
}

func (c *CounterProtocol) stopTimer() {
	c.timer.Stop()
	c.timer = nil
}

// reset abandons any open window or exchange without touching bindings.
func (c *CounterProtocol) reset() {
	victim := c.victim
	wasExecuting := c.executing
	c.stopTimer()
	c.clear()
	if victim == nil {
		return
	}
	if wasExecuting {
		victim.releaseCounter()
		for _, b := range c.bindings {
			b.s.Resume()
		}
	}
}
