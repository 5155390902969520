// Package encounter coordinates hostile attack turns, wave spawning and the
// lifecycle of one encounter region.
package encounter

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Attacker is the part of an actor the scheduler needs.
type Attacker interface {
	ID() string
	IsDead() bool
	CanPerformAttack() bool
	BeginAttack() bool
}

type turnQueue struct {
	class   combat.AttackClass
	delay   time.Duration
	entries []Attacker
	last    Attacker
	// inFlight is the attacker granted most recently whose completion is still owed.
	inFlight Attacker
	timer    *clock.Timer
}

func (q *turnQueue) index(a Attacker) int {
	for i, e := range q.entries {
		if e == a {
			return i
		}
	}
	return -1
}

func (q *turnQueue) remove(i int) {
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
}

// Scheduler rations permission to attack the player among queued hostiles.
// Each attack class has its own queue and cooldown; classes never interact.
//
// Invariant: an attacker appears at most once per queue; at most one grant
// per class is outstanding.
//
// Scheduler is NOT safe for concurrent use.
type Scheduler struct {
	clk       *clock.Clock
	roller    *dice.Roller
	logger    *zap.Logger
	queues    [2]*turnQueue
	suspended bool
}

// NewScheduler creates a Scheduler with one cooldown per attack class.
//
// Precondition: clk and roller must be non-nil.
func NewScheduler(clk *clock.Clock, roller *dice.Roller, logger *zap.Logger, basicDelay, heavyDelay time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		clk:    clk,
		roller: roller,
		logger: logger,
		queues: [2]*turnQueue{
			{class: combat.ClassBasic, delay: basicDelay},
			{class: combat.ClassHeavy, delay: heavyDelay},
		},
	}
}

func (s *Scheduler) queue(c combat.AttackClass) *turnQueue {
	if c == combat.ClassHeavy {
		return s.queues[1]
	}
	return s.queues[0]
}

// Enqueue adds a to the queue of class c.
//
// Postcondition: No-op for dead or already queued attackers. Arms the cooldown
// when the queue was empty, no cooldown is armed and no grant is outstanding.
func (s *Scheduler) Enqueue(a Attacker, c combat.AttackClass) {
	if a == nil || a.IsDead() {
		return
	}
	q := s.queue(c)
	if q.index(a) >= 0 {
		return
	}
	q.entries = append(q.entries, a)
	if len(q.entries) == 1 && !q.timer.Active() && q.inFlight == nil {
		s.arm(q)
	}
}

// GrantNextTurn hands the turn of class c to one eligible queued attacker.
// It is called by the cooldown timer and exported for tests and tools.
//
// Postcondition: An empty queue is a no-op. While suspended, or when no
// entry is eligible, the cooldown is re-armed instead.
func (s *Scheduler) GrantNextTurn(c combat.AttackClass) {
	q := s.queue(c)
	q.timer.Stop()
	q.timer = nil
	if s.suspended {
		s.arm(q)
		return
	}
	s.prune(q)
	if len(q.entries) == 0 {
		return
	}
	candidates := make([]Attacker, 0, len(q.entries))
	for _, e := range q.entries {
		if len(q.entries) > 1 && e == q.last {
			continue
		}
		if !e.CanPerformAttack() {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		s.arm(q)
		return
	}
	chosen := candidates[s.roller.Pick(len(candidates))]
	q.remove(q.index(chosen))
	q.last = chosen
	if !chosen.BeginAttack() {
		s.arm(q)
		return
	}
	q.inFlight = chosen
	s.logger.Info("attack turn granted",
		zap.String("actor", chosen.ID()),
		zap.Stringer("class", c),
		zap.Int("queued", len(q.entries)),
	)
}

// NotifyAttackCompleted records a as the last attacker of class c and re-arms
// the cooldown even when the queue is empty.
func (s *Scheduler) NotifyAttackCompleted(a Attacker, c combat.AttackClass) {
	q := s.queue(c)
	if a != nil {
		q.last = a
	}
	q.inFlight = nil
	s.arm(q)
}

// Remove drops a from both queues. Idempotent.
func (s *Scheduler) Remove(a Attacker) {
	if a == nil {
		return
	}
	for _, q := range s.queues {
		if i := q.index(a); i >= 0 {
			q.remove(i)
		}
		if q.inFlight == a {
			q.inFlight = nil
			if !q.timer.Active() {
				s.arm(q)
			}
		}
		if q.last == a {
			q.last = nil
		}
	}
}

// Suspend holds every grant until Resume; expiries re-arm instead of granting.
func (s *Scheduler) Suspend() {
	s.suspended = true
	s.logger.Debug("attack scheduler suspended")
}

// Resume lifts Suspend.
func (s *Scheduler) Resume() {
	s.suspended = false
	s.logger.Debug("attack scheduler resumed")
}

// Suspended reports whether grants are held.
func (s *Scheduler) Suspended() bool { return s.suspended }

// Clear stops both cooldowns and empties both queues.
func (s *Scheduler) Clear() {
	for _, q := range s.queues {
		q.timer.Stop()
		q.timer = nil
		q.entries = nil
		q.last = nil
		q.inFlight = nil
	}
	s.suspended = false
}

// Len returns the number of attackers queued under class c.
func (s *Scheduler) Len(c combat.AttackClass) int { return len(s.queue(c).entries) }

// Queued reports whether a is queued under class c.
func (s *Scheduler) Queued(a Attacker, c combat.AttackClass) bool { return s.queue(c).index(a) >= 0 }

// LastAttacker returns the attacker last granted or completed under class c.
func (s *Scheduler) LastAttacker(c combat.AttackClass) Attacker { return s.queue(c).last }

// InFlight returns the attacker of class c whose completion is still owed.
func (s *Scheduler) InFlight(c combat.AttackClass) Attacker { return s.queue(c).inFlight }

// Armed reports whether the cooldown of class c is running.
func (s *Scheduler) Armed(c combat.AttackClass) bool { return s.queue(c).timer.Active() }

func (s *Scheduler) arm(q *turnQueue) {
	q.timer.Stop()
	class := q.class
	q.timer = s.clk.After(q.delay, func() { s.GrantNextTurn(class) })
}

// prune drops dead entries left behind by callers that skipped Remove.
func (s *Scheduler) prune(q *turnQueue) {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !e.IsDead() {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}
