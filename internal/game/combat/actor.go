package combat

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// ErrUnknownArchetype is returned when a profile names an archetype with no behavior.
var ErrUnknownArchetype = errors.New("unknown archetype")

// Profile is the static description an Actor is built from.
type Profile struct {
	Name      string
	Archetype Archetype
	Team      Team
	Class     AttackClass
	MaxHealth int
	Damage    dice.Expression
	// CounterableChance is the percent chance a melee attack is AbleToCounter.
	CounterableChance float64
	// AIDomain names the HTN domain driving the think step. Empty uses the default.
	AIDomain string
}

// Actor is one combat participant: the player or a hostile of any archetype.
//
// Actor is NOT safe for concurrent use; every method runs on the owning
// world's goroutine, including timer callbacks.
type Actor struct {
	id       string
	profile  Profile
	env      *Env
	behavior Behavior
	bus      eventBus

	state    State
	health   int
	position Vec
	target   *Actor

	// counter is non-nil only for the player.
	counter *CounterProtocol
	// registeredWith is the protocol this enemy holds the victim slot of.
	registeredWith *CounterProtocol

	attacking   bool
	phase       int
	plan        AttackPlan
	aim         Vec
	bruteAttack BruteAttack
	counterHits int

	windupTimer *clock.Timer
	hitTimer    *clock.Timer
	finishTimer *clock.Timer
	stateTimer  *clock.Timer

	combo         int
	comboTimer    *clock.Timer
	stamina       float64
	regenDelay    *clock.Timer
	regenTimer    *clock.Timer
	currentDamage int
}

// NewActor creates an Idle actor at full health.
//
// Precondition: env must be non-nil; behavior is nil only for the player.
// Postcondition: Returns an actor with a fresh unique ID.
func NewActor(env *Env, profile Profile, behavior Behavior) *Actor {
	if profile.MaxHealth <= 0 {
		profile.MaxHealth = 1
	}
	a := &Actor{
		id:       uuid.NewString(),
		profile:  profile,
		env:      env,
		behavior: behavior,
		state:    StateIdle,
		health:   profile.MaxHealth,
	}
	if profile.Team == TeamPlayer {
		a.counter = newCounterProtocol(a)
		a.stamina = env.Tuning.Player.MaxStamina
	}
	return a
}

// NewPlayer creates the player actor from the player tuning.
func NewPlayer(env *Env, name string) *Actor {
	return NewActor(env, Profile{
		Name:      name,
		Archetype: ArchetypePlayer,
		Team:      TeamPlayer,
		MaxHealth: env.Tuning.Player.MaxHealth,
	}, nil)
}

// NewEnemy creates a hostile actor with the behavior matching its archetype.
//
// Postcondition: Returns ErrUnknownArchetype when the archetype has no behavior.
func NewEnemy(env *Env, profile Profile) (*Actor, error) {
	b, err := BehaviorFor(profile.Archetype)
	if err != nil {
		return nil, err
	}
	profile.Team = TeamHostile
	return NewActor(env, profile, b), nil
}

// ID returns the actor's unique handle.
func (a *Actor) ID() string { return a.id }

// Name returns the profile name.
func (a *Actor) Name() string { return a.profile.Name }

// Profile returns the static profile.
func (a *Actor) Profile() Profile { return a.profile }

// Archetype returns the behavior variant.
func (a *Actor) Archetype() Archetype { return a.profile.Archetype }

// Team returns the actor's affiliation.
func (a *Actor) Team() Team { return a.profile.Team }

// Class returns the attack class the actor queues under.
func (a *Actor) Class() AttackClass { return a.profile.Class }

// State returns the current action state.
func (a *Actor) State() State { return a.state }

// Health returns current health.
func (a *Actor) Health() int { return a.health }

// MaxHealth returns maximum health.
func (a *Actor) MaxHealth() int { return a.profile.MaxHealth }

// IsDead reports whether the actor is in the Dead state.
func (a *Actor) IsDead() bool { return a.state == StateDead }

// Position returns the actor's location.
func (a *Actor) Position() Vec { return a.position }

// SetPosition teleports the actor.
func (a *Actor) SetPosition(p Vec) { a.position = p }

// Target returns the current target, or nil.
func (a *Actor) Target() *Actor { return a.target }

// SetTarget sets or clears (nil) the target.
func (a *Actor) SetTarget(t *Actor) { a.target = t }

// Counter returns the player's counter protocol, or nil for enemies.
func (a *Actor) Counter() *CounterProtocol { return a.counter }

// IsAttacking reports whether an attack completion is still owed.
func (a *Actor) IsAttacking() bool { return a.attacking }

// BruteAttack returns the brute's current attack subtype.
func (a *Actor) BruteAttack() BruteAttack { return a.bruteAttack }

// Phase returns the index of the current attack phase.
func (a *Actor) Phase() int { return a.phase }

// Combo returns the player's combo count.
func (a *Actor) Combo() int { return a.combo }

// Stamina returns the player's stamina.
func (a *Actor) Stamina() float64 { return a.stamina }

// Subscribe registers fn under key, replacing any handler with the same key.
func (a *Actor) Subscribe(key string, fn Handler) { a.bus.subscribe(key, fn) }

// Unsubscribe removes the handler registered under key. Idempotent.
func (a *Actor) Unsubscribe(key string) { a.bus.unsubscribe(key) }

// CanPerformAttack reports whether an attack command would be accepted now.
func (a *Actor) CanPerformAttack() bool {
	if a.attacking {
		return false
	}
	if a.isPlayer() {
		return a.state == StateIdle || a.state == StateWaitForCombo
	}
	return a.state == StateIdle || a.state == StatePreAction
}

// CanPerformDodge reports whether a dodge command would be accepted now.
func (a *Actor) CanPerformDodge() bool {
	if !a.isPlayer() {
		return false
	}
	if a.stamina < a.env.Tuning.Player.DodgeCost {
		return false
	}
	return a.canMove()
}

// BeginAttack starts an enemy attack granted by the scheduler.
//
// Postcondition: Returns true iff the actor entered BeforeAttack and now owes
// exactly one EventAttackFinished.
func (a *Actor) BeginAttack() bool {
	if a.isPlayer() || !a.CanPerformAttack() {
		return false
	}
	if a.target == nil || a.target.IsDead() {
		return false
	}
	a.attacking = true
	a.phase = 0
	a.counterHits = 0
	a.bruteAttack = BruteNone
	a.enter(StateBeforeAttack)
	a.emit(Event{Kind: EventAttackStarted, Class: a.profile.Class})
	a.windupTimer = a.env.Clock.After(a.env.Tuning.Enemy.WindUp, a.commitAttack)
	return true
}

// Reposition moves an idle enemy to p through PreAction.
func (a *Actor) Reposition(p Vec) {
	if a.isPlayer() || a.state != StateIdle {
		return
	}
	a.position = p
	a.enterFor(StatePreAction, a.env.Tuning.Enemy.RepositionTime, a.backToIdle)
}

// Stun interrupts any attack and holds the actor in Stunned for d.
//
// Postcondition: A non-positive d uses the enemy stun time. No-op on dead actors.
func (a *Actor) Stun(d time.Duration) {
	if a.IsDead() {
		return
	}
	if d <= 0 {
		d = a.env.Tuning.Enemy.StunTime
	}
	a.revokeCounter()
	a.cancelAttack()
	a.env.Presenter.Play(a.id, "stun")
	a.enterFor(StateStunned, d, a.backToIdle)
}

// Kill removes the actor without reward.
func (a *Actor) Kill() {
	if a.IsDead() {
		return
	}
	a.ReceiveDamage(Hit{Amount: a.health, Kind: DamageExecute})
}

// ReceiveDamage applies hit and runs the resulting state transition.
//
// Postcondition: Returns the health actually removed; 0 when the hit was
// ignored because of the current state.
func (a *Actor) ReceiveDamage(hit Hit) int {
	if a.IsDead() || hit.Amount <= 0 || !a.damageable(hit) {
		return 0
	}
	if hit.Kind != DamageCounterAttack {
		a.revokeCounter()
	}
	amount := hit.Amount
	if amount > a.health {
		amount = a.health
	}
	a.health -= amount
	a.emit(Event{Kind: EventDamaged, Amount: amount, Source: hit.Source, Damage: hit.Kind, Attack: hit.Attack})
	a.env.Presenter.Play(a.id, "hit_react")
	if a.health <= 0 {
		a.die(hit)
		return amount
	}
	a.react(hit)
	return amount
}

// Reset returns the actor to its freshly spawned condition for pool reuse.
//
// Postcondition: State Idle, full health, no timers, no subscribers, no target.
func (a *Actor) Reset() {
	a.stopAllTimers()
	if a.registeredWith != nil {
		a.registeredWith.Revoke(a)
	}
	a.registeredWith = nil
	if a.counter != nil {
		a.counter.reset()
		a.counter.bindings = nil
	}
	a.bus.clear()
	a.target = nil
	a.state = StateIdle
	a.health = a.profile.MaxHealth
	a.attacking = false
	a.phase = 0
	a.plan = AttackPlan{}
	a.bruteAttack = BruteNone
	a.counterHits = 0
	a.combo = 0
	a.currentDamage = 0
	if a.isPlayer() {
		a.stamina = a.env.Tuning.Player.MaxStamina
	}
}

// Revive restores health and Idle for a player reload.
func (a *Actor) Revive(health int) {
	if a.counter != nil {
		a.counter.reset()
	}
	a.stopAllTimers()
	a.attacking = false
	if health <= 0 || health > a.profile.MaxHealth {
		health = a.profile.MaxHealth
	}
	a.health = health
	a.combo = 0
	if a.isPlayer() {
		a.stamina = a.env.Tuning.Player.MaxStamina
	}
	a.enter(StateIdle)
}

func (a *Actor) isPlayer() bool { return a.profile.Team == TeamPlayer }

func (a *Actor) canMove() bool {
	switch a.state {
	case StateIdle, StateWaitForCombo, StateRecovering:
		return true
	}
	return false
}

func (a *Actor) damageable(hit Hit) bool {
	if hit.Kind == DamageExecute {
		return true
	}
	switch a.state {
	case StateDodge, StateSpecialAttack:
		return false
	case StateEvade:
		return hit.Attack == UnableToCounter
	}
	return true
}

// react runs the non-lethal damage transition.
func (a *Actor) react(hit Hit) {
	if !a.isPlayer() && !a.behavior.Interruptible() {
		return
	}
	switch a.state {
	case StateIdle, StateBeforeAttack, StateAttacking, StatePreAction, StateWaitForCombo, StateRecovering:
	default:
		return
	}
	a.cancelAttack()
	if a.isPlayer() {
		a.resetCombo()
	}
	recovery := a.env.Tuning.Enemy.RecoverTime
	if a.isPlayer() {
		recovery = a.env.Tuning.Player.RecoverTime
	}
	a.enterFor(StateRecovering, recovery, a.backToIdle)
}

func (a *Actor) die(hit Hit) {
	a.revokeCounter()
	a.cancelAttack()
	a.stopAllTimers()
	if a.counter != nil {
		a.counter.reset()
	}
	a.enter(StateDead)
	a.env.Presenter.Play(a.id, "death")
	a.env.Logger.Debug("actor died",
		zap.String("actor", a.id),
		zap.String("name", a.profile.Name),
		zap.Stringer("damage", hit.Kind),
	)
	a.emit(Event{Kind: EventDied, Source: hit.Source, Damage: hit.Kind})
}

// cancelAttack stops the attack timers and settles the completion obligation.
func (a *Actor) cancelAttack() {
	a.stopTimer(&a.windupTimer)
	a.stopTimer(&a.hitTimer)
	a.stopTimer(&a.finishTimer)
	a.finishAttack(true)
}

// finishAttack emits EventAttackFinished at most once per attack.
func (a *Actor) finishAttack(cancelled bool) {
	if !a.attacking {
		return
	}
	a.attacking = false
	a.emit(Event{Kind: EventAttackFinished, Class: a.profile.Class, Cancelled: cancelled})
}

func (a *Actor) revokeCounter() {
	if a.registeredWith == nil {
		return
	}
	a.registeredWith.Revoke(a)
}

func (a *Actor) enter(to State) {
	a.stopTimer(&a.stateTimer)
	from := a.state
	if from == to {
		return
	}
	a.state = to
	a.env.Logger.Debug("state transition",
		zap.String("actor", a.id),
		zap.String("name", a.profile.Name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	a.env.Presenter.Play(a.id, to.String())
	a.emit(Event{Kind: EventStateChanged, From: from, To: to})
}

// enterFor enters to and arms the state timer to call next after d.
func (a *Actor) enterFor(to State, d time.Duration, next func()) {
	a.enter(to)
	a.stateTimer = a.env.Clock.After(d, next)
}

func (a *Actor) backToIdle() {
	if a.IsDead() {
		return
	}
	a.enter(StateIdle)
}

func (a *Actor) emit(e Event) {
	e.Actor = a
	a.bus.emit(e)
}

func (a *Actor) stopTimer(t **clock.Timer) {
	(*t).Stop()
	*t = nil
}

func (a *Actor) stopAllTimers() {
	a.stopTimer(&a.windupTimer)
	a.stopTimer(&a.hitTimer)
	a.stopTimer(&a.finishTimer)
	a.stopTimer(&a.stateTimer)
	a.stopTimer(&a.comboTimer)
	a.stopTimer(&a.regenDelay)
	a.stopTimer(&a.regenTimer)
}

func roundDamage(v float64) int {
	return int(math.Round(v))
}
