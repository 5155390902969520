package encounter

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// Phase is the lifecycle stage of a Volume.
type Phase int

const (
	PhaseDormant Phase = iota
	PhaseActive
	PhaseComplete
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseComplete:
		return "complete"
	}
	return "dormant"
}

// Region is a circular trigger area.
type Region struct {
	Center combat.Vec `yaml:"center"`
	Radius float64    `yaml:"radius"`
}

// Contains reports whether p lies inside r.
func (r Region) Contains(p combat.Vec) bool {
	return r.Center.Distance(p) <= r.Radius
}

// Timing holds the encounter-level delays.
type Timing struct {
	StartDelay       time.Duration
	AttackDelayBasic time.Duration
	AttackDelayHeavy time.Duration
	DespawnDelay     time.Duration
	ThinkInterval    time.Duration
}

// DefaultTiming returns the stock encounter delays.
func DefaultTiming() Timing {
	return Timing{
		StartDelay:       time.Second,
		AttackDelayBasic: 3 * time.Second,
		AttackDelayHeavy: 3 * time.Second,
		DespawnDelay:     5 * time.Second,
		ThinkInterval:    500 * time.Millisecond,
	}
}

// Thinker decides what an idle hostile does next.
type Thinker interface {
	Think(squad ai.Squad, unit *combat.Actor) ai.PlannedAction
}

// Hooks receives encounter milestones, typically forwarded to Lua.
type Hooks interface {
	OnWaveStart(encounterID string, index int)
	OnEncounterComplete(encounterID string)
}

// Recycler takes back a dead unit once its corpse has lingered.
type Recycler interface {
	Release(unit *combat.Actor)
}

// Options are the optional collaborators of a Volume.
type Options struct {
	Thinker  Thinker
	Hooks    Hooks
	Recycler Recycler
	Source   UnitSource
	// OnComplete runs once when the volume completes, restored or not.
	OnComplete func(v *Volume)
}

// Volume coordinates one encounter: trigger detection, attack turns, waves
// and completion bookkeeping.
//
// Invariant: the phase only moves Dormant → Active → Complete, or straight to
// Complete through MarkComplete.
//
// Volume is NOT safe for concurrent use.
type Volume struct {
	id     string
	region Region
	timing Timing
	env    *combat.Env
	logger *zap.Logger
	player *combat.Actor
	opts   Options

	scheduler *Scheduler
	director  *WaveDirector

	phase        Phase
	playerInside bool
	perceived    bool

	contained []*combat.Actor
	despawns  map[*combat.Actor]*clock.Timer

	startTimer *clock.Timer
	thinkTimer *clock.Timer
}

// NewVolume creates a dormant encounter.
//
// Precondition: env and player must be non-nil.
func NewVolume(id string, region Region, timing Timing, env *combat.Env, player *combat.Actor, waves []Wave, opts Options) *Volume {
	logger := env.Logger.With(zap.String("encounter", id))
	v := &Volume{
		id:        id,
		region:    region,
		timing:    timing,
		env:       env,
		logger:    logger,
		player:    player,
		opts:      opts,
		scheduler: NewScheduler(env.Clock, env.Roller, logger, timing.AttackDelayBasic, timing.AttackDelayHeavy),
		director:  NewWaveDirector(env.Clock, logger, waves),
		despawns:  make(map[*combat.Actor]*clock.Timer),
	}
	v.director.SetUnitSource(opts.Source)
	v.director.SetSpawnHandler(v.admit)
	v.director.OnWaveStart(func(index int) {
		if v.opts.Hooks != nil {
			v.opts.Hooks.OnWaveStart(v.id, index)
		}
	})
	return v
}

// ID returns the stable encounter ID.
func (v *Volume) ID() string { return v.id }

// Player returns the player this encounter fights.
func (v *Volume) Player() *combat.Actor { return v.player }

// Region returns the trigger area.
func (v *Volume) Region() Region { return v.region }

// Phase returns the lifecycle stage.
func (v *Volume) Phase() Phase { return v.phase }

// IsActive reports whether the fight is on.
func (v *Volume) IsActive() bool { return v.phase == PhaseActive }

// IsComplete reports whether the encounter finished. Once true it stays true.
func (v *Volume) IsComplete() bool { return v.phase == PhaseComplete }

// Scheduler returns the attack turn scheduler.
func (v *Volume) Scheduler() *Scheduler { return v.scheduler }

// Director returns the wave director.
func (v *Volume) Director() *WaveDirector { return v.director }

// ContainedUnits returns the living hostiles currently in the encounter.
func (v *Volume) ContainedUnits() []*combat.Actor {
	out := make([]*combat.Actor, len(v.contained))
	copy(out, v.contained)
	return out
}

// AddUnit places a pre-existing hostile in the encounter.
func (v *Volume) AddUnit(unit *combat.Actor) {
	if v.phase == PhaseComplete || unit == nil || unit.IsDead() {
		return
	}
	v.admit(unit)
	if v.phase == PhaseActive {
		v.director.AddUnits(1)
	}
}

// UpdatePlayerPosition feeds the player's location into the trigger.
func (v *Volume) UpdatePlayerPosition(p combat.Vec) {
	v.playerInside = v.region.Contains(p)
	v.tryActivate()
}

// Sighted records that a hostile perceived the player.
func (v *Volume) Sighted(by *combat.Actor) {
	if by != nil && by.Team() != combat.TeamHostile {
		return
	}
	v.perceived = true
	v.tryActivate()
}

// PlayerInside reports the last trigger reading.
func (v *Volume) PlayerInside() bool { return v.playerInside }

// Allies returns the living hostiles of the encounter other than unit.
func (v *Volume) Allies(unit *combat.Actor) []*combat.Actor {
	out := make([]*combat.Actor, 0, len(v.contained))
	for _, u := range v.contained {
		if u != unit && !u.IsDead() {
			out = append(out, u)
		}
	}
	return out
}

// GetAlliesForPawn returns the encounter allies of unit, or nil when unit is
// not part of this encounter.
func (v *Volume) GetAlliesForPawn(unit *combat.Actor) []*combat.Actor {
	if v.indexOf(unit) < 0 {
		return nil
	}
	return v.Allies(unit)
}

// RequestAttack queues unit for an attack turn under its class.
func (v *Volume) RequestAttack(unit *combat.Actor) {
	if v.phase != PhaseActive || v.indexOf(unit) < 0 {
		return
	}
	v.scheduler.Enqueue(unit, unit.Class())
}

// KillUnits removes every contained unit without reward.
func (v *Volume) KillUnits() {
	for _, u := range v.ContainedUnits() {
		u.Kill()
	}
}

// MarkComplete force-completes the encounter, used when restoring a save.
//
// Postcondition: IsComplete; contained units are dead without reward; no
// more units spawn.
func (v *Volume) MarkComplete() {
	if v.phase == PhaseComplete {
		return
	}
	v.phase = PhaseComplete
	v.director.Stop()
	v.KillUnits()
	v.shutdown()
	v.logger.Info("encounter marked complete")
	if v.opts.OnComplete != nil {
		v.opts.OnComplete(v)
	}
}

func (v *Volume) tryActivate() {
	if v.phase != PhaseDormant || !v.playerInside || !v.perceived {
		return
	}
	if v.player == nil || v.player.IsDead() {
		return
	}
	v.phase = PhaseActive
	v.director.AddUnits(len(v.contained))
	for _, u := range v.contained {
		u.SetTarget(v.player)
	}
	if c := v.player.Counter(); c != nil {
		c.Bind(v.id, v.scheduler)
	}
	v.startTimer = v.env.Clock.After(v.timing.StartDelay, func() {
		v.startTimer = nil
		v.director.TriggerNextWave()
		v.checkCompletion()
	})
	if v.opts.Thinker != nil && v.timing.ThinkInterval > 0 {
		v.thinkTimer = v.env.Clock.Every(v.timing.ThinkInterval, v.think)
	}
	v.logger.Info("encounter activated",
		zap.Int("contained_units", len(v.contained)),
		zap.Duration("start_delay", v.timing.StartDelay),
	)
}

// admit takes a unit into the encounter and wires its events.
func (v *Volume) admit(unit *combat.Actor) {
	if unit == nil || v.indexOf(unit) >= 0 {
		return
	}
	if v.phase == PhaseComplete {
		unit.Kill()
		return
	}
	v.contained = append(v.contained, unit)
	unit.Subscribe(v.subscriptionKey(), v.onUnitEvent)
	if v.phase == PhaseActive {
		unit.SetTarget(v.player)
	}
}

func (v *Volume) subscriptionKey() string { return "encounter:" + v.id }

func (v *Volume) onUnitEvent(e combat.Event) {
	switch e.Kind {
	case combat.EventAttackFinished:
		v.scheduler.NotifyAttackCompleted(e.Actor, e.Class)
	case combat.EventDied:
		v.onUnitDied(e.Actor, e.Damage != combat.DamageExecute)
	}
}

func (v *Volume) onUnitDied(unit *combat.Actor, reward bool) {
	i := v.indexOf(unit)
	if i < 0 {
		return
	}
	v.contained = append(v.contained[:i], v.contained[i+1:]...)
	v.scheduler.Remove(unit)
	v.logger.Info("unit destroyed",
		zap.String("actor", unit.ID()),
		zap.String("name", unit.Name()),
		zap.Bool("reward", reward),
		zap.Int("remaining", len(v.contained)),
	)
	if reward && v.phase == PhaseActive {
		v.director.RegisterUnitDestroyed()
	}
	v.scheduleDespawn(unit)
	if v.phase == PhaseActive && v.opts.Thinker != nil {
		for _, ally := range v.Allies(nil) {
			v.opts.Thinker.Think(v, ally)
		}
	}
	v.checkCompletion()
}

func (v *Volume) scheduleDespawn(unit *combat.Actor) {
	unit.Unsubscribe(v.subscriptionKey())
	if v.opts.Recycler == nil {
		return
	}
	v.despawns[unit] = v.env.Clock.After(v.timing.DespawnDelay, func() {
		delete(v.despawns, unit)
		v.opts.Recycler.Release(unit)
	})
}

func (v *Volume) think() {
	if v.phase != PhaseActive {
		return
	}
	for _, u := range v.ContainedUnits() {
		v.opts.Thinker.Think(v, u)
	}
}

func (v *Volume) checkCompletion() {
	if v.phase != PhaseActive || v.startTimer.Active() {
		return
	}
	if len(v.contained) > 0 || !v.director.AllSpawnsComplete() {
		return
	}
	v.phase = PhaseComplete
	v.shutdown()
	v.logger.Info("encounter complete",
		zap.Int("total_units", v.director.TotalUnits()),
		zap.Int("defeated_units", v.director.DefeatedUnits()),
	)
	if v.opts.Hooks != nil {
		v.opts.Hooks.OnEncounterComplete(v.id)
	}
	if v.opts.OnComplete != nil {
		v.opts.OnComplete(v)
	}
}

// shutdown releases everything the active phase held, except despawn timers.
func (v *Volume) shutdown() {
	v.startTimer.Stop()
	v.startTimer = nil
	v.thinkTimer.Stop()
	v.thinkTimer = nil
	v.scheduler.Clear()
	if v.player != nil {
		if c := v.player.Counter(); c != nil {
			c.Unbind(v.id)
		}
	}
}

// Flush immediately recycles every lingering corpse.
func (v *Volume) Flush() {
	for unit, t := range v.despawns {
		t.Stop()
		delete(v.despawns, unit)
		if v.opts.Recycler != nil {
			v.opts.Recycler.Release(unit)
		}
	}
}

// Lingering returns how many corpses await recycling.
func (v *Volume) Lingering() int { return len(v.despawns) }

func (v *Volume) indexOf(unit *combat.Actor) int {
	for i, u := range v.contained {
		if u == unit {
			return i
		}
	}
	return -1
}

// NearestHostile returns the living contained unit closest to p, or nil.
func (v *Volume) NearestHostile(p combat.Vec) *combat.Actor {
	var best *combat.Actor
	bestD := math.Inf(1)
	for _, u := range v.contained {
		if u.IsDead() {
			continue
		}
		if d := u.Position().Distance(p); d < bestD {
			best, bestD = u, d
		}
	}
	return best
}

var _ ai.Squad = (*Volume)(nil)
