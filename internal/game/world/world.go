// Package world holds one level session: the clock, the player, the unit
// pool and every encounter of the level, advanced together by Tick.
package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/checkpoint"
	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// ErrClosed is returned by Call once the world has stopped accepting work.
var ErrClosed = errors.New("world closed")

// Default ranges and delays applied when Options leaves them zero.
const (
	DefaultSightRange   = 1500.0
	DefaultRespawnDelay = 3 * time.Second
)

// Options configures a World.
type Options struct {
	Tuning      combat.Tuning
	Timing      encounter.Timing
	Definitions []*encounter.Definition
	Templates   []*npc.Template
	Roller      *dice.Roller
	Logger      *zap.Logger
	Presenter   combat.Presenter

	// Scripts is optional. When set it backs the brute chooser and the
	// encounter hooks.
	Scripts *scripting.Manager
	// Registry is optional. Without it hostiles queue an attack whenever idle.
	Registry *ai.Registry
	// FallbackDomain is the AI domain of templates that name none.
	FallbackDomain string

	Store checkpoint.Store
	Slot  string

	// SightRange is how close a placed hostile must be to perceive the player.
	SightRange float64
	// RespawnDelay is the pause between the player's death and the reload.
	RespawnDelay time.Duration
	// PlayerName names the player actor.
	PlayerName string
}

// World is one level session.
//
// Every method except Do, Call and Close must run on the world goroutine:
// the goroutine calling Tick, or a function passed to Do or Call.
type World struct {
	opts    Options
	logger  *zap.Logger
	clock   *clock.Clock
	env     *combat.Env
	player  *combat.Actor
	factory *npc.Factory
	units   *npc.Manager
	pool    *npc.Pool
	thinker encounter.Thinker
	hooks   encounter.Hooks
	saves   *checkpoint.Service

	volumes  []*encounter.Volume
	byID     map[string]*encounter.Volume
	triggers []*checkpoint.Trigger

	ctx          context.Context
	inCombat     bool
	reloading    bool
	respawnTimer *clock.Timer

	// OnCombatChange, when set, observes combat mode transitions.
	OnCombatChange func(inCombat bool)

	qmu    sync.Mutex
	queue  []func()
	closed bool
}

// New assembles a World with every encounter dormant and the player at the
// first encounter's start position.
//
// Precondition: opts.Roller and opts.Store must be non-nil; opts.Slot must be non-empty.
// Postcondition: Returns an error when a placed unit cannot be built.
func New(opts Options) (*World, error) {
	if opts.Roller == nil {
		return nil, errors.New("world: roller must not be nil")
	}
	if opts.Store == nil {
		return nil, errors.New("world: checkpoint store must not be nil")
	}
	if opts.Slot == "" {
		return nil, errors.New("world: save slot must not be empty")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SightRange <= 0 {
		opts.SightRange = DefaultSightRange
	}
	if opts.RespawnDelay <= 0 {
		opts.RespawnDelay = DefaultRespawnDelay
	}
	if opts.PlayerName == "" {
		opts.PlayerName = "player"
	}

	clk := clock.New()
	env := combat.NewEnv(clk, opts.Roller, opts.Logger, opts.Presenter, opts.Tuning)
	// Templates with overrides get a copy of env, so the chooser is set first.
	if opts.Scripts != nil {
		env.Chooser = scripting.BruteChooser{Scripts: opts.Scripts}
	}
	w := &World{
		opts:   opts,
		logger: opts.Logger,
		clock:  clk,
		env:    env,
		units:  npc.NewManager(),
		ctx:    context.Background(),
	}
	w.player = combat.NewPlayer(env, opts.PlayerName)
	w.player.Subscribe("world", w.onPlayerEvent)
	w.factory = npc.NewFactory(env, opts.Templates)
	w.pool = npc.NewPool(w.factory, w.units, opts.Logger)

	if opts.Registry != nil {
		w.thinker = ai.NewBrain(opts.Registry, opts.FallbackDomain, opts.Logger)
	} else {
		w.thinker = eagerThinker{}
	}
	if opts.Scripts != nil {
		w.hooks = liveHooks{w: w, next: scripting.EncounterHooks{Scripts: opts.Scripts}}
		opts.Scripts.LookupActor = w.lookupActor
	}

	w.saves = checkpoint.NewService(opts.Store, opts.Slot, w.player, opts.Logger)
	w.saves.OnReload = w.rebuild

	if err := w.build(); err != nil {
		return nil, err
	}
	for _, d := range opts.Definitions {
		if d.Checkpoint != nil {
			w.triggers = append(w.triggers, checkpoint.NewTrigger(d.ID, *d.Checkpoint))
		}
	}
	if len(opts.Definitions) > 0 {
		w.player.SetPosition(opts.Definitions[0].PlayerStart)
	}
	return w, nil
}

// build creates a fresh dormant Volume for every definition.
func (w *World) build() error {
	w.volumes = w.volumes[:0]
	w.byID = make(map[string]*encounter.Volume, len(w.opts.Definitions))
	w.saves.Reset()
	for _, d := range w.opts.Definitions {
		v, err := d.Build(w.env, w.player, w.opts.Timing, encounter.Options{
			Thinker:    w.thinker,
			Hooks:      w.hooks,
			Recycler:   w.pool,
			Source:     w.pool,
			OnComplete: w.onEncounterComplete,
		})
		if err != nil {
			return fmt.Errorf("building encounter %q: %w", d.ID, err)
		}
		w.volumes = append(w.volumes, v)
		w.byID[d.ID] = v
		w.saves.RegisterEncounter(v)
	}
	return nil
}

// rebuild retires every encounter and builds the level again. It runs
// between killing the active units and restoring the snapshot.
func (w *World) rebuild() {
	for _, v := range w.volumes {
		v.MarkComplete()
		v.Flush()
	}
	w.respawnTimer.Stop()
	w.respawnTimer = nil
	if err := w.build(); err != nil {
		w.logger.Error("rebuilding level failed", zap.Error(err))
	}
	w.setCombat(false)
}

// Spawn places the player and writes the spawn checkpoint when the slot
// has never been saved. ctx is kept for saves triggered later in the session.
func (w *World) Spawn(ctx context.Context) error {
	w.ctx = ctx
	if w.saves.ShouldSaveAtSpawn(ctx) {
		if err := w.saves.SaveGame(ctx); err != nil {
			return err
		}
	}
	w.logger.Info("player spawned",
		zap.String("actor", w.player.ID()),
		zap.Float64("x", w.player.Position().X),
		zap.Float64("y", w.player.Position().Y),
	)
	w.sense()
	return nil
}

// Tick runs queued work, advances the clock by dt and re-evaluates perception.
func (w *World) Tick(dt time.Duration) {
	w.drain()
	w.clock.Advance(dt)
	w.sense()
	w.updateCombat()
}

// MovePlayer moves the player and feeds every trigger.
func (w *World) MovePlayer(p combat.Vec) {
	if w.player.IsDead() {
		return
	}
	w.player.SetPosition(p)
	for _, v := range w.volumes {
		v.UpdatePlayerPosition(p)
	}
	for _, t := range w.triggers {
		if t.Enter(p) {
			w.logger.Info("checkpoint reached", zap.String("checkpoint", t.ID))
			if err := w.saves.SaveGame(w.ctx); err != nil {
				w.logger.Warn("checkpoint save failed", zap.String("checkpoint", t.ID), zap.Error(err))
			}
		}
	}
	w.sense()
	w.updateCombat()
}

// sense lets hostiles of dormant encounters perceive a player standing inside.
// An encounter without placed units perceives the player on entry.
func (w *World) sense() {
	if w.player.IsDead() {
		return
	}
	pos := w.player.Position()
	for _, v := range w.volumes {
		if v.Phase() != encounter.PhaseDormant || !v.PlayerInside() {
			continue
		}
		units := v.ContainedUnits()
		if len(units) == 0 {
			v.Sighted(nil)
			continue
		}
		for _, u := range units {
			if u.Position().Distance(pos) <= w.opts.SightRange {
				v.Sighted(u)
				break
			}
		}
	}
}

func (w *World) updateCombat() {
	active := false
	for _, v := range w.volumes {
		if v.IsActive() {
			active = true
			break
		}
	}
	w.setCombat(active)
}

func (w *World) setCombat(on bool) {
	if on == w.inCombat {
		return
	}
	w.inCombat = on
	cue := "combat_exit"
	if on {
		cue = "combat_enter"
	}
	w.env.Presenter.Play(w.player.ID(), cue)
	w.logger.Info("combat mode changed", zap.Bool("in_combat", on))
	if w.OnCombatChange != nil {
		w.OnCombatChange(on)
	}
}

func (w *World) onEncounterComplete(v *encounter.Volume) {
	if w.byID[v.ID()] != v {
		return
	}
	w.updateCombat()
}

func (w *World) onPlayerEvent(e combat.Event) {
	if e.Kind != combat.EventDied {
		return
	}
	w.logger.Info("player died", zap.Duration("respawn_in", w.opts.RespawnDelay))
	w.respawnTimer = w.clock.After(w.opts.RespawnDelay, func() {
		w.respawnTimer = nil
		if _, err := w.ReloadLastSave(w.ctx); err != nil {
			w.logger.Error("reload after death failed", zap.Error(err))
		}
	})
}

// SaveGame writes a checkpoint now.
func (w *World) SaveGame(ctx context.Context) error { return w.saves.SaveGame(ctx) }

// ReloadLastSave restores the last checkpoint and rebuilds the level.
//
// Postcondition: Returns checkpoint.ErrCheckpointNotFound, unchanged, when
// nothing was saved.
func (w *World) ReloadLastSave(ctx context.Context) (checkpoint.Snapshot, error) {
	w.reloading = true
	defer func() { w.reloading = false }()
	snap, err := w.saves.ReloadLastSave(ctx)
	if err != nil {
		return snap, err
	}
	for _, v := range w.volumes {
		v.UpdatePlayerPosition(w.player.Position())
	}
	w.sense()
	w.updateCombat()
	return snap, nil
}

// ReloadTemplates swaps the archetype templates used by future spawns.
func (w *World) ReloadTemplates(templates []*npc.Template) {
	w.factory.Replace(templates)
	w.logger.Info("templates reloaded",
		zap.Int("templates", len(templates)),
		zap.Uint64("generation", w.factory.Generation()),
	)
}

// Do queues fn to run on the world goroutine at the start of the next Tick.
// It is safe to call from any goroutine. Work queued after Close is dropped.
func (w *World) Do(fn func()) {
	w.qmu.Lock()
	defer w.qmu.Unlock()
	if w.closed {
		return
	}
	w.queue = append(w.queue, fn)
}

// Call queues fn and waits for it to run.
//
// Postcondition: Returns ctx.Err() if ctx ends first, ErrClosed after Close,
// otherwise fn's error.
func (w *World) Call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	w.qmu.Lock()
	if w.closed {
		w.qmu.Unlock()
		return ErrClosed
	}
	w.queue = append(w.queue, func() { done <- fn() })
	w.qmu.Unlock()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting queued work.
func (w *World) Close() {
	w.qmu.Lock()
	defer w.qmu.Unlock()
	w.closed = true
	w.queue = nil
}

func (w *World) drain() {
	w.qmu.Lock()
	work := w.queue
	w.queue = nil
	w.qmu.Unlock()
	for _, fn := range work {
		fn()
	}
}

func (w *World) lookupActor(id string) *scripting.ActorInfo {
	if id == w.player.ID() {
		return scripting.SnapshotActor(w.player)
	}
	if a, ok := w.units.Get(id); ok {
		return scripting.SnapshotActor(a)
	}
	return nil
}

// Clock returns the world clock.
func (w *World) Clock() *clock.Clock { return w.clock }

// Env returns the shared combat context.
func (w *World) Env() *combat.Env { return w.env }

// Player returns the player actor.
func (w *World) Player() *combat.Actor { return w.player }

// Pool returns the unit pool.
func (w *World) Pool() *npc.Pool { return w.pool }

// Units returns the live hostile registry.
func (w *World) Units() *npc.Manager { return w.units }

// Checkpoints returns the save service.
func (w *World) Checkpoints() *checkpoint.Service { return w.saves }

// InCombat reports whether any encounter is active.
func (w *World) InCombat() bool { return w.inCombat }

// Volumes returns the encounters in definition order.
func (w *World) Volumes() []*encounter.Volume {
	return append([]*encounter.Volume(nil), w.volumes...)
}

// Volume returns the encounter with the given ID.
func (w *World) Volume(id string) (*encounter.Volume, bool) {
	v, ok := w.byID[id]
	return v, ok
}

// Complete reports whether every encounter is complete.
func (w *World) Complete() bool {
	for _, v := range w.volumes {
		if !v.IsComplete() {
			return false
		}
	}
	return true
}

// liveHooks drops milestones raised while the level is being torn down for a reload.
type liveHooks struct {
	w    *World
	next encounter.Hooks
}

func (h liveHooks) OnWaveStart(id string, index int) {
	if !h.w.reloading {
		h.next.OnWaveStart(id, index)
	}
}

func (h liveHooks) OnEncounterComplete(id string) {
	if !h.w.reloading {
		h.next.OnEncounterComplete(id)
	}
}

// eagerThinker queues every idle hostile for an attack.
type eagerThinker struct{}

func (eagerThinker) Think(squad ai.Squad, unit *combat.Actor) ai.PlannedAction {
	if unit == nil || unit.IsDead() || unit.State() != combat.StateIdle {
		return ai.PlannedAction{Action: ai.ActionHold}
	}
	squad.RequestAttack(unit)
	return ai.PlannedAction{Action: ai.ActionQueueAttack}
}
