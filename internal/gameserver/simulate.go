package gameserver

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/game/world"
)

// Simulation defaults.
const (
	DefaultSimulationStep = 50 * time.Millisecond
	DefaultWalkSpeed      = 600.0
)

// timelineCues are the presenter cues worth a timeline line.
var timelineCues = map[string]bool{
	"death":          true,
	"counter_window": true,
	"counter":        true,
	"stun":           true,
	"fire":           true,
	"slam_impact":    true,
	"wall_hit":       true,
	"combat_enter":   true,
	"combat_exit":    true,
}

// Entry is one timeline line.
type Entry struct {
	At    time.Duration
	Actor string
	Name  string
	Cue   string
}

// Timeline is a presenter that records notable cues against virtual time and
// optionally echoes them to a writer.
type Timeline struct {
	out     io.Writer
	now     func() time.Duration
	names   func(id string) string
	entries []Entry
}

// NewTimeline returns a Timeline echoing to out; out may be nil.
func NewTimeline(out io.Writer) *Timeline {
	return &Timeline{out: out}
}

// Bind sets the time source and the actor name lookup.
func (t *Timeline) Bind(now func() time.Duration, names func(id string) string) {
	t.now = now
	t.names = names
}

// Play implements combat.Presenter.
func (t *Timeline) Play(actorID, cue string) {
	if !timelineCues[cue] {
		return
	}
	t.record(Entry{Actor: actorID, Cue: cue})
}

// Note records a free-form line such as an encounter phase change.
func (t *Timeline) Note(subject, what string) {
	t.record(Entry{Name: subject, Cue: what})
}

func (t *Timeline) record(e Entry) {
	if t.now != nil {
		e.At = t.now()
	}
	if e.Name == "" {
		e.Name = e.Actor
		if t.names != nil {
			e.Name = t.names(e.Actor)
		}
	}
	t.entries = append(t.entries, e)
	if t.out != nil {
		fmt.Fprintf(t.out, "%10s  %-20s %s\n", e.At.Truncate(time.Millisecond), e.Name, e.Cue)
	}
}

// Entries returns every recorded line in order.
func (t *Timeline) Entries() []Entry { return t.entries }

// Count returns how many entries carry cue. With actor set only that actor's
// entries count; with exclude set, every actor but that one.
func (t *Timeline) Count(cue, actor string, exclude bool) int {
	n := 0
	for _, e := range t.entries {
		if e.Cue != cue {
			continue
		}
		if actor != "" && (e.Actor == actor) == exclude {
			continue
		}
		n++
	}
	return n
}

var _ combat.Presenter = (*Timeline)(nil)

// Report summarises a finished simulation.
type Report struct {
	Duration     time.Duration
	Finished     bool
	Completed    []string
	PlayerDeaths int
	Kills        int
	Counters     int
}

// Simulation plays a world in virtual time with a scripted player: walk to
// the next unfinished encounter, counter whenever a window is open, otherwise
// swing at the nearest hostile.
type Simulation struct {
	world    *world.World
	timeline *Timeline
	logger   *zap.Logger

	// Step is the virtual time advanced per tick.
	Step time.Duration
	// WalkSpeed is the player's travel speed in units per second.
	WalkSpeed float64
	// Limit caps the virtual time the run may take.
	Limit time.Duration

	phases map[string]encounter.Phase
}

// NewSimulation binds timeline to w. The timeline must be the presenter w was
// built with.
//
// Precondition: w and timeline must be non-nil; limit > 0.
func NewSimulation(w *world.World, timeline *Timeline, limit time.Duration, logger *zap.Logger) *Simulation {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeline.Bind(w.Clock().Now, func(id string) string {
		if id == w.Player().ID() {
			return w.Player().Name()
		}
		if a, ok := w.Units().Get(id); ok {
			return a.Name()
		}
		return id
	})
	return &Simulation{
		world:     w,
		timeline:  timeline,
		logger:    logger,
		Step:      DefaultSimulationStep,
		WalkSpeed: DefaultWalkSpeed,
		Limit:     limit,
		phases:    make(map[string]encounter.Phase),
	}
}

// Run spawns the player and ticks until every encounter is complete, the
// limit is reached, or ctx is cancelled. The calling goroutine is the world
// goroutine for the duration.
func (s *Simulation) Run(ctx context.Context) (Report, error) {
	w := s.world
	if err := w.Spawn(ctx); err != nil {
		return Report{}, err
	}
	s.observe()
	finished := false
	for w.Clock().Now() < s.Limit {
		if err := ctx.Err(); err != nil {
			return s.report(false), err
		}
		s.act()
		w.Tick(s.Step)
		s.observe()
		if w.Complete() {
			finished = true
			break
		}
	}
	r := s.report(finished)
	s.logger.Info("simulation finished",
		zap.Duration("virtual_time", r.Duration),
		zap.Bool("finished", r.Finished),
		zap.Strings("completed", r.Completed),
		zap.Int("kills", r.Kills),
		zap.Int("player_deaths", r.PlayerDeaths),
		zap.Int("counters", r.Counters),
	)
	return r, nil
}

func (s *Simulation) act() {
	w := s.world
	player := w.Player()
	if player.IsDead() {
		return
	}
	if player.Counter().CounterCapable() {
		player.Evade()
		return
	}
	target := s.nextEncounter()
	if target == nil {
		return
	}
	if target.IsActive() {
		if h := target.NearestHostile(player.Position()); h != nil {
			player.Attack(h)
		}
		return
	}
	s.walkToward(target.Region().Center)
}

func (s *Simulation) nextEncounter() *encounter.Volume {
	for _, v := range s.world.Volumes() {
		if !v.IsComplete() {
			return v
		}
	}
	return nil
}

func (s *Simulation) walkToward(dst combat.Vec) {
	pos := s.world.Player().Position()
	d := pos.Distance(dst)
	if d == 0 {
		return
	}
	stride := s.WalkSpeed * s.Step.Seconds()
	if stride >= d {
		s.world.MovePlayer(dst)
		return
	}
	f := stride / d
	s.world.MovePlayer(combat.Vec{X: pos.X + (dst.X-pos.X)*f, Y: pos.Y + (dst.Y-pos.Y)*f})
}

// observe notes every encounter phase change since the last call.
func (s *Simulation) observe() {
	for _, v := range s.world.Volumes() {
		prev, seen := s.phases[v.ID()]
		if seen && prev == v.Phase() {
			continue
		}
		s.phases[v.ID()] = v.Phase()
		if !seen && v.Phase() == encounter.PhaseDormant {
			continue
		}
		s.timeline.Note(v.ID(), "encounter "+v.Phase().String())
	}
}

func (s *Simulation) report(finished bool) Report {
	w := s.world
	var completed []string
	for _, v := range w.Volumes() {
		if v.IsComplete() {
			completed = append(completed, v.ID())
		}
	}
	sort.Strings(completed)
	pid := w.Player().ID()
	return Report{
		Duration:     w.Clock().Now(),
		Finished:     finished,
		Completed:    completed,
		PlayerDeaths: s.timeline.Count("death", pid, false),
		Kills:        s.timeline.Count("death", pid, true),
		Counters:     s.timeline.Count("counter", pid, false),
	}
}
