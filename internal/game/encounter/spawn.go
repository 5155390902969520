package encounter

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// UnitSource hands out ready-to-place hostiles, recycled or freshly built.
type UnitSource interface {
	Acquire(archetype string) (*combat.Actor, error)
}

// SpawnHandler receives every unit a spawn point places.
type SpawnHandler func(unit *combat.Actor)

// SpawnPoint produces the units of one wave entry.
type SpawnPoint interface {
	SetUnitSource(src UnitSource)
	SetSpawnHandler(h SpawnHandler)
	StartSpawningUnits()
	StopSpawningUnits()
	IsSpawningComplete() bool
	PlannedSpawnCount() int
}

// TimedSpawnPoint places Count units of one template at Position, the first
// immediately and the rest every Interval.
type TimedSpawnPoint struct {
	Template string
	Count    int
	Interval time.Duration
	Position combat.Vec

	clk     *clock.Clock
	logger  *zap.Logger
	source  UnitSource
	handler SpawnHandler
	timer   *clock.Timer
	started bool
	stopped bool
	placed  int
}

// NewTimedSpawnPoint creates an idle spawn point.
//
// Precondition: clk must be non-nil; count < 0 is treated as 0.
func NewTimedSpawnPoint(clk *clock.Clock, logger *zap.Logger, template string, count int, interval time.Duration, pos combat.Vec) *TimedSpawnPoint {
	if logger == nil {
		logger = zap.NewNop()
	}
	if count < 0 {
		count = 0
	}
	return &TimedSpawnPoint{
		Template: template,
		Count:    count,
		Interval: interval,
		Position: pos,
		clk:      clk,
		logger:   logger,
	}
}

// SetUnitSource sets where units come from.
func (p *TimedSpawnPoint) SetUnitSource(src UnitSource) { p.source = src }

// SetSpawnHandler sets the callback for placed units.
func (p *TimedSpawnPoint) SetSpawnHandler(h SpawnHandler) { p.handler = h }

// StartSpawningUnits begins placing units. Only the first call has an effect.
func (p *TimedSpawnPoint) StartSpawningUnits() {
	if p.started {
		return
	}
	p.started = true
	if p.Interval <= 0 {
		for !p.IsSpawningComplete() {
			p.spawnOne()
		}
		return
	}
	p.spawnOne()
	if !p.IsSpawningComplete() {
		p.timer = p.clk.Every(p.Interval, p.tick)
	}
}

// StopSpawningUnits abandons any units not yet placed.
func (p *TimedSpawnPoint) StopSpawningUnits() {
	p.stopped = true
	p.timer.Stop()
	p.timer = nil
}

// IsSpawningComplete reports whether the point will place no more units.
func (p *TimedSpawnPoint) IsSpawningComplete() bool {
	return p.stopped || p.placed >= p.Count
}

// PlannedSpawnCount returns the number of units the point intends to place.
func (p *TimedSpawnPoint) PlannedSpawnCount() int { return p.Count }

// Placed returns how many units were placed so far.
func (p *TimedSpawnPoint) Placed() int { return p.placed }

func (p *TimedSpawnPoint) tick() {
	p.spawnOne()
	if p.IsSpawningComplete() {
		p.timer.Stop()
		p.timer = nil
	}
}

// spawnOne places one unit. A failed acquisition still consumes the slot so
// the point always completes.
func (p *TimedSpawnPoint) spawnOne() {
	if p.IsSpawningComplete() {
		return
	}
	p.placed++
	if p.source == nil {
		p.logger.Warn("spawn point has no unit source", zap.String("template", p.Template))
		return
	}
	unit, err := p.source.Acquire(p.Template)
	if err != nil {
		p.logger.Warn("acquiring unit failed", zap.String("template", p.Template), zap.Error(err))
		return
	}
	unit.SetPosition(p.Position)
	p.logger.Debug("unit spawned",
		zap.String("template", p.Template),
		zap.String("actor", unit.ID()),
		zap.Int("placed", p.placed),
		zap.Int("count", p.Count),
	)
	if p.handler != nil {
		p.handler(unit)
	}
}
