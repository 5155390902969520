package encounter

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
)

// Wave is one group of spawn points that activates together.
type Wave struct {
	SpawnPoints []SpawnPoint
	// SpawnStartTime is the delay from the previous wave's start (or from
	// encounter activation for wave 0).
	SpawnStartTime time.Duration
	// CompletionPercent starts the wave early once that share of all units
	// so far is defeated. Zero or less disables the early start.
	CompletionPercent float64
}

// WaveDirector activates waves strictly in order, each exactly once.
//
// WaveDirector is NOT safe for concurrent use.
type WaveDirector struct {
	clk    *clock.Clock
	logger *zap.Logger
	waves  []Wave
	source UnitSource
	spawn  SpawnHandler

	// current is the wave waiting to start, or len(waves) when dormant.
	current  int
	started  []bool
	timer    *clock.Timer
	total    int
	defeated int

	onWaveStart func(index int)
}

// NewWaveDirector creates a director before its first wave.
//
// Precondition: clk must be non-nil.
func NewWaveDirector(clk *clock.Clock, logger *zap.Logger, waves []Wave) *WaveDirector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaveDirector{
		clk:     clk,
		logger:  logger,
		waves:   waves,
		current: -1,
		started: make([]bool, len(waves)),
	}
}

// SetUnitSource sets the pool handed to every spawn point on wave start.
func (d *WaveDirector) SetUnitSource(src UnitSource) { d.source = src }

// SetSpawnHandler sets the callback handed to every spawn point on wave start.
func (d *WaveDirector) SetSpawnHandler(h SpawnHandler) { d.spawn = h }

// OnWaveStart registers a callback run after a wave begins spawning.
func (d *WaveDirector) OnWaveStart(fn func(index int)) { d.onWaveStart = fn }

// AddUnits counts n units that did not come from a wave, such as pre-placed ones.
func (d *WaveDirector) AddUnits(n int) {
	if n > 0 {
		d.total += n
	}
}

// StartSpawn activates every spawn point of the current wave, then moves on
// to the next wave.
//
// Postcondition: No-op when dormant or when the current wave already started.
func (d *WaveDirector) StartSpawn() {
	if d.current < 0 || d.current >= len(d.waves) || d.started[d.current] {
		return
	}
	d.timer.Stop()
	d.timer = nil
	index := d.current
	d.started[index] = true
	planned := 0
	for _, sp := range d.waves[index].SpawnPoints {
		planned += sp.PlannedSpawnCount()
	}
	d.total += planned
	d.logger.Info("wave started",
		zap.Int("wave", index),
		zap.Int("planned", planned),
		zap.Int("total_units", d.total),
		zap.Int("defeated_units", d.defeated),
	)
	for _, sp := range d.waves[index].SpawnPoints {
		sp.SetUnitSource(d.source)
		sp.SetSpawnHandler(d.spawn)
		sp.StartSpawningUnits()
	}
	if d.onWaveStart != nil {
		d.onWaveStart(index)
	}
	d.TriggerNextWave()
}

// TriggerNextWave advances to the next wave and arms its start timer.
//
// Postcondition: Past the last wave the director goes dormant.
func (d *WaveDirector) TriggerNextWave() {
	if d.current >= len(d.waves) {
		return
	}
	if d.current >= 0 && !d.started[d.current] {
		return
	}
	d.timer.Stop()
	d.timer = nil
	d.current++
	if d.current >= len(d.waves) {
		d.logger.Debug("wave director dormant", zap.Int("waves", len(d.waves)))
		return
	}
	d.timer = d.clk.After(d.waves[d.current].SpawnStartTime, d.StartSpawn)
	if d.thresholdMet() {
		d.startEarly()
	}
}

// RegisterUnitDestroyed counts a defeated unit and starts the pending wave
// early once its kill threshold is reached. Kills before the first wave is
// armed still count; the threshold is checked again when it is armed.
func (d *WaveDirector) RegisterUnitDestroyed() {
	if d.current >= len(d.waves) || (d.current >= 0 && d.started[d.current]) {
		return
	}
	d.defeated++
	if d.current >= 0 && d.thresholdMet() {
		d.startEarly()
	}
}

// thresholdMet compares the kill ratio with the pending wave's percentage.
// With no units counted the ratio is zero, so nothing starts early.
func (d *WaveDirector) thresholdMet() bool {
	pct := d.waves[d.current].CompletionPercent
	if pct <= 0 || d.total == 0 || d.defeated == 0 {
		return false
	}
	return float64(d.defeated)/float64(d.total) >= pct/100
}

func (d *WaveDirector) startEarly() {
	d.logger.Info("wave threshold reached",
		zap.Int("wave", d.current),
		zap.Int("defeated_units", d.defeated),
		zap.Int("total_units", d.total),
		zap.Float64("percent", d.waves[d.current].CompletionPercent),
	)
	d.StartSpawn()
}

// AllSpawnsComplete reports whether every wave has started and every spawn
// point has placed its last unit.
func (d *WaveDirector) AllSpawnsComplete() bool {
	for i, w := range d.waves {
		if !d.started[i] {
			return false
		}
		for _, sp := range w.SpawnPoints {
			if !sp.IsSpawningComplete() {
				return false
			}
		}
	}
	return true
}

// Stop cancels the pending wave timer and every spawn point.
func (d *WaveDirector) Stop() {
	d.timer.Stop()
	d.timer = nil
	for _, w := range d.waves {
		for _, sp := range w.SpawnPoints {
			sp.StopSpawningUnits()
		}
	}
}

// Current returns the index of the wave waiting to start; -1 before the
// first trigger and len(waves) once dormant.
func (d *WaveDirector) Current() int { return d.current }

// Started reports whether wave i began spawning.
func (d *WaveDirector) Started(i int) bool { return i >= 0 && i < len(d.started) && d.started[i] }

// Dormant reports whether every wave has been handled.
func (d *WaveDirector) Dormant() bool { return d.current >= len(d.waves) }

// TotalUnits returns the number of units counted so far.
func (d *WaveDirector) TotalUnits() int { return d.total }

// DefeatedUnits returns the number of kills counted toward thresholds.
func (d *WaveDirector) DefeatedUnits() int { return d.defeated }
