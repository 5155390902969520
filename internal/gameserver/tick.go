// Package gameserver wires a world into long-running services: the real-time
// tick, content hot reload, the gRPC health endpoint and the virtual-time
// simulation.
package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
)

// Ticker is the world surface the tick service drives.
type Ticker interface {
	Tick(dt time.Duration)
}

// TickService advances a world by the wall-clock time elapsed between ticks.
// The ticker goroutine is the world goroutine while the service runs.
//
// Invariant: Tick is never called concurrently.
type TickService struct {
	ticker *clock.Ticker
	logger *zap.Logger
	maxDt  time.Duration
}

// NewTickService returns a service that ticks target every interval. A single
// tick never advances more than maxDt; zero means four intervals.
//
// Precondition: interval must be > 0; target must be non-nil.
func NewTickService(target Ticker, interval, maxDt time.Duration, logger *zap.Logger) *TickService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDt <= 0 {
		maxDt = 4 * interval
	}
	s := &TickService{logger: logger, maxDt: maxDt}
	s.ticker = clock.NewTicker(interval, func(elapsed time.Duration) {
		if elapsed > s.maxDt {
			s.logger.Debug("tick overran, clamping",
				zap.Duration("elapsed", elapsed),
				zap.Duration("max", s.maxDt),
			)
			elapsed = s.maxDt
		}
		target.Tick(elapsed)
	})
	return s
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
func (s *TickService) Start(ctx context.Context) error {
	s.ticker.Start(ctx)
	select {
	case <-ctx.Done():
	case <-s.ticker.Done():
	}
	return nil
}

// Stop halts the loop and waits for the in-flight tick.
func (s *TickService) Stop() { s.ticker.Stop() }

// Running reports whether the loop is active.
func (s *TickService) Running() bool { return s.ticker.Running() }
