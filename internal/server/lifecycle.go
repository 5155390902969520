// Package server runs the long-lived services of a process and tears them
// down on a signal, a cancelled context or the first service failure.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultStopTimeout bounds how long Run waits on one service's Stop.
const DefaultStopTimeout = 10 * time.Second

// Service is a component that runs until its context ends.
type Service interface {
	// Start blocks until ctx is cancelled, Stop is called, or the
	// service fails.
	Start(ctx context.Context) error
	// Stop must be safe to call after Start has returned.
	Stop()
}

// FuncService adapts plain functions to Service. StopFn may be nil.
type FuncService struct {
	StartFn func(ctx context.Context) error
	StopFn  func()
}

func (f *FuncService) Start(ctx context.Context) error { return f.StartFn(ctx) }

func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

type entry struct {
	name string
	svc  Service
}

// Lifecycle starts services together and stops them last-added first.
type Lifecycle struct {
	logger      *zap.Logger
	signals     []os.Signal
	stopTimeout time.Duration

	mu      sync.Mutex
	entries []entry
}

// Option adjusts a Lifecycle.
type Option func(*Lifecycle)

// WithSignals replaces the default SIGINT/SIGTERM set. No signals means
// only ctx or a failure ends Run.
func WithSignals(sigs ...os.Signal) Option {
	return func(l *Lifecycle) { l.signals = sigs }
}

// WithStopTimeout overrides DefaultStopTimeout.
func WithStopTimeout(d time.Duration) Option {
	return func(l *Lifecycle) { l.stopTimeout = d }
}

// NewLifecycle returns an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		logger:      logger,
		signals:     []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		stopTimeout: DefaultStopTimeout,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Add registers svc under name.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
	l.mu.Unlock()
}

// Names lists registered services in start order.
func (l *Lifecycle) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		names = append(names, e.name)
	}
	return names
}

// Run blocks until shutdown is triggered, then stops every service.
//
// Postcondition: every Start has returned. The error is the first service
// failure, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()
	l.mu.Lock()
	entries := append([]entry(nil), l.entries...)
	l.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		l.logger.Info("starting service", zap.String("service", e.name))
		g.Go(func() error {
			up := time.Now()
			if err := e.svc.Start(gctx); err != nil {
				l.logger.Error("service failed",
					zap.String("service", e.name),
					zap.Duration("uptime", time.Since(up)),
					zap.Error(err),
				)
				return fmt.Errorf("service %s: %w", e.name, err)
			}
			return nil
		})
	}
	l.logger.Info("all services started", zap.Int("count", len(entries)))

	sigCh := make(chan os.Signal, 1)
	if len(l.signals) > 0 {
		signal.Notify(sigCh, l.signals...)
		defer signal.Stop(sigCh)
	}
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
	case <-gctx.Done():
		if ctx.Err() == nil {
			l.logger.Warn("service error, shutting down")
		} else {
			l.logger.Info("context cancelled, shutting down")
		}
	}

	cancel()
	for i := len(entries) - 1; i >= 0; i-- {
		l.stop(entries[i])
	}
	err := g.Wait()
	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(began)))
	return err
}

func (l *Lifecycle) stop(e entry) {
	began := time.Now()
	done := make(chan struct{})
	go func() {
		e.svc.Stop()
		close(done)
	}()
	select {
	case <-done:
		l.logger.Info("service stopped",
			zap.String("service", e.name),
			zap.Duration("elapsed", time.Since(began)),
		)
	case <-time.After(l.stopTimeout):
		l.logger.Warn("service stop timed out",
			zap.String("service", e.name),
			zap.Duration("timeout", l.stopTimeout),
		)
	}
}
