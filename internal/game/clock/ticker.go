package clock

import (
	"context"
	"sync"
	"time"
)

// Ticker drives a virtual clock from wall time, reporting the real time that
// elapsed since the previous tick. It is safe for concurrent use.
type Ticker struct {
	interval time.Duration
	onTick   func(elapsed time.Duration)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewTicker creates a stopped Ticker.
//
// Precondition: interval > 0; onTick must not be nil.
func NewTicker(interval time.Duration, onTick func(elapsed time.Duration)) *Ticker {
	if interval <= 0 {
		panic("clock.NewTicker: interval must be > 0")
	}
	return &Ticker{interval: interval, onTick: onTick}
}

// Start launches the tick loop. onTick runs on the loop goroutine.
//
// Postcondition: No-op when already running. The loop ends when ctx is
// cancelled or Stop is called.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true
	go t.loop(ctx, t.done)
}

// Stop ends the tick loop and waits for an in-progress tick to finish.
// Safe to call multiple times.
//
// Postcondition: onTick will not be called after Stop returns.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	cancel, done := t.cancel, t.done
	t.mu.Unlock()
	cancel()
	<-done
}

// Done returns a channel closed when the current loop exits. It is nil
// before the first Start.
func (t *Ticker) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Running reports whether the loop is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Ticker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tk.C:
			if ctx.Err() != nil {
				return
			}
			t.onTick(now.Sub(last))
			last = now
		}
	}
}
