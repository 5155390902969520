package clock_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
)

func TestTicker_ReportsElapsedTime(t *testing.T) {
	var ticks, total atomic.Int64
	tk := clock.NewTicker(5*time.Millisecond, func(elapsed time.Duration) {
		ticks.Add(1)
		total.Add(int64(elapsed))
	})
	tk.Start(context.Background())
	tk.Start(context.Background())
	assert.True(t, tk.Running())

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	tk.Stop()
	tk.Stop()
	assert.False(t, tk.Running())
	assert.Positive(t, total.Load())

	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "no ticks after Stop")
}

func TestTicker_StopsWithContext(t *testing.T) {
	var ticks atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	tk := clock.NewTicker(2*time.Millisecond, func(time.Duration) { ticks.Add(1) })
	tk.Start(ctx)
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)
	cancel()
	tk.Stop()
	after := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestTicker_DoneClosesOnStop(t *testing.T) {
	tk := clock.NewTicker(2*time.Millisecond, func(time.Duration) {})
	assert.Nil(t, tk.Done())
	tk.Start(context.Background())
	done := tk.Done()
	require.NotNil(t, done)
	select {
	case <-done:
		t.Fatal("done closed while running")
	default:
	}
	tk.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done not closed after Stop")
	}
}

func TestTicker_DrivesVirtualClock(t *testing.T) {
	clk := clock.New()
	fired := make(chan struct{})
	clk.After(10*time.Millisecond, func() { close(fired) })

	tk := clock.NewTicker(time.Millisecond, func(elapsed time.Duration) { clk.Advance(elapsed) })
	tk.Start(context.Background())
	defer tk.Stop()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("virtual timer never fired")
	}
}

func TestNewTicker_RejectsZeroInterval(t *testing.T) {
	assert.Panics(t, func() { clock.NewTicker(0, func(time.Duration) {}) })
}
