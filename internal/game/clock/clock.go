// Package clock provides the virtual-time timer queue that drives every
// combat and encounter timer. Time only moves when the owner calls Advance,
// which makes whole encounters reproducible under test.
package clock

import (
	"container/heap"
	"time"
)

// Clock is a virtual-time priority queue of one-shot and repeating timers.
//
// Clock is NOT safe for concurrent use. Exactly one goroutine (the world tick)
// may call Advance or arm timers.
type Clock struct {
	now   time.Duration
	seq   uint64
	queue timerHeap
}

// New returns a Clock positioned at virtual time zero.
func New() *Clock {
	return &Clock{}
}

// Now returns the current virtual time measured from the clock's creation.
func (c *Clock) Now() time.Duration { return c.now }

// After arms a one-shot timer that calls fn once d has elapsed.
//
// Precondition: fn must not be nil. d <= 0 fires on the next Advance.
// Postcondition: Returns an active Timer.
func (c *Clock) After(d time.Duration, fn func()) *Timer {
	t := &Timer{clock: c, fn: fn, index: -1}
	c.schedule(t, d)
	return t
}

// Every arms a repeating timer that calls fn every period.
//
// Precondition: period > 0; fn must not be nil.
// Postcondition: Returns an active Timer that re-arms itself until stopped.
func (c *Clock) Every(period time.Duration, fn func()) *Timer {
	if period <= 0 {
		panic("clock.Every: period must be > 0")
	}
	t := &Timer{clock: c, fn: fn, period: period, index: -1}
	c.schedule(t, period)
	return t
}

// Advance moves virtual time forward by d, firing every due timer in
// (deadline, arm order) order. Timers armed by callbacks fire within the same
// call when they fall due before the new time.
//
// Postcondition: Now() has increased by max(d, 0). Returns the number of callbacks fired.
func (c *Clock) Advance(d time.Duration) int {
	if d < 0 {
		d = 0
	}
	return c.AdvanceTo(c.now + d)
}

// AdvanceTo moves virtual time forward to target. A target in the past is a no-op.
func (c *Clock) AdvanceTo(target time.Duration) int {
	fired := 0
	for c.queue.Len() > 0 && c.queue[0].at <= target {
		t := heap.Pop(&c.queue).(*Timer)
		c.now = t.at
		if t.period > 0 {
			c.schedule(t, t.period)
		}
		fired++
		t.fn()
	}
	if target > c.now {
		c.now = target
	}
	return fired
}

// Pending returns the number of armed timers.
func (c *Clock) Pending() int { return c.queue.Len() }

// NextDeadline returns the earliest armed deadline.
//
// Postcondition: ok is false when no timer is armed.
func (c *Clock) NextDeadline() (at time.Duration, ok bool) {
	if c.queue.Len() == 0 {
		return 0, false
	}
	return c.queue[0].at, true
}

func (c *Clock) schedule(t *Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.seq++
	t.at = c.now + d
	t.seq = c.seq
	heap.Push(&c.queue, t)
}

func (c *Clock) unschedule(t *Timer) bool {
	if t.index < 0 {
		return false
	}
	heap.Remove(&c.queue, t.index)
	return true
}

// timerHeap orders timers by deadline, then by arm sequence.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at == h[j].at {
		return h[i].seq < h[j].seq
	}
	return h[i].at < h[j].at
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
