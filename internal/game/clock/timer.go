package clock

import "time"

// Timer is a handle to one armed callback on a Clock.
//
// All methods are nil-safe so holders can keep a zero-value field and call
// Stop unconditionally.
type Timer struct {
	clock  *Clock
	fn     func()
	at     time.Duration
	seq    uint64
	period time.Duration
	index  int

	paused    bool
	remaining time.Duration
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: Returns true iff the timer was armed or paused.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	if t.paused {
		t.paused = false
		return true
	}
	return t.clock.unschedule(t)
}

// Reset re-arms the timer to fire d from now with its original callback.
//
// Postcondition: The timer is active and unpaused.
func (t *Timer) Reset(d time.Duration) {
	if t == nil {
		return
	}
	t.clock.unschedule(t)
	t.paused = false
	t.clock.schedule(t, d)
}

// Active reports whether the timer will fire in the future.
func (t *Timer) Active() bool {
	return t != nil && t.index >= 0
}

// Paused reports whether the timer is held by Pause.
func (t *Timer) Paused() bool {
	return t != nil && t.paused
}

// Remaining returns the virtual time left before the timer fires.
//
// Postcondition: Returns 0 for a stopped or nil timer.
func (t *Timer) Remaining() time.Duration {
	switch {
	case t == nil:
		return 0
	case t.paused:
		return t.remaining
	case t.index < 0:
		return 0
	default:
		return t.at - t.clock.now
	}
}

// Pause freezes the remaining time of an active timer. No-op otherwise.
func (t *Timer) Pause() {
	if !t.Active() {
		return
	}
	t.remaining = t.at - t.clock.now
	t.clock.unschedule(t)
	t.paused = true
}

// Resume re-arms a paused timer with the time it had left. No-op otherwise.
func (t *Timer) Resume() {
	if t == nil || !t.paused {
		return
	}
	t.paused = false
	t.clock.schedule(t, t.remaining)
}
