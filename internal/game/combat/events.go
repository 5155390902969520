package combat

// EventKind names the notifications an Actor publishes.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventDamaged
	EventDied
	EventAttackStarted
	EventAttackFinished
	EventCounterWindow
	EventCounterResolved
)

var eventNames = [...]string{
	"state_changed", "damaged", "died", "attack_started", "attack_finished",
	"counter_window", "counter_resolved",
}

// String returns the event name.
func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is one notification published by an Actor.
//
// Field use by kind:
//   - EventStateChanged: From, To.
//   - EventDamaged: Amount, Source, Damage, Attack.
//   - EventDied: Source, Damage.
//   - EventAttackStarted: Class.
//   - EventAttackFinished: Class, Cancelled.
//   - EventCounterWindow: Other (the victim), Open.
//   - EventCounterResolved: Other (the victim).
type Event struct {
	Kind      EventKind
	Actor     *Actor
	From, To  State
	Amount    int
	Source    *Actor
	Damage    DamageKind
	Attack    AttackType
	Class     AttackClass
	Cancelled bool
	Other     *Actor
	Open      bool
}

// Handler receives actor events synchronously on the world goroutine.
type Handler func(Event)

type subscription struct {
	key string
	fn  Handler
}

// eventBus dispatches to subscribers in registration order.
type eventBus struct {
	subs []subscription
}

func (b *eventBus) subscribe(key string, fn Handler) {
	for i := range b.subs {
		if b.subs[i].key == key {
			b.subs[i].fn = fn
			return
		}
	}
	b.subs = append(b.subs, subscription{key: key, fn: fn})
}

func (b *eventBus) unsubscribe(key string) {
	for i := range b.subs {
		if b.subs[i].key == key {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *eventBus) clear() {
	b.subs = nil
}

// emit snapshots the subscriber list so handlers may unsubscribe during dispatch.
func (b *eventBus) emit(e Event) {
	if len(b.subs) == 0 {
		return
	}
	snapshot := make([]subscription, len(b.subs))
	copy(snapshot, b.subs)
	for _, s := range snapshot {
		s.fn(e)
	}
}
