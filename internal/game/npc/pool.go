package npc

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ParkingSpot is where pooled units wait, far outside any encounter.
var ParkingSpot = combat.Vec{X: -1e6, Y: -1e6}

type pooled struct {
	template   string
	generation uint64
}

// Pool is a freelist of hostiles keyed by template ID. Released units are
// reset and parked; Acquire hands them out again before building new ones.
// All methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	factory *Factory
	manager *Manager
	logger  *zap.Logger
	free    map[string][]*combat.Actor
	origin  map[*combat.Actor]pooled
}

// NewPool creates an empty pool backed by factory. manager may be nil.
//
// Precondition: factory must be non-nil.
func NewPool(factory *Factory, manager *Manager, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		factory: factory,
		manager: manager,
		logger:  logger,
		free:    make(map[string][]*combat.Actor),
		origin:  make(map[*combat.Actor]pooled),
	}
}

// Acquire returns a ready unit of the template: a pooled one when available,
// otherwise a freshly built one.
//
// Postcondition: The unit is Idle at full health with no subscribers.
func (p *Pool) Acquire(template string) (*combat.Actor, error) {
	if a, ok := p.Get(template); ok {
		return a, nil
	}
	a, err := p.factory.Build(template)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.origin[a] = pooled{template: template, generation: p.factory.Generation()}
	p.mu.Unlock()
	if p.manager != nil {
		p.manager.Track(a)
	}
	p.logger.Debug("unit allocated", zap.String("template", template), zap.String("actor", a.ID()))
	return a, nil
}

// Get returns the first pooled unit of the template, reset to defaults.
// Units built before the last template reload are discarded.
func (p *Pool) Get(template string) (*combat.Actor, bool) {
	gen := p.factory.Generation()
	p.mu.Lock()
	var a *combat.Actor
	for len(p.free[template]) > 0 {
		head := p.free[template][0]
		p.free[template] = p.free[template][1:]
		if p.origin[head].generation == gen {
			a = head
			break
		}
		delete(p.origin, head)
	}
	p.mu.Unlock()
	if a == nil {
		return nil, false
	}
	a.Reset()
	if p.manager != nil {
		p.manager.Track(a)
	}
	return a, true
}

// Release returns a unit to the pool. Units the pool never handed out are
// ignored.
//
// Postcondition: The unit is reset, parked and available to Get.
func (p *Pool) Release(a *combat.Actor) {
	if a == nil {
		return
	}
	p.mu.Lock()
	info, ok := p.origin[a]
	if ok {
		for _, f := range p.free[info.template] {
			if f == a {
				ok = false
				break
			}
		}
	}
	if ok {
		p.free[info.template] = append(p.free[info.template], a)
	}
	p.mu.Unlock()
	if !ok {
		p.logger.Debug("release ignored", zap.String("actor", a.ID()))
		return
	}
	if p.manager != nil {
		p.manager.Remove(a.ID())
	}
	a.Reset()
	a.SetPosition(ParkingSpot)
}

// Put is Release under the freelist's own name.
func (p *Pool) Put(a *combat.Actor) { p.Release(a) }

// Free returns the number of pooled units of the template.
func (p *Pool) Free(template string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[template])
}

// Purge drops every pooled unit.
func (p *Pool) Purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, units := range p.free {
		for _, a := range units {
			delete(p.origin, a)
		}
	}
	p.free = make(map[string][]*combat.Actor)
}
