package npc

import (
	"strings"
	"sync"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// Manager indexes every live hostile by actor ID.
// All methods are safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	actors map[string]*combat.Actor
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{actors: make(map[string]*combat.Actor)}
}

// Track registers a under its ID. Tracking twice is a no-op.
//
// Precondition: a must be non-nil.
func (m *Manager) Track(a *combat.Actor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors[a.ID()] = a
}

// Remove forgets the actor with the given ID. Idempotent.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.actors, id)
}

// Get returns the actor with the given ID.
//
// Postcondition: Returns (a, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id string) (*combat.Actor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actors[id]
	return a, ok
}

// Len returns the number of tracked actors.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actors)
}

// FindByName returns a tracked actor whose Name has target as a
// case-insensitive prefix. Returns nil if no match is found.
func (m *Manager) FindByName(target string) *combat.Actor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lower := strings.ToLower(target)
	for _, a := range m.actors {
		if strings.HasPrefix(strings.ToLower(a.Name()), lower) {
			return a
		}
	}
	return nil
}
