// Package checkpoint saves and restores progress through a level: which
// encounters are complete and where the player stood.
package checkpoint

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ErrCheckpointNotFound is returned when a slot has never been saved.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// Snapshot is one saved checkpoint.
type Snapshot struct {
	Slot                string     `yaml:"slot"`
	CompletedEncounters []string   `yaml:"completed_encounters"`
	PlayerHealth        int        `yaml:"player_health"`
	PlayerPosition      combat.Vec `yaml:"player_position"`
	SavedAt             time.Time  `yaml:"saved_at"`
}

// Completed reports whether the snapshot lists encounter id as complete.
func (s Snapshot) Completed(id string) bool {
	for _, c := range s.CompletedEncounters {
		if c == id {
			return true
		}
	}
	return false
}

// Store persists snapshots by slot.
type Store interface {
	// Save overwrites the slot.
	Save(ctx context.Context, snap Snapshot) error
	// Load returns the slot, or ErrCheckpointNotFound.
	Load(ctx context.Context, slot string) (Snapshot, error)
}

// MemoryStore keeps snapshots in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]Snapshot)}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.CompletedEncounters = normalize(snap.CompletedEncounters)
	m.slots[snap.Slot] = snap
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, slot string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.slots[slot]
	if !ok {
		return Snapshot{}, ErrCheckpointNotFound
	}
	snap.CompletedEncounters = append([]string(nil), snap.CompletedEncounters...)
	return snap, nil
}

// normalize sorts ids and drops duplicates, returning a new slice.
func normalize(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	kept := out[:0]
	for i, id := range out {
		if i == 0 || id != out[i-1] {
			kept = append(kept, id)
		}
	}
	return kept
}
