// Package slot persists checkpoints to a per-user local save directory.
package slot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/checkpoint"
)

const savesObject = "checkpoints"

// Store keeps one yaml document per slot under the application's data
// directory. It implements checkpoint.Store.
type Store struct {
	manager *gdata.Manager
	logger  *zap.Logger
}

// Open creates a Store rooted at the data directory for appName.
//
// Precondition: appName must be non-empty.
// Postcondition: Returns a usable Store or a non-nil error.
func Open(appName string, logger *zap.Logger) (*Store, error) {
	if appName == "" {
		return nil, errors.New("slot: app name must not be empty")
	}
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("opening save data for %q: %w", appName, err)
	}
	return New(m, logger), nil
}

// New wraps an already opened gdata manager.
//
// Precondition: m must be non-nil.
func New(m *gdata.Manager, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{manager: m, logger: logger}
}

// Save writes snap as yaml under its slot key, replacing any previous save.
func (s *Store) Save(_ context.Context, snap checkpoint.Snapshot) error {
	key, err := slotKey(snap.Slot)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding checkpoint %q: %w", snap.Slot, err)
	}
	if err := s.manager.SaveObjectProp(savesObject, key, data); err != nil {
		return fmt.Errorf("writing checkpoint %q: %w", snap.Slot, err)
	}
	s.logger.Debug("checkpoint written to local slot",
		zap.String("slot", snap.Slot),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Load reads the slot back.
//
// Postcondition: Returns checkpoint.ErrCheckpointNotFound when the slot was never written.
func (s *Store) Load(_ context.Context, slot string) (checkpoint.Snapshot, error) {
	key, err := slotKey(slot)
	if err != nil {
		return checkpoint.Snapshot{}, err
	}
	if !s.manager.ObjectPropExists(savesObject, key) {
		return checkpoint.Snapshot{}, checkpoint.ErrCheckpointNotFound
	}
	data, err := s.manager.LoadObjectProp(savesObject, key)
	if err != nil {
		return checkpoint.Snapshot{}, fmt.Errorf("reading checkpoint %q: %w", slot, err)
	}
	var snap checkpoint.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return checkpoint.Snapshot{}, fmt.Errorf("decoding checkpoint %q: %w", slot, err)
	}
	snap.Slot = slot
	return snap, nil
}

// slotKey maps a slot name onto a file-safe property key.
func slotKey(slot string) (string, error) {
	if strings.TrimSpace(slot) == "" {
		return "", errors.New("checkpoint slot must not be empty")
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, slot), nil
}
