package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
)

// Service saves the level's progress and restores it.
//
// Service is NOT safe for concurrent use; it runs on the world goroutine.
type Service struct {
	store  Store
	slot   string
	player *combat.Actor
	logger *zap.Logger
	now    func() time.Time

	volumes []*encounter.Volume
	saved   bool

	// OnReload runs between killing the active units and applying the
	// snapshot, typically to rebuild the level's encounters. It may call
	// Reset and RegisterEncounter.
	OnReload func()
}

// NewService creates a Service for one save slot.
//
// Precondition: store and player must be non-nil; slot must be non-empty.
func NewService(store Store, slot string, player *combat.Actor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, slot: slot, player: player, logger: logger, now: time.Now}
}

// SetClock replaces the wall clock used for SavedAt.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Slot returns the save slot name.
func (s *Service) Slot() string { return s.slot }

// RegisterEncounter tracks v for saving and restoring. Registering twice is a no-op.
func (s *Service) RegisterEncounter(v *encounter.Volume) {
	for _, r := range s.volumes {
		if r == v {
			return
		}
	}
	s.volumes = append(s.volumes, v)
}

// Reset forgets every registered encounter.
func (s *Service) Reset() { s.volumes = nil }

// Encounters returns the registered encounters.
func (s *Service) Encounters() []*encounter.Volume {
	return append([]*encounter.Volume(nil), s.volumes...)
}

// SaveGame writes the completed encounters and the player's condition.
//
// Postcondition: The slot holds a snapshot listing every complete encounter.
func (s *Service) SaveGame(ctx context.Context) error {
	snap := Snapshot{
		Slot:           s.slot,
		PlayerHealth:   s.player.Health(),
		PlayerPosition: s.player.Position(),
		SavedAt:        s.now().UTC(),
	}
	for _, v := range s.volumes {
		if v.IsComplete() {
			snap.CompletedEncounters = append(snap.CompletedEncounters, v.ID())
		}
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving checkpoint %q: %w", s.slot, err)
	}
	s.saved = true
	s.logger.Info("checkpoint saved",
		zap.String("slot", s.slot),
		zap.Strings("completed", snap.CompletedEncounters),
		zap.Int("player_health", snap.PlayerHealth),
	)
	return nil
}

// ReloadLastSave kills every active unit, runs OnReload, then restores the
// last snapshot: the player is revived at the saved position and every saved
// encounter is marked complete.
//
// Postcondition: Returns ErrCheckpointNotFound when the slot is empty, in
// which case nothing changes.
func (s *Service) ReloadLastSave(ctx context.Context) (Snapshot, error) {
	snap, err := s.store.Load(ctx, s.slot)
	if err != nil {
		if errors.Is(err, ErrCheckpointNotFound) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("loading checkpoint %q: %w", s.slot, err)
	}
	s.KillActiveUnits()
	if s.OnReload != nil {
		s.OnReload()
	}
	s.Restore(snap)
	s.logger.Info("checkpoint restored",
		zap.String("slot", s.slot),
		zap.Strings("completed", snap.CompletedEncounters),
		zap.Time("saved_at", snap.SavedAt),
	)
	return snap, nil
}

// Restore applies snap to the player and the registered encounters.
func (s *Service) Restore(snap Snapshot) {
	s.player.Revive(snap.PlayerHealth)
	s.player.SetPosition(snap.PlayerPosition)
	for _, v := range s.volumes {
		if snap.Completed(v.ID()) && !v.IsComplete() {
			v.MarkComplete()
		}
	}
}

// KillActiveUnits removes, without reward, every unit of every encounter
// that is not complete.
func (s *Service) KillActiveUnits() {
	for _, v := range s.volumes {
		if !v.IsComplete() {
			v.KillUnits()
		}
	}
}

// ShouldSaveAtSpawn reports whether the player's spawn should write a
// checkpoint: true until the first save of this session when the slot is empty.
func (s *Service) ShouldSaveAtSpawn(ctx context.Context) bool {
	if s.saved {
		return false
	}
	_, err := s.store.Load(ctx, s.slot)
	if errors.Is(err, ErrCheckpointNotFound) {
		return true
	}
	if err != nil {
		s.logger.Warn("checking checkpoint failed", zap.String("slot", s.slot), zap.Error(err))
	}
	return false
}
