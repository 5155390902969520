package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/game/checkpoint"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ErrCheckpointNotFound is returned when a slot has no saved checkpoint.
var ErrCheckpointNotFound = checkpoint.ErrCheckpointNotFound

// CheckpointRepository stores checkpoints in the checkpoints and
// checkpoint_encounters tables. It implements checkpoint.Store.
type CheckpointRepository struct {
	db *pgxpool.Pool
}

// NewCheckpointRepository creates a CheckpointRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCheckpointRepository(db *pgxpool.Pool) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Save overwrites the slot in a single transaction.
//
// Precondition: snap.Slot must be non-empty.
// Postcondition: The slot row and its encounter rows match snap exactly.
func (r *CheckpointRepository) Save(ctx context.Context, snap checkpoint.Snapshot) error {
	if snap.Slot == "" {
		return errors.New("checkpoint slot must not be empty")
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning checkpoint transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO checkpoints (slot, player_health, player_x, player_y, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slot) DO UPDATE
		SET player_health = EXCLUDED.player_health,
		    player_x      = EXCLUDED.player_x,
		    player_y      = EXCLUDED.player_y,
		    saved_at      = EXCLUDED.saved_at`,
		snap.Slot, snap.PlayerHealth, snap.PlayerPosition.X, snap.PlayerPosition.Y, snap.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting checkpoint: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM checkpoint_encounters WHERE slot = $1`, snap.Slot); err != nil {
		return fmt.Errorf("clearing checkpoint encounters: %w", err)
	}
	batch := &pgx.Batch{}
	for _, id := range snap.CompletedEncounters {
		batch.Queue(`
			INSERT INTO checkpoint_encounters (slot, encounter_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, snap.Slot, id)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			if isForeignKeyError(err) {
				return fmt.Errorf("inserting checkpoint encounters: slot %q vanished: %w", snap.Slot, err)
			}
			return fmt.Errorf("inserting checkpoint encounters: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing checkpoint: %w", err)
	}
	return nil
}

// Load returns the slot with its completed encounters sorted by ID.
//
// Postcondition: Returns ErrCheckpointNotFound when the slot was never saved.
func (r *CheckpointRepository) Load(ctx context.Context, slot string) (checkpoint.Snapshot, error) {
	snap := checkpoint.Snapshot{Slot: slot}
	var pos combat.Vec
	err := r.db.QueryRow(ctx, `
		SELECT player_health, player_x, player_y, saved_at
		FROM checkpoints WHERE slot = $1`, slot,
	).Scan(&snap.PlayerHealth, &pos.X, &pos.Y, &snap.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return checkpoint.Snapshot{}, ErrCheckpointNotFound
		}
		return checkpoint.Snapshot{}, fmt.Errorf("loading checkpoint: %w", err)
	}
	snap.PlayerPosition = pos

	rows, err := r.db.Query(ctx, `
		SELECT encounter_id FROM checkpoint_encounters
		WHERE slot = $1 ORDER BY encounter_id ASC`, slot)
	if err != nil {
		return checkpoint.Snapshot{}, fmt.Errorf("loading checkpoint encounters: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return checkpoint.Snapshot{}, fmt.Errorf("scanning checkpoint encounters: %w", err)
	}
	snap.CompletedEncounters = ids
	return snap, nil
}

// Delete removes the slot and its encounters. Deleting a missing slot is not an error.
func (r *CheckpointRepository) Delete(ctx context.Context, slot string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM checkpoints WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// Slots lists every saved slot, most recent first.
func (r *CheckpointRepository) Slots(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT slot FROM checkpoints ORDER BY saved_at DESC, slot ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	slots, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning checkpoints: %w", err)
	}
	return slots, nil
}
