package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"resonance-server/internal/packet"
	"resonance-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing inventory repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) getExecutor(tx *database.Tx) database.Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

func scanInventory(row interface{ Scan(dest ...interface{}) error }) (*Inventory, error) {
	var inv Inventory
	var compositionJSON []byte
	err := row.Scan(
		&inv.ActorID,
		&compositionJSON,
		&inv.TotalCount,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(compositionJSON, &inv.Composition); err != nil {
		return nil, fmt.Errorf("failed to decode inventory composition: %w", err)
	}
	return &inv, nil
}

func (r *Repository) GetInventory(ctx context.Context, actorID int) (*Inventory, error) {
	logger := r.logger.With("component", "inventory_repository", "operation", "get", "actor_id", actorID)
	logger.Debug("Getting inventory")

	query := `SELECT actor_id, composition, total_count, updated_at FROM inventories WHERE actor_id = $1`

	inv, err := scanInventory(r.db.QueryRowContext(ctx, query, actorID))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No inventory row yet")
			return nil, nil
		}
		logger.Error("Database error getting inventory", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return inv, nil
}

// GetInventoryForUpdate locks the actor's inventory row for the rest of
// the transaction. Missing rows return nil without creating one.
func (r *Repository) GetInventoryForUpdate(ctx context.Context, tx *database.Tx, actorID int) (*Inventory, error) {
	logger := r.logger.With("component", "inventory_repository", "operation", "get_for_update", "actor_id", actorID)
	logger.Debug("Locking inventory row")

	query := `SELECT actor_id, composition, total_count, updated_at FROM inventories WHERE actor_id = $1 FOR UPDATE`

	inv, err := scanInventory(tx.QueryRowContext(ctx, query, actorID))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No inventory row yet")
			return nil, nil
		}
		logger.Error("Database error locking inventory", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return inv, nil
}

// EnsureRow creates an empty inventory row if the actor has none. A row
// must exist before FOR UPDATE can serialize concurrent credits on it.
func (r *Repository) EnsureRow(ctx context.Context, tx *database.Tx, actorID int) error {
	exec := r.getExecutor(tx)

	logger := r.logger.With("component", "inventory_repository", "operation", "ensure_row", "actor_id", actorID)
	logger.Debug("Ensuring inventory row exists")

	query := `
		INSERT INTO inventories (actor_id, composition, total_count, updated_at)
		VALUES ($1, '[]', 0, NOW())
		ON CONFLICT (actor_id) DO NOTHING
	`

	if _, err := exec.ExecContext(ctx, query, actorID); err != nil {
		logger.Error("Failed to ensure inventory row", "error", err)
		return fmt.Errorf("failed to ensure inventory row: %w", err)
	}

	return nil
}

// UpsertInventory writes the actor's composition, creating the row on
// first use.
func (r *Repository) UpsertInventory(ctx context.Context, tx *database.Tx, actorID int, composition []packet.WavePacket) error {
	exec := r.getExecutor(tx)

	total := packet.Total(composition)
	logger := r.logger.With(
		"component", "inventory_repository",
		"operation", "upsert",
		"actor_id", actorID,
		"total_count", total,
	)
	logger.Debug("Upserting inventory")

	compositionJSON, err := json.Marshal(composition)
	if err != nil {
		logger.Error("Failed to marshal composition", "error", err)
		return fmt.Errorf("failed to marshal composition: %w", err)
	}
	if composition == nil {
		compositionJSON = []byte("[]")
	}

	query := `
		INSERT INTO inventories (actor_id, composition, total_count, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (actor_id)
		DO UPDATE SET composition = EXCLUDED.composition,
			total_count = EXCLUDED.total_count,
			updated_at = NOW()
	`

	if _, err := exec.ExecContext(ctx, query, actorID, compositionJSON, total); err != nil {
		logger.Error("Failed to upsert inventory", "error", err)
		return fmt.Errorf("failed to upsert inventory: %w", err)
	}

	return nil
}
