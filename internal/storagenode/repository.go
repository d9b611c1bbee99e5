package storagenode

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"resonance-server/internal/packet"
	"resonance-server/internal/shared/database"
	"resonance-server/internal/shared/errors"

	"github.com/lib/pq"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing storage node repository")

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

const nodeColumns = `id, owner_actor_id, name, world_x, world_y, world_z, x, y, z, composition, total_count, created_at, updated_at`

func scanNode(row interface{ Scan(dest ...interface{}) error }) (*StorageNode, error) {
	var n StorageNode
	var compositionJSON []byte
	err := row.Scan(
		&n.ID,
		&n.OwnerID,
		&n.Name,
		&n.WorldX,
		&n.WorldY,
		&n.WorldZ,
		&n.X,
		&n.Y,
		&n.Z,
		&compositionJSON,
		&n.TotalCount,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(compositionJSON, &n.Composition); err != nil {
		return nil, fmt.Errorf("failed to decode storage composition: %w", err)
	}
	return &n, nil
}

func (r *Repository) CreateNode(ctx context.Context, tx *database.Tx, ownerID int, name string, p Placement) (*StorageNode, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "storage_repository",
		"operation", "create_node",
		"owner_id", ownerID,
		"name", name,
	)
	logger.Debug("Creating storage node")

	query := `
		INSERT INTO storage_nodes (owner_actor_id, name, world_x, world_y, world_z, x, y, z, composition, total_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '[]'::jsonb, 0)
		RETURNING ` + nodeColumns

	n, err := scanNode(exec.QueryRowContext(ctx, query, ownerID, name, p.WorldX, p.WorldY, p.WorldZ, p.X, p.Y, p.Z))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			logger.Debug("Placement references unknown world")
			return nil, errors.Validationf("world (%d, %d, %d) does not exist", p.WorldX, p.WorldY, p.WorldZ)
		}
		logger.Error("Failed to create storage node", "error", err)
		return nil, fmt.Errorf("failed to create storage node: %w", err)
	}

	return n, nil
}

func (r *Repository) GetNodeByID(ctx context.Context, id int) (*StorageNode, error) {
	logger := r.logger.With("component", "storage_repository", "operation", "get_by_id", "storage_id", id)
	logger.Debug("Getting storage node by ID")

	query := `SELECT ` + nodeColumns + ` FROM storage_nodes WHERE id = $1`

	n, err := scanNode(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No storage node found with ID")
			return nil, nil
		}
		logger.Error("Database error getting storage node", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return n, nil
}

// GetNodeForUpdate locks the storage node row for the transaction.
func (r *Repository) GetNodeForUpdate(ctx context.Context, tx *database.Tx, id int) (*StorageNode, error) {
	logger := r.logger.With("component", "storage_repository", "operation", "get_for_update", "storage_id", id)
	logger.Debug("Locking storage node row")

	query := `SELECT ` + nodeColumns + ` FROM storage_nodes WHERE id = $1 FOR UPDATE`

	n, err := scanNode(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No storage node found with ID")
			return nil, nil
		}
		logger.Error("Database error locking storage node", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return n, nil
}

func (r *Repository) ListNodesByOwner(ctx context.Context, ownerID int) ([]StorageNode, error) {
	return r.listByOwner(ctx, nil, ownerID, false)
}

// ListNodesByOwnerForUpdate locks every node the owner has, serializing
// concurrent placements against the per-owner cap.
func (r *Repository) ListNodesByOwnerForUpdate(ctx context.Context, tx *database.Tx, ownerID int) ([]StorageNode, error) {
	return r.listByOwner(ctx, tx, ownerID, true)
}

func (r *Repository) listByOwner(ctx context.Context, tx *database.Tx, ownerID int, forUpdate bool) ([]StorageNode, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With("component", "storage_repository", "operation", "list_by_owner", "owner_id", ownerID)
	logger.Debug("Listing storage nodes by owner")

	query := `SELECT ` + nodeColumns + ` FROM storage_nodes WHERE owner_actor_id = $1 ORDER BY id`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := exec.QueryContext(ctx, query, ownerID)
	if err != nil {
		logger.Error("Failed to query storage nodes", "error", err)
		return nil, fmt.Errorf("failed to query storage nodes: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var nodes []StorageNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			logger.Error("Failed to scan storage node", "error", err)
			return nil, fmt.Errorf("failed to scan storage node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Row iteration error", "error", err)
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return nodes, nil
}

// UpdateComposition rewrites the node's composition and recomputes its
// total.
func (r *Repository) UpdateComposition(ctx context.Context, tx *database.Tx, id int, composition []packet.WavePacket) error {
	logger := r.logger.With("component", "storage_repository", "operation", "update_composition", "storage_id", id)
	logger.Debug("Updating storage composition")

	compositionJSON, err := json.Marshal(composition)
	if err != nil {
		logger.Error("Failed to marshal composition", "error", err)
		return fmt.Errorf("failed to marshal composition: %w", err)
	}
	if composition == nil {
		compositionJSON = []byte("[]")
	}

	query := `UPDATE storage_nodes SET composition = $1, total_count = $2, updated_at = NOW() WHERE id = $3`

	result, err := tx.ExecContext(ctx, query, compositionJSON, packet.Total(composition), id)
	if err != nil {
		logger.Error("Failed to update storage composition", "error", err)
		return fmt.Errorf("failed to update storage composition: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("storage node %d not found", id)
	}

	return nil
}
