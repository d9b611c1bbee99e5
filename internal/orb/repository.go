package orb

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
	logger.Debug("Initializing orb repository")

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

const orbColumns = `id, world_x, world_y, world_z, x, y, z, composition, total_count, active_extractors, last_depleted_at, created_at`

func scanOrb(row interface{ Scan(dest ...interface{}) error }) (*Orb, error) {
	var o Orb
	var compositionJSON []byte
	err := row.Scan(
		&o.ID,
		&o.WorldX,
		&o.WorldY,
		&o.WorldZ,
		&o.X,
		&o.Y,
		&o.Z,
		&compositionJSON,
		&o.TotalCount,
		&o.ActiveExtractors,
		&o.LastDepletedAt,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(compositionJSON, &o.Composition); err != nil {
		return nil, fmt.Errorf("failed to decode orb composition: %w", err)
	}
	return &o, nil
}

func (r *Repository) GetOrbByID(ctx context.Context, id int) (*Orb, error) {
	logger := r.logger.With("component", "orb_repository", "operation", "get_by_id", "orb_id", id)
	logger.Debug("Getting orb by ID")

	query := `SELECT ` + orbColumns + ` FROM orbs WHERE id = $1`

	o, err := scanOrb(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No orb found with ID")
			return nil, nil
		}
		logger.Error("Database error getting orb by ID", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return o, nil
}

// GetOrbForUpdate locks the orb row for the duration of the transaction
// so concurrent withdrawals serialize on it.
func (r *Repository) GetOrbForUpdate(ctx context.Context, tx *database.Tx, id int) (*Orb, error) {
	logger := r.logger.With("component", "orb_repository", "operation", "get_for_update", "orb_id", id)
	logger.Debug("Locking orb row")

	query := `SELECT ` + orbColumns + ` FROM orbs WHERE id = $1 FOR UPDATE`

	o, err := scanOrb(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No orb found with ID")
			return nil, nil
		}
		logger.Error("Database error locking orb", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return o, nil
}

func (r *Repository) ListOrbsByWorld(ctx context.Context, worldX, worldY, worldZ int) ([]Orb, error) {
	logger := r.logger.With(
		"component", "orb_repository",
		"operation", "list_by_world",
		"world_x", worldX,
		"world_y", worldY,
		"world_z", worldZ,
	)
	logger.Debug("Listing orbs by world")

	query := `SELECT ` + orbColumns + ` FROM orbs WHERE world_x = $1 AND world_y = $2 AND world_z = $3 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, worldX, worldY, worldZ)
	if err != nil {
		logger.Error("Failed to query orbs", "error", err)
		return nil, fmt.Errorf("failed to query orbs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var orbs []Orb
	for rows.Next() {
		o, err := scanOrb(rows)
		if err != nil {
			logger.Error("Failed to scan orb row", "error", err)
			return nil, fmt.Errorf("failed to scan orb: %w", err)
		}
		orbs = append(orbs, *o)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating orbs: %w", err)
	}

	logger.Debug("Orbs retrieved", "count", len(orbs))
	return orbs, nil
}

// UpdateComposition writes back an orb's composition after a withdrawal
// or replenishment. The depletion timestamp is stamped when the count
// reaches zero and cleared when units return.
func (r *Repository) UpdateComposition(ctx context.Context, tx *database.Tx, id int, composition []packet.WavePacket) error {
	exec := r.getExecutor(tx)

	total := packet.Total(composition)
	logger := r.logger.With(
		"component", "orb_repository",
		"operation", "update_composition",
		"orb_id", id,
		"total_count", total,
	)
	logger.Debug("Updating orb composition")

	compositionJSON, err := json.Marshal(composition)
	if err != nil {
		logger.Error("Failed to marshal composition", "error", err)
		return fmt.Errorf("failed to marshal composition: %w", err)
	}
	if composition == nil {
		compositionJSON = []byte("[]")
	}

	query := `
		UPDATE orbs
		SET composition = $1,
			total_count = $2,
			last_depleted_at = CASE WHEN $2 = 0 THEN NOW() ELSE NULL END
		WHERE id = $3
	`

	result, err := exec.ExecContext(ctx, query, compositionJSON, total, id)
	if err != nil {
		logger.Error("Failed to update orb composition", "error", err)
		return fmt.Errorf("failed to update orb composition: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to read affected rows", "error", err)
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("orb %d not found", id)
	}

	return nil
}

// AdjustActiveExtractors moves the advisory extractor counter, clamping
// at zero.
func (r *Repository) AdjustActiveExtractors(ctx context.Context, tx *database.Tx, id int, delta int) error {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "orb_repository",
		"operation", "adjust_active_extractors",
		"orb_id", id,
		"delta", delta,
	)
	logger.Debug("Adjusting active extractor count")

	query := `UPDATE orbs SET active_extractors = GREATEST(0, active_extractors + $1) WHERE id = $2`

	if _, err := exec.ExecContext(ctx, query, delta, id); err != nil {
		logger.Error("Failed to adjust active extractors", "error", err)
		return fmt.Errorf("failed to adjust active extractors: %w", err)
	}

	return nil
}

type batchInsertRow struct {
	WorldX      int     `json:"world_x"`
	WorldY      int     `json:"world_y"`
	WorldZ      int     `json:"world_z"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Composition string  `json:"composition"`
	TotalCount  uint32  `json:"total_count"`
}

// CreateOrbsBatch inserts multiple orbs in a single statement using a
// JSON payload.
func (r *Repository) CreateOrbsBatch(ctx context.Context, worldX, worldY, worldZ int, seeds []SeedRequest, tx *database.Tx) ([]Orb, error) {
	if len(seeds) == 0 {
		return []Orb{}, nil
	}

	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "orb_repository",
		"operation", "create_orbs_batch",
		"world_x", worldX,
		"world_y", worldY,
		"world_z", worldZ,
		"count", len(seeds),
	)
	logger.Debug("Creating orbs in batch")

	rowsIn := make([]batchInsertRow, 0, len(seeds))
	for _, seed := range seeds {
		composition := packet.Consolidate(seed.Composition)
		compositionJSON, err := json.Marshal(composition)
		if err != nil {
			logger.Error("Failed to marshal seed composition", "error", err)
			return nil, fmt.Errorf("failed to marshal seed composition: %w", err)
		}
		rowsIn = append(rowsIn, batchInsertRow{
			WorldX:      worldX,
			WorldY:      worldY,
			WorldZ:      worldZ,
			X:           seed.X,
			Y:           seed.Y,
			Z:           seed.Z,
			Composition: string(compositionJSON),
			TotalCount:  packet.Total(composition),
		})
	}

	payload, err := json.Marshal(rowsIn)
	if err != nil {
		logger.Error("Failed to marshal orb batch", "error", err)
		return nil, fmt.Errorf("failed to marshal orb batch: %w", err)
	}

	query := `
		INSERT INTO orbs (world_x, world_y, world_z, x, y, z, composition, total_count, active_extractors)
		SELECT
			(data->>'world_x')::integer,
			(data->>'world_y')::integer,
			(data->>'world_z')::integer,
			(data->>'x')::double precision,
			(data->>'y')::double precision,
			(data->>'z')::double precision,
			(data->>'composition')::jsonb,
			(data->>'total_count')::integer,
			0
		FROM json_array_elements($1::json) AS data
		RETURNING ` + orbColumns

	rows, err := exec.QueryContext(ctx, query, string(payload))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			logger.Debug("Seed references unknown world")
			return nil, errors.Validationf("world (%d, %d, %d) does not exist", worldX, worldY, worldZ)
		}
		logger.Error("Failed to batch create orbs", "error", err)
		return nil, fmt.Errorf("failed to batch create orbs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var created []Orb
	for rows.Next() {
		o, err := scanOrb(rows)
		if err != nil {
			logger.Error("Failed to scan orb row", "error", err)
			return nil, fmt.Errorf("failed to scan orb: %w", err)
		}
		created = append(created, *o)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating orbs: %w", err)
	}

	logger.Info("Orbs batch created successfully", "count", len(created))
	return created, nil
}
