package lattice

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"resonance-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing lattice repository")

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

const relayColumns = `id, world_x, world_y, world_z, ax, ay, az, x, y, z, role, buffer, buffer_count, lifetime_routed, charge, status, linked_world_x, linked_world_y, linked_world_z, created_at`

func scanRelay(row interface{ Scan(dest ...interface{}) error }) (*RelayNode, error) {
	var n RelayNode
	var bufferJSON []byte
	err := row.Scan(
		&n.ID,
		&n.WorldX,
		&n.WorldY,
		&n.WorldZ,
		&n.Address.AX,
		&n.Address.AY,
		&n.Address.AZ,
		&n.X,
		&n.Y,
		&n.Z,
		&n.Role,
		&bufferJSON,
		&n.BufferCount,
		&n.LifetimeRouted,
		&n.Charge,
		&n.Status,
		&n.LinkedWorldX,
		&n.LinkedWorldY,
		&n.LinkedWorldZ,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bufferJSON, &n.Buffer); err != nil {
		return nil, fmt.Errorf("failed to decode relay buffer: %w", err)
	}
	return &n, nil
}

type relayInsertRow struct {
	WorldX int     `json:"world_x"`
	WorldY int     `json:"world_y"`
	WorldZ int     `json:"world_z"`
	AX     int     `json:"ax"`
	AY     int     `json:"ay"`
	AZ     int     `json:"az"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Role   string  `json:"role"`
}

// CreateRelaysBatch inserts a world's relays in one statement. New
// relays start inactive with an empty buffer and zero charge.
func (r *Repository) CreateRelaysBatch(ctx context.Context, tx *database.Tx, relays []RelayNode) ([]RelayNode, error) {
	if len(relays) == 0 {
		return []RelayNode{}, nil
	}

	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "lattice_repository",
		"operation", "create_relays_batch",
		"count", len(relays),
	)
	logger.Debug("Creating relays in batch")

	rowsIn := make([]relayInsertRow, 0, len(relays))
	for _, relay := range relays {
		rowsIn = append(rowsIn, relayInsertRow{
			WorldX: relay.WorldX,
			WorldY: relay.WorldY,
			WorldZ: relay.WorldZ,
			AX:     relay.Address.AX,
			AY:     relay.Address.AY,
			AZ:     relay.Address.AZ,
			X:      relay.X,
			Y:      relay.Y,
			Z:      relay.Z,
			Role:   string(relay.Role),
		})
	}

	payload, err := json.Marshal(rowsIn)
	if err != nil {
		logger.Error("Failed to marshal relay batch", "error", err)
		return nil, fmt.Errorf("failed to marshal relay batch: %w", err)
	}

	query := `
		INSERT INTO relay_nodes (world_x, world_y, world_z, ax, ay, az, x, y, z, role, buffer, buffer_count, lifetime_routed, charge, status)
		SELECT
			(data->>'world_x')::integer,
			(data->>'world_y')::integer,
			(data->>'world_z')::integer,
			(data->>'ax')::integer,
			(data->>'ay')::integer,
			(data->>'az')::integer,
			(data->>'x')::double precision,
			(data->>'y')::double precision,
			(data->>'z')::double precision,
			data->>'role',
			'[]'::jsonb,
			0,
			0,
			0,
			'inactive'
		FROM json_array_elements($1::json) AS data
		RETURNING ` + relayColumns

	rows, err := exec.QueryContext(ctx, query, string(payload))
	if err != nil {
		logger.Error("Failed to batch create relays", "error", err)
		return nil, fmt.Errorf("failed to batch create relays: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var created []RelayNode
	for rows.Next() {
		n, err := scanRelay(rows)
		if err != nil {
			logger.Error("Failed to scan relay", "error", err)
			return nil, fmt.Errorf("failed to scan relay: %w", err)
		}
		created = append(created, *n)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Row iteration error", "error", err)
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return created, nil
}

func (r *Repository) ListRelaysByWorld(ctx context.Context, tx *database.Tx, worldX, worldY, worldZ int) ([]RelayNode, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "lattice_repository",
		"operation", "list_by_world",
		"world_x", worldX,
		"world_y", worldY,
		"world_z", worldZ,
	)
	logger.Debug("Listing relays by world")

	query := `SELECT ` + relayColumns + ` FROM relay_nodes WHERE world_x = $1 AND world_y = $2 AND world_z = $3 ORDER BY id`

	rows, err := exec.QueryContext(ctx, query, worldX, worldY, worldZ)
	if err != nil {
		logger.Error("Failed to query relays", "error", err)
		return nil, fmt.Errorf("failed to query relays: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var relays []RelayNode
	for rows.Next() {
		n, err := scanRelay(rows)
		if err != nil {
			logger.Error("Failed to scan relay", "error", err)
			return nil, fmt.Errorf("failed to scan relay: %w", err)
		}
		relays = append(relays, *n)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Row iteration error", "error", err)
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return relays, nil
}

// GetRelayForUpdate locks the relay row so buffer and charge updates
// serialize.
func (r *Repository) GetRelayForUpdate(ctx context.Context, tx *database.Tx, id int) (*RelayNode, error) {
	logger := r.logger.With("component", "lattice_repository", "operation", "get_for_update", "relay_id", id)
	logger.Debug("Locking relay row")

	query := `SELECT ` + relayColumns + ` FROM relay_nodes WHERE id = $1 FOR UPDATE`

	n, err := scanRelay(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No relay found with ID")
			return nil, nil
		}
		logger.Error("Database error locking relay", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return n, nil
}

// UpdateRelayState rewrites the relay's mutable routing state.
func (r *Repository) UpdateRelayState(ctx context.Context, tx *database.Tx, relay *RelayNode) error {
	logger := r.logger.With("component", "lattice_repository", "operation", "update_state", "relay_id", relay.ID)
	logger.Debug("Updating relay state")

	buffer := relay.Buffer
	if buffer == nil {
		buffer = []RelayParcel{}
	}
	bufferJSON, err := json.Marshal(buffer)
	if err != nil {
		logger.Error("Failed to marshal relay buffer", "error", err)
		return fmt.Errorf("failed to marshal relay buffer: %w", err)
	}

	query := `
		UPDATE relay_nodes
		SET buffer = $1, buffer_count = $2, lifetime_routed = $3, charge = $4, status = $5
		WHERE id = $6`

	if _, err := tx.ExecContext(ctx, query, bufferJSON, relay.BufferCount, relay.LifetimeRouted, relay.Charge, relay.Status, relay.ID); err != nil {
		logger.Error("Failed to update relay state", "error", err)
		return fmt.Errorf("failed to update relay state: %w", err)
	}

	return nil
}

// ListBufferedRelayIDs returns the relays holding parcels, for the
// transit pump.
func (r *Repository) ListBufferedRelayIDs(ctx context.Context) ([]int, error) {
	logger := r.logger.With("component", "lattice_repository", "operation", "list_buffered")
	logger.Debug("Listing buffered relays")

	query := `SELECT id FROM relay_nodes WHERE buffer_count > 0 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query buffered relays", "error", err)
		return nil, fmt.Errorf("failed to query buffered relays: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			logger.Error("Failed to scan relay ID", "error", err)
			return nil, fmt.Errorf("failed to scan relay ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Row iteration error", "error", err)
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}
