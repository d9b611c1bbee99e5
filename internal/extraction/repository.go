package extraction

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"resonance-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing extraction repository")

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

const sessionColumns = `id, actor_id, orb_id, filter_min, filter_max, packet_seq, started_at, last_extraction_at, active`

func scanSession(row interface{ Scan(dest ...interface{}) error }) (*Session, error) {
	var s Session
	err := row.Scan(
		&s.ID,
		&s.ActorID,
		&s.OrbID,
		&s.FilterMin,
		&s.FilterMax,
		&s.PacketSeq,
		&s.StartedAt,
		&s.LastExtractionAt,
		&s.Active,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const inFlightColumns = `id, session_id, actor_id, orb_id, frequency, amplitude, phase, count, departed_at, deadline`

func scanInFlight(row interface{ Scan(dest ...interface{}) error }) (*InFlightPacket, error) {
	var p InFlightPacket
	err := row.Scan(
		&p.ID,
		&p.SessionID,
		&p.ActorID,
		&p.OrbID,
		&p.Frequency,
		&p.Amplitude,
		&p.Phase,
		&p.Count,
		&p.DepartedAt,
		&p.Deadline,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateSession inserts a new active session. The partial unique index on
// (actor_id, orb_id) WHERE active guards against concurrent begins; a
// collision surfaces as ErrSessionExists.
func (r *Repository) CreateSession(ctx context.Context, tx *database.Tx, actorID, orbID int, filterMin, filterMax *float64) (*Session, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "extraction_repository",
		"operation", "create_session",
		"actor_id", actorID,
		"orb_id", orbID,
	)
	logger.Debug("Creating extraction session")

	query := `
		INSERT INTO extraction_sessions (actor_id, orb_id, filter_min, filter_max, packet_seq, active)
		VALUES ($1, $2, $3, $4, 0, TRUE)
		RETURNING ` + sessionColumns

	s, err := scanSession(exec.QueryRowContext(ctx, query, actorID, orbID, filterMin, filterMax))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			logger.Debug("Session insert lost a race")
			return nil, ErrSessionExists
		}
		logger.Error("Failed to create extraction session", "error", err)
		return nil, fmt.Errorf("failed to create extraction session: %w", err)
	}

	return s, nil
}

func (r *Repository) GetSessionByID(ctx context.Context, id int) (*Session, error) {
	logger := r.logger.With("component", "extraction_repository", "operation", "get_session", "session_id", id)
	logger.Debug("Getting extraction session")

	query := `SELECT ` + sessionColumns + ` FROM extraction_sessions WHERE id = $1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No session found with ID")
			return nil, nil
		}
		logger.Error("Database error getting session", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return s, nil
}

// GetSessionForUpdate locks the session row so packet sequence numbers
// never collide across concurrent extract calls.
func (r *Repository) GetSessionForUpdate(ctx context.Context, tx *database.Tx, id int) (*Session, error) {
	logger := r.logger.With("component", "extraction_repository", "operation", "get_session_for_update", "session_id", id)
	logger.Debug("Locking session row")

	query := `SELECT ` + sessionColumns + ` FROM extraction_sessions WHERE id = $1 FOR UPDATE`

	s, err := scanSession(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No session found with ID")
			return nil, nil
		}
		logger.Error("Database error locking session", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return s, nil
}

func (r *Repository) GetActiveSession(ctx context.Context, tx *database.Tx, actorID, orbID int) (*Session, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "extraction_repository",
		"operation", "get_active_session",
		"actor_id", actorID,
		"orb_id", orbID,
	)
	logger.Debug("Getting active session")

	query := `SELECT ` + sessionColumns + ` FROM extraction_sessions WHERE actor_id = $1 AND orb_id = $2 AND active`

	s, err := scanSession(exec.QueryRowContext(ctx, query, actorID, orbID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Database error getting active session", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return s, nil
}

// MarkExtracted advances the session's packet sequence and stamps the
// extraction time.
func (r *Repository) MarkExtracted(ctx context.Context, tx *database.Tx, id, packetSeq int) error {
	logger := r.logger.With(
		"component", "extraction_repository",
		"operation", "mark_extracted",
		"session_id", id,
		"packet_seq", packetSeq,
	)
	logger.Debug("Advancing session packet sequence")

	query := `UPDATE extraction_sessions SET packet_seq = $1, last_extraction_at = NOW() WHERE id = $2`

	if _, err := tx.ExecContext(ctx, query, packetSeq, id); err != nil {
		logger.Error("Failed to advance packet sequence", "error", err)
		return fmt.Errorf("failed to advance packet sequence: %w", err)
	}

	return nil
}

// EndSession deactivates the session. It reports whether this call did
// the deactivation, so ending twice stays a no-op.
func (r *Repository) EndSession(ctx context.Context, tx *database.Tx, id int) (bool, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With("component", "extraction_repository", "operation", "end_session", "session_id", id)
	logger.Debug("Ending extraction session")

	query := `UPDATE extraction_sessions SET active = FALSE WHERE id = $1 AND active`

	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("Failed to end session", "error", err)
		return false, fmt.Errorf("failed to end session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

type inFlightInsertRow struct {
	ID         string  `json:"id"`
	SessionID  int     `json:"session_id"`
	ActorID    int     `json:"actor_id"`
	OrbID      int     `json:"orb_id"`
	Frequency  float64 `json:"frequency"`
	Amplitude  float64 `json:"amplitude"`
	Phase      float64 `json:"phase"`
	Count      uint32  `json:"count"`
	DepartedAt string  `json:"departed_at"`
	Deadline   string  `json:"deadline"`
}

// CreateInFlightBatch inserts the packets launched by one extract call in
// a single statement.
func (r *Repository) CreateInFlightBatch(ctx context.Context, tx *database.Tx, packets []InFlightPacket) error {
	if len(packets) == 0 {
		return nil
	}

	logger := r.logger.With(
		"component", "extraction_repository",
		"operation", "create_in_flight_batch",
		"count", len(packets),
	)
	logger.Debug("Creating in-flight packets in batch")

	rowsIn := make([]inFlightInsertRow, 0, len(packets))
	for _, p := range packets {
		rowsIn = append(rowsIn, inFlightInsertRow{
			ID:         p.ID,
			SessionID:  p.SessionID,
			ActorID:    p.ActorID,
			OrbID:      p.OrbID,
			Frequency:  p.Frequency,
			Amplitude:  p.Amplitude,
			Phase:      p.Phase,
			Count:      p.Count,
			DepartedAt: p.DepartedAt.UTC().Format(time.RFC3339Nano),
			Deadline:   p.Deadline.UTC().Format(time.RFC3339Nano),
		})
	}

	payload, err := json.Marshal(rowsIn)
	if err != nil {
		logger.Error("Failed to marshal in-flight batch", "error", err)
		return fmt.Errorf("failed to marshal in-flight batch: %w", err)
	}

	query := `
		INSERT INTO in_flight_packets (id, session_id, actor_id, orb_id, frequency, amplitude, phase, count, departed_at, deadline)
		SELECT
			data->>'id',
			(data->>'session_id')::integer,
			(data->>'actor_id')::integer,
			(data->>'orb_id')::integer,
			(data->>'frequency')::double precision,
			(data->>'amplitude')::double precision,
			(data->>'phase')::double precision,
			(data->>'count')::integer,
			(data->>'departed_at')::timestamptz,
			(data->>'deadline')::timestamptz
		FROM json_array_elements($1::json) AS data`

	if _, err := tx.ExecContext(ctx, query, string(payload)); err != nil {
		logger.Error("Failed to batch create in-flight packets", "error", err)
		return fmt.Errorf("failed to batch create in-flight packets: %w", err)
	}

	return nil
}

// GetInFlightForUpdate locks the in-flight row so acknowledge cannot race
// itself or the sweeper.
func (r *Repository) GetInFlightForUpdate(ctx context.Context, tx *database.Tx, id string) (*InFlightPacket, error) {
	logger := r.logger.With("component", "extraction_repository", "operation", "get_in_flight_for_update", "in_flight_id", id)
	logger.Debug("Locking in-flight packet")

	query := `SELECT ` + inFlightColumns + ` FROM in_flight_packets WHERE id = $1 FOR UPDATE`

	p, err := scanInFlight(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No in-flight packet found with ID")
			return nil, nil
		}
		logger.Error("Database error locking in-flight packet", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return p, nil
}

func (r *Repository) DeleteInFlight(ctx context.Context, tx *database.Tx, id string) error {
	logger := r.logger.With("component", "extraction_repository", "operation", "delete_in_flight", "in_flight_id", id)
	logger.Debug("Deleting in-flight packet")

	query := `DELETE FROM in_flight_packets WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		logger.Error("Failed to delete in-flight packet", "error", err)
		return fmt.Errorf("failed to delete in-flight packet: %w", err)
	}

	return nil
}

// DeleteExpiredInFlight removes every packet whose deadline passed before
// the cutoff and returns the removed rows.
func (r *Repository) DeleteExpiredInFlight(ctx context.Context, cutoff time.Time) ([]InFlightPacket, error) {
	logger := r.logger.With("component", "extraction_repository", "operation", "delete_expired_in_flight")
	logger.Debug("Sweeping expired in-flight packets")

	query := `DELETE FROM in_flight_packets WHERE deadline < $1 RETURNING ` + inFlightColumns

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		logger.Error("Failed to sweep in-flight packets", "error", err)
		return nil, fmt.Errorf("failed to sweep in-flight packets: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var expired []InFlightPacket
	for rows.Next() {
		p, err := scanInFlight(rows)
		if err != nil {
			logger.Error("Failed to scan in-flight packet", "error", err)
			return nil, fmt.Errorf("failed to scan in-flight packet: %w", err)
		}
		expired = append(expired, *p)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Row iteration error", "error", err)
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return expired, nil
}
