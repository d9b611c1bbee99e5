package transfer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"resonance-server/internal/packet"
	"resonance-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing transfer repository")

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

const offerColumns = `id, from_actor_id, target_kind, target_id, composition, status, created_at, expires_at, resolved_at`

func scanOffer(row interface{ Scan(dest ...interface{}) error }) (*Offer, error) {
	var o Offer
	var compositionJSON []byte
	err := row.Scan(
		&o.ID,
		&o.FromActorID,
		&o.TargetKind,
		&o.TargetID,
		&compositionJSON,
		&o.Status,
		&o.CreatedAt,
		&o.ExpiresAt,
		&o.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(compositionJSON, &o.Composition); err != nil {
		return nil, fmt.Errorf("failed to decode offer composition: %w", err)
	}
	return &o, nil
}

// CreateOffersBatch inserts one offer per batch in a single statement.
// All offers share the sender, target and expiry.
func (r *Repository) CreateOffersBatch(ctx context.Context, tx *database.Tx, fromActorID int, targetKind TargetKind, targetID int, batches [][]packet.WavePacket, expiresAt time.Time) ([]Offer, error) {
	if len(batches) == 0 {
		return []Offer{}, nil
	}

	logger := r.logger.With(
		"component", "transfer_repository",
		"operation", "create_offers_batch",
		"from_actor_id", fromActorID,
		"target_kind", targetKind,
		"target_id", targetID,
		"count", len(batches),
	)
	logger.Debug("Creating transfer offers in batch")

	payload, err := json.Marshal(batches)
	if err != nil {
		logger.Error("Failed to marshal offer batches", "error", err)
		return nil, fmt.Errorf("failed to marshal offer batches: %w", err)
	}

	query := `
		INSERT INTO transfer_offers (from_actor_id, target_kind, target_id, composition, status, expires_at)
		SELECT $1, $2, $3, batch::jsonb, 'pending', $4
		FROM json_array_elements($5::json) AS batch
		RETURNING ` + offerColumns

	rows, err := tx.QueryContext(ctx, query, fromActorID, targetKind, targetID, expiresAt, string(payload))
	if err != nil {
		logger.Error("Failed to batch create offers", "error", err)
		return nil, fmt.Errorf("failed to batch create offers: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var created []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			logger.Error("Failed to scan offer", "error", err)
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		created = append(created, *o)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Row iteration error", "error", err)
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return created, nil
}

func (r *Repository) GetOfferByID(ctx context.Context, id int) (*Offer, error) {
	logger := r.logger.With("component", "transfer_repository", "operation", "get_by_id", "offer_id", id)
	logger.Debug("Getting offer by ID")

	query := `SELECT ` + offerColumns + ` FROM transfer_offers WHERE id = $1`

	o, err := scanOffer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No offer found with ID")
			return nil, nil
		}
		logger.Error("Database error getting offer", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return o, nil
}

// GetOfferForUpdate locks the offer row so resolution happens exactly
// once.
func (r *Repository) GetOfferForUpdate(ctx context.Context, tx *database.Tx, id int) (*Offer, error) {
	logger := r.logger.With("component", "transfer_repository", "operation", "get_for_update", "offer_id", id)
	logger.Debug("Locking offer row")

	query := `SELECT ` + offerColumns + ` FROM transfer_offers WHERE id = $1 FOR UPDATE`

	o, err := scanOffer(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No offer found with ID")
			return nil, nil
		}
		logger.Error("Database error locking offer", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return o, nil
}

// ListOffersByActor returns offers the actor sent (outgoing) or offers
// targeting the actor or one of their storage nodes (incoming), newest
// first.
func (r *Repository) ListOffersByActor(ctx context.Context, actorID int, incoming bool) ([]Offer, error) {
	logger := r.logger.With(
		"component", "transfer_repository",
		"operation", "list_by_actor",
		"actor_id", actorID,
		"incoming", incoming,
	)
	logger.Debug("Listing offers by actor")

	var query string
	if incoming {
		query = `
			SELECT ` + qualifiedOfferColumns("o") + `
			FROM transfer_offers o
			LEFT JOIN storage_nodes s ON o.target_kind = 'storage' AND o.target_id = s.id
			WHERE (o.target_kind = 'actor' AND o.target_id = $1)
			   OR (o.target_kind = 'storage' AND s.owner_actor_id = $1)
			ORDER BY o.id DESC
			LIMIT 100`
	} else {
		query = `SELECT ` + offerColumns + ` FROM transfer_offers WHERE from_actor_id = $1 ORDER BY id DESC LIMIT 100`
	}

	rows, err := r.db.QueryContext(ctx, query, actorID)
	if err != nil {
		logger.Error("Failed to query offers", "error", err)
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var offers []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			logger.Error("Failed to scan offer", "error", err)
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, *o)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Row iteration error", "error", err)
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return offers, nil
}

// MarkResolved transitions a pending offer to a terminal status. It
// reports false when the offer was no longer pending.
func (r *Repository) MarkResolved(ctx context.Context, tx *database.Tx, id int, status OfferStatus) (bool, error) {
	logger := r.logger.With(
		"component", "transfer_repository",
		"operation", "mark_resolved",
		"offer_id", id,
		"status", status,
	)
	logger.Debug("Resolving offer")

	query := `UPDATE transfer_offers SET status = $1, resolved_at = NOW() WHERE id = $2 AND status = 'pending'`

	result, err := tx.ExecContext(ctx, query, status, id)
	if err != nil {
		logger.Error("Failed to resolve offer", "error", err)
		return false, fmt.Errorf("failed to resolve offer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

// ListExpiredPendingIDs returns pending offers whose window lapsed
// before the cutoff.
func (r *Repository) ListExpiredPendingIDs(ctx context.Context, cutoff time.Time) ([]int, error) {
	logger := r.logger.With("component", "transfer_repository", "operation", "list_expired_pending")
	logger.Debug("Listing expired pending offers")

	query := `SELECT id FROM transfer_offers WHERE status = 'pending' AND expires_at < $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		logger.Error("Failed to query expired offers", "error", err)
		return nil, fmt.Errorf("failed to query expired offers: %w", err)
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
			logger.Error("Failed to scan offer ID", "error", err)
			return nil, fmt.Errorf("failed to scan offer ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Row iteration error", "error", err)
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

func qualifiedOfferColumns(alias string) string {
	return alias + ".id, " + alias + ".from_actor_id, " + alias + ".target_kind, " + alias + ".target_id, " + alias + ".composition, " + alias + ".status, " + alias + ".created_at, " + alias + ".expires_at, " + alias + ".resolved_at"
}
