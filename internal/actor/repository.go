package actor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"resonance-server/internal/shared/database"
	"resonance-server/internal/shared/errors"

	"github.com/lib/pq"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing actor repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetActorByID(ctx context.Context, id int) (*Actor, error) {
	logger := r.logger.With("component", "actor_repository", "operation", "get_by_id", "actor_id", id)
	logger.Debug("Getting actor by ID")

	query := `
		SELECT id, username, display_name, role, created_at, updated_at
		FROM actors
		WHERE id = $1
	`

	var a Actor
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.Username,
		&a.DisplayName,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No actor found with ID")
			return nil, nil
		}
		logger.Error("Database error getting actor by ID", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	logger.Debug("Found actor by ID", "username", a.Username)
	return &a, nil
}

func (r *Repository) FindActorByUsername(ctx context.Context, username string) (*Actor, error) {
	logger := r.logger.With("component", "actor_repository", "operation", "find_by_username", "username", username)
	logger.Debug("Finding actor by username")

	query := `
		SELECT id, username, display_name, role, created_at, updated_at
		FROM actors
		WHERE username = $1
	`

	var a Actor
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&a.ID,
		&a.Username,
		&a.DisplayName,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No actor found with username")
			return nil, nil
		}
		logger.Error("Database error finding actor by username", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	logger.Debug("Found actor by username", "actor_id", a.ID)
	return &a, nil
}

func (r *Repository) CreateActor(ctx context.Context, username, displayName string, role ActorRole) (*Actor, error) {
	logger := r.logger.With(
		"component", "actor_repository",
		"operation", "create",
		"username", username,
		"role", role,
	)
	logger.Info("Creating new actor")

	query := `
		INSERT INTO actors (username, display_name, role)
		VALUES ($1, $2, $3)
		RETURNING id, username, display_name, role, created_at, updated_at
	`

	var a Actor
	err := r.db.QueryRowContext(ctx, query, username, displayName, role).Scan(
		&a.ID,
		&a.Username,
		&a.DisplayName,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			logger.Debug("Actor username already taken")
			return nil, errors.Conflictf("actor %s already exists", username)
		}
		logger.Error("Failed to create actor", "error", err)
		return nil, fmt.Errorf("failed to create actor: %w", err)
	}

	logger.Info("Actor created successfully", "actor_id", a.ID)
	return &a, nil
}

func (r *Repository) UpdateActorRole(ctx context.Context, id int, role ActorRole) error {
	logger := r.logger.With(
		"component", "actor_repository",
		"operation", "update_role",
		"actor_id", id,
		"role", role,
	)
	logger.Debug("Updating actor role")

	query := `UPDATE actors SET role = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, role, id)
	if err != nil {
		logger.Error("Failed to update actor role", "error", err)
		return fmt.Errorf("failed to update actor role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to read affected rows", "error", err)
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("actor %d not found", id)
	}

	logger.Info("Actor role updated")
	return nil
}

func (r *Repository) GetActorCount(ctx context.Context) (int, error) {
	logger := r.logger.With("component", "actor_repository", "operation", "get_count")
	logger.Debug("Getting total actor count")

	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM actors").Scan(&count)
	if err != nil {
		logger.Error("Failed to get actor count", "error", err)
		return 0, fmt.Errorf("failed to get actor count: %w", err)
	}

	logger.Debug("Actor count retrieved", "count", count)
	return count, nil
}
