package world

import (
	"context"
	"fmt"
	"log/slog"

	"resonance-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing world repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CountWorlds(ctx context.Context) (int, error) {
	logger := r.logger.With("component", "world_repository", "operation", "count")
	logger.Debug("Counting worlds")

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM worlds`).Scan(&count); err != nil {
		logger.Error("Failed to count worlds", "error", err)
		return 0, fmt.Errorf("failed to count worlds: %w", err)
	}

	return count, nil
}

func (r *Repository) CreateWorld(ctx context.Context, tx *database.Tx, w World) (*World, error) {
	logger := r.logger.With(
		"component", "world_repository",
		"operation", "create",
		"x", w.X,
		"y", w.Y,
		"z", w.Z,
	)
	logger.Debug("Creating world")

	query := `
		INSERT INTO worlds (x, y, z, name, kind, shell)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING x, y, z, name, kind, shell, created_at`

	var created World
	err := tx.QueryRowContext(ctx, query, w.X, w.Y, w.Z, w.Name, w.Kind, w.Shell).Scan(
		&created.X,
		&created.Y,
		&created.Z,
		&created.Name,
		&created.Kind,
		&created.Shell,
		&created.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to create world", "error", err)
		return nil, fmt.Errorf("failed to create world: %w", err)
	}

	return &created, nil
}
