package orb

import (
	"context"
	"fmt"
	"log/slog"

	"resonance-server/internal/packet"
	"resonance-server/internal/shared/database"
	"resonance-server/internal/shared/errors"
)

type Service struct {
	repo   *Repository
	db     *database.DB
	logger *slog.Logger
}

func NewService(repo *Repository, db *database.DB, logger *slog.Logger) *Service {
	logger.Debug("Initializing orb service")

	return &Service{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

func (s *Service) GetOrb(ctx context.Context, id int) (*Orb, error) {
	o, err := s.repo.GetOrbByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errors.NotFoundf("orb %d not found", id)
	}
	return o, nil
}

func (s *Service) ListByWorld(ctx context.Context, worldX, worldY, worldZ int) ([]Orb, error) {
	return s.repo.ListOrbsByWorld(ctx, worldX, worldY, worldZ)
}

// SeedOrbs emits new orbs into a world. This is the boundary the external
// emission process drives; in-server callers are world bootstrap and the
// admin surface.
func (s *Service) SeedOrbs(ctx context.Context, worldX, worldY, worldZ int, seeds []SeedRequest) ([]Orb, error) {
	logger := s.logger.With(
		"component", "orb_service",
		"operation", "seed_orbs",
		"world_x", worldX,
		"world_y", worldY,
		"world_z", worldZ,
		"count", len(seeds),
	)
	logger.Debug("Seeding orbs")

	if len(seeds) == 0 {
		return nil, errors.Validation("at least one orb is required")
	}

	for i, seed := range seeds {
		if len(seed.Composition) == 0 {
			return nil, errors.Validationf("orb %d has an empty composition", i)
		}
		for _, p := range seed.Composition {
			if !packet.ValidFrequency(p.Frequency) {
				return nil, errors.Validationf("orb %d frequency %v is outside [0, 2π)", i, p.Frequency)
			}
			if p.Count == 0 {
				return nil, errors.Validationf("orb %d carries a zero-count packet", i)
			}
		}
	}

	created, err := s.repo.CreateOrbsBatch(ctx, worldX, worldY, worldZ, seeds, nil)
	if err != nil {
		logger.Error("Failed to seed orbs", "error", err)
		return nil, fmt.Errorf("failed to seed orbs: %w", err)
	}

	logger.Info("Orbs seeded", "count", len(created))
	return created, nil
}

// Replenish adds units back into an existing orb.
func (s *Service) Replenish(ctx context.Context, orbID int, packets []packet.WavePacket) (*Orb, error) {
	logger := s.logger.With(
		"component", "orb_service",
		"operation", "replenish",
		"orb_id", orbID,
	)
	logger.Debug("Replenishing orb")

	if packet.Total(packets) == 0 {
		return nil, errors.Validation("replenishment requires at least one unit")
	}
	for _, p := range packets {
		if !packet.ValidFrequency(p.Frequency) {
			return nil, errors.Validationf("frequency %v is outside [0, 2π)", p.Frequency)
		}
	}

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	o, err := s.repo.GetOrbForUpdate(ctx, tx, orbID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errors.NotFoundf("orb %d not found", orbID)
	}

	o.Composition = packet.Consolidate(append(packet.Clone(o.Composition), packets...))
	o.TotalCount = packet.Total(o.Composition)

	if err := s.repo.UpdateComposition(ctx, tx, orbID, o.Composition); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Orb replenished", "total_count", o.TotalCount)
	o.LastDepletedAt = nil
	return o, nil
}
