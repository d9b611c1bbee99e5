package world

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"resonance-server/internal/lattice"
	"resonance-server/internal/orb"
	"resonance-server/internal/packet"
	"resonance-server/internal/shared/config"
	"resonance-server/internal/shared/database"
)

type Service struct {
	repo           *Repository
	latticeService *lattice.Service
	orbRepo        *orb.Repository
	db             *database.DB
	logger         *slog.Logger
}

func NewService(repo *Repository, latticeService *lattice.Service, orbRepo *orb.Repository, db *database.DB, logger *slog.Logger) *Service {
	logger.Debug("Initializing world service")

	return &Service{
		repo:           repo,
		latticeService: latticeService,
		orbRepo:        orbRepo,
		db:             db,
		logger:         logger,
	}
}

// Bootstrap seeds the world grid on first startup: the center world and
// its six shell-1 neighbors, each with a relay lattice and an initial
// orb field. Runs in one transaction and skips when worlds exist.
func (s *Service) Bootstrap(ctx context.Context) error {
	logger := s.logger.With("component", "world_service", "operation", "bootstrap")

	count, err := s.repo.CountWorlds(ctx)
	if err != nil {
		return err
	}

	seeds := seedWorlds()
	if count > 0 {
		if count != len(seeds) {
			logger.Warn("Unexpected world count, skipping bootstrap", "count", count, "expected", len(seeds))
		} else {
			logger.Debug("Worlds already seeded, skipping bootstrap")
		}
		return nil
	}

	logger.Info("Bootstrapping worlds", "count", len(seeds))

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	game := config.GlobalConfig.Game
	for _, w := range seeds {
		if _, err := s.repo.CreateWorld(ctx, tx, w); err != nil {
			return err
		}
		if _, err := s.latticeService.SeedWorld(ctx, tx, w.X, w.Y, w.Z); err != nil {
			return err
		}

		orbSeeds := make([]orb.SeedRequest, 0, game.SeedOrbsPerWorld)
		for i := 0; i < game.SeedOrbsPerWorld; i++ {
			orbSeeds = append(orbSeeds, randomOrbSeed(game.LatticeRadius, game.SeedOrbUnitCount))
		}
		if _, err := s.orbRepo.CreateOrbsBatch(ctx, w.X, w.Y, w.Z, orbSeeds, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("World bootstrap complete")
	return nil
}

func seedWorlds() []World {
	worlds := []World{
		{X: 0, Y: 0, Z: 0, Name: "core", Kind: WorldKindCenter, Shell: 0},
	}

	axes := [][3]int{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}
	names := []string{"axis +x", "axis -x", "axis +y", "axis -y", "axis +z", "axis -z"}
	for i, a := range axes {
		worlds = append(worlds, World{
			X:     a[0],
			Y:     a[1],
			Z:     a[2],
			Name:  names[i],
			Kind:  WorldKindStandard,
			Shell: 1,
		})
	}

	return worlds
}

// randomOrbSeed scatters an orb inside the lattice shell with a few
// packet entries summing to unitCount.
func randomOrbSeed(latticeRadius float64, unitCount uint32) orb.SeedRequest {
	spread := latticeRadius * 0.75
	scatter := func() float64 {
		return (rand.Float64()*2 - 1) * spread
	}

	entries := 1 + rand.Intn(3)
	composition := make([]packet.WavePacket, 0, entries)
	remaining := unitCount
	for i := 0; i < entries; i++ {
		count := remaining / uint32(entries-i)
		if i == entries-1 {
			count = remaining
		}
		if count == 0 {
			continue
		}
		remaining -= count
		composition = append(composition, packet.WavePacket{
			Frequency: rand.Float64() * 2 * math.Pi,
			Amplitude: 0.1 + 0.9*rand.Float64(),
			Phase:     rand.Float64() * 2 * math.Pi,
			Count:     count,
		})
	}

	return orb.SeedRequest{
		X:           scatter(),
		Y:           scatter(),
		Z:           scatter(),
		Composition: composition,
	}
}
