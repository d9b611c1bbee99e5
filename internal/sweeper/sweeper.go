package sweeper

import (
	"context"
	"log/slog"
	"time"

	"resonance-server/internal/extraction"
	"resonance-server/internal/lattice"
	"resonance-server/internal/shared/config"
	"resonance-server/internal/transfer"
)

// Sweeper drives the periodic world pulse: expiring in-flight packets,
// lapsing transfer offers and clearing relay buffers. Deadlines are
// stored on the rows themselves, so sweep timing never changes what
// expires, only when it is noticed.
type Sweeper struct {
	extractionService *extraction.Service
	transferService   *transfer.Service
	latticeService    *lattice.Service
	logger            *slog.Logger
}

func New(extractionService *extraction.Service, transferService *transfer.Service, latticeService *lattice.Service, logger *slog.Logger) *Sweeper {
	logger.Debug("Initializing sweeper")

	return &Sweeper{
		extractionService: extractionService,
		transferService:   transferService,
		latticeService:    latticeService,
		logger:            logger,
	}
}

// Run blocks, sweeping on the configured cadence until the context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := config.GlobalConfig.Game.SweepInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := s.logger.With("component", "sweeper")
	logger.Info("Sweeper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now().UTC()

	if _, err := s.extractionService.SweepExpired(ctx, now); err != nil {
		s.logger.Error("Failed to sweep in-flight packets", "component", "sweeper", "error", err)
	}
	if _, err := s.transferService.ExpireOffers(ctx, now); err != nil {
		s.logger.Error("Failed to expire transfer offers", "component", "sweeper", "error", err)
	}
	if _, err := s.latticeService.PumpRelays(ctx, now); err != nil {
		s.logger.Error("Failed to pump relay buffers", "component", "sweeper", "error", err)
	}
}
