package lattice

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"resonance-server/internal/shared/config"
	"resonance-server/internal/shared/database"
)

type Service struct {
	repo   *Repository
	db     *database.DB
	logger *slog.Logger
}

func NewService(repo *Repository, db *database.DB, logger *slog.Logger) *Service {
	logger.Debug("Initializing lattice service")

	return &Service{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// SeedWorld inserts the world's 26 relays at positions scaled out from
// the world origin.
func (s *Service) SeedWorld(ctx context.Context, tx *database.Tx, worldX, worldY, worldZ int) ([]RelayNode, error) {
	logger := s.logger.With(
		"component", "lattice_service",
		"operation", "seed_world",
		"world_x", worldX,
		"world_y", worldY,
		"world_z", worldZ,
	)
	logger.Debug("Seeding relay lattice")

	radius := config.GlobalConfig.Game.LatticeRadius
	addresses := Addresses()
	relays := make([]RelayNode, 0, len(addresses))
	for _, address := range addresses {
		x, y, z := address.Position(radius)
		relays = append(relays, RelayNode{
			WorldX:  worldX,
			WorldY:  worldY,
			WorldZ:  worldZ,
			Address: address,
			X:       x,
			Y:       y,
			Z:       z,
			Role:    address.RoleOf(),
		})
	}

	created, err := s.repo.CreateRelaysBatch(ctx, tx, relays)
	if err != nil {
		return nil, err
	}

	logger.Info("Relay lattice seeded", "count", len(created))
	return created, nil
}

func (s *Service) ListByWorld(ctx context.Context, worldX, worldY, worldZ int) ([]RelayNode, error) {
	relays, err := s.repo.ListRelaysByWorld(ctx, nil, worldX, worldY, worldZ)
	if err != nil {
		return nil, err
	}
	if relays == nil {
		relays = []RelayNode{}
	}
	return relays, nil
}

// RouteTransfer carries a transfer through the lattice inside the
// caller's transaction: one hop through the relay nearest the sender,
// one through the relay nearest the target (a single hop when they
// coincide). A full buffer anywhere aborts with ErrBackpressure and
// leaves no relay modified.
func (s *Service) RouteTransfer(ctx context.Context, tx *database.Tx, offerID int, units uint32, from, to Anchor) ([]RouteResult, error) {
	logger := s.logger.With(
		"component", "lattice_service",
		"operation", "route_transfer",
		"offer_id", offerID,
		"units", units,
	)
	logger.Debug("Routing transfer through lattice")

	fromRelay, err := s.nearestInWorld(ctx, tx, from)
	if err != nil {
		return nil, err
	}
	toRelay, err := s.nearestInWorld(ctx, tx, to)
	if err != nil {
		return nil, err
	}
	if fromRelay == nil || toRelay == nil {
		logger.Warn("World has no relay lattice, transfer unrouted")
		return nil, nil
	}

	hopIDs := []int{fromRelay.ID}
	if toRelay.ID != fromRelay.ID {
		hopIDs = append(hopIDs, toRelay.ID)
	}
	// Lock relays in id order so concurrent routes cannot deadlock.
	sort.Ints(hopIDs)

	// Lock and check every hop before touching any of them: the caller
	// may commit this transaction even after a backpressure abort.
	game := config.GlobalConfig.Game
	hops := make([]*RelayNode, 0, len(hopIDs))
	for _, id := range hopIDs {
		relay, err := s.repo.GetRelayForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if relay == nil {
			return nil, fmt.Errorf("relay %d disappeared during routing", id)
		}

		if relay.BufferCount+units > game.RelayBufferCapacity {
			logger.Debug("Relay buffer full", "relay_id", id, "buffered", relay.BufferCount)
			return nil, ErrBackpressure
		}

		hops = append(hops, relay)
	}

	now := time.Now().UTC()
	results := make([]RouteResult, 0, len(hops))
	for _, relay := range hops {
		relay.Buffer = append(relay.Buffer, RelayParcel{OfferID: offerID, Units: units, RoutedAt: now})
		relay.BufferCount += units
		relay.LifetimeRouted += int64(units)
		activated := applyCharge(relay, game.RelayChargePerRoute)

		if err := s.repo.UpdateRelayState(ctx, tx, relay); err != nil {
			return nil, err
		}

		results = append(results, RouteResult{
			RelayID:   relay.ID,
			WorldX:    relay.WorldX,
			WorldY:    relay.WorldY,
			WorldZ:    relay.WorldZ,
			Address:   relay.Address,
			Charge:    relay.Charge,
			Status:    relay.Status,
			Activated: activated,
		})
	}

	return results, nil
}

// PumpRelays clears parcels that finished their transit pulse,
// releasing buffer capacity. Returns the number of parcels cleared.
func (s *Service) PumpRelays(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repo.ListBufferedRelayIDs(ctx)
	if err != nil {
		return 0, err
	}

	window := config.GlobalConfig.Game.RelayTransitWindow
	cleared := 0
	for _, id := range ids {
		n, err := s.pumpRelay(ctx, id, now, window)
		if err != nil {
			return cleared, err
		}
		cleared += n
	}

	if cleared > 0 {
		s.logger.Info("Relay buffers pumped",
			"component", "lattice_service",
			"operation", "pump_relays",
			"parcels_cleared", cleared,
		)
	}

	return cleared, nil
}

func (s *Service) pumpRelay(ctx context.Context, id int, now time.Time, window time.Duration) (int, error) {
	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	relay, err := s.repo.GetRelayForUpdate(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if relay == nil {
		return 0, nil
	}

	kept := relay.Buffer[:0]
	var keptUnits uint32
	for _, parcel := range relay.Buffer {
		if now.Sub(parcel.RoutedAt) < window {
			kept = append(kept, parcel)
			keptUnits += parcel.Units
		}
	}

	cleared := len(relay.Buffer) - len(kept)
	if cleared == 0 {
		return 0, nil
	}

	relay.Buffer = kept
	relay.BufferCount = keptUnits
	if err := s.repo.UpdateRelayState(ctx, tx, relay); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return cleared, nil
}

func (s *Service) nearestInWorld(ctx context.Context, tx *database.Tx, anchor Anchor) (*RelayNode, error) {
	relays, err := s.repo.ListRelaysByWorld(ctx, tx, anchor.WorldX, anchor.WorldY, anchor.WorldZ)
	if err != nil {
		return nil, err
	}
	return nearestRelay(relays, anchor.X, anchor.Y, anchor.Z), nil
}

// nearestRelay picks the relay closest to a position; ties keep the
// lowest id since relays arrive ordered.
func nearestRelay(relays []RelayNode, x, y, z float64) *RelayNode {
	var best *RelayNode
	bestDist := math.MaxFloat64
	for i := range relays {
		dx := relays[i].X - x
		dy := relays[i].Y - y
		dz := relays[i].Z - z
		dist := dx*dx + dy*dy + dz*dz
		if dist < bestDist {
			bestDist = dist
			best = &relays[i]
		}
	}
	return best
}

func applyCharge(relay *RelayNode, increment float64) bool {
	relay.Charge = math.Min(100, relay.Charge+increment)
	if relay.Charge >= 100 {
		if relay.Status != RelayStatusActive {
			relay.Status = RelayStatusActive
			return true
		}
		return false
	}
	if relay.Status == RelayStatusInactive {
		relay.Status = RelayStatusCharging
	}
	return false
}
