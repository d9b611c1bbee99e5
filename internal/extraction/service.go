package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resonance-server/internal/events"
	"resonance-server/internal/inventory"
	"resonance-server/internal/orb"
	"resonance-server/internal/packet"
	"resonance-server/internal/shared/config"
	"resonance-server/internal/shared/database"
	"resonance-server/internal/shared/errors"
)

type Service struct {
	repo             *Repository
	orbRepo          *orb.Repository
	inventoryService *inventory.Service
	db               *database.DB
	bus              *events.Bus
	logger           *slog.Logger
}

func NewService(repo *Repository, orbRepo *orb.Repository, inventoryService *inventory.Service, db *database.DB, bus *events.Bus, logger *slog.Logger) *Service {
	logger.Debug("Initializing extraction service")

	return &Service{
		repo:             repo,
		orbRepo:          orbRepo,
		inventoryService: inventoryService,
		db:               db,
		bus:              bus,
		logger:           logger,
	}
}

// Begin opens an extraction session against an orb. An actor holds at
// most one active session per orb; the frequency filter is optional and
// fixed for the session's lifetime.
func (s *Service) Begin(ctx context.Context, actorID, orbID int, filterMin, filterMax *float64) (*Session, error) {
	logger := s.logger.With(
		"component", "extraction_service",
		"operation", "begin",
		"actor_id", actorID,
		"orb_id", orbID,
	)
	logger.Debug("Beginning extraction session")

	if (filterMin == nil) != (filterMax == nil) {
		return nil, errors.Validation("filter_min and filter_max must be provided together")
	}
	if filterMin != nil && *filterMin > *filterMax {
		return nil, errors.Validationf("filter_min %v exceeds filter_max %v", *filterMin, *filterMax)
	}

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	o, err := s.orbRepo.GetOrbForUpdate(ctx, tx, orbID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errors.NotFoundf("orb %d not found", orbID)
	}

	existing, err := s.repo.GetActiveSession(ctx, tx, actorID, orbID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Conflictf("extraction already active for orb %d", orbID)
	}

	session, err := s.repo.CreateSession(ctx, tx, actorID, orbID, filterMin, filterMax)
	if err == ErrSessionExists {
		return nil, errors.Conflictf("extraction already active for orb %d", orbID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.orbRepo.AdjustActiveExtractors(ctx, tx, orbID, 1); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Extraction session started", "session_id", session.ID)
	s.bus.Publish(ctx, events.Event{
		Type:    events.TypeExtractionBegun,
		World:   &events.WorldRef{X: o.WorldX, Y: o.WorldY, Z: o.WorldZ},
		ActorID: actorID,
		Payload: events.ExtractionPayload{SessionID: session.ID, OrbID: orbID},
	})

	return session, nil
}

// Extract withdraws up to the per-call cap from the session's orb and
// launches the withdrawn entries as in-flight packets. An orb with
// nothing matching the filter yields an empty result, not an error.
func (s *Service) Extract(ctx context.Context, actorID, sessionID int) ([]InFlightPacket, error) {
	logger := s.logger.With(
		"component", "extraction_service",
		"operation", "extract",
		"actor_id", actorID,
		"session_id", sessionID,
	)
	logger.Debug("Extracting packets")

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	session, err := s.repo.GetSessionForUpdate(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.ActorID != actorID {
		return nil, errors.NotFoundf("extraction session %d not found", sessionID)
	}
	if !session.Active {
		return nil, errors.Conflictf("extraction session %d has ended", sessionID)
	}

	o, err := s.orbRepo.GetOrbForUpdate(ctx, tx, session.OrbID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errors.NotFoundf("orb %d not found", session.OrbID)
	}

	game := config.GlobalConfig.Game
	taken, remaining := packet.Withdraw(o.Composition, session.Filter(), uint32(game.ExtractionMaxPerCall))
	if len(taken) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		logger.Debug("Nothing to extract")
		return []InFlightPacket{}, nil
	}

	if err := s.orbRepo.UpdateComposition(ctx, tx, session.OrbID, remaining); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	deadline := now.Add(game.TravelTime)
	seq := session.PacketSeq
	launched := make([]InFlightPacket, 0, len(taken))
	for _, p := range taken {
		seq++
		launched = append(launched, InFlightPacket{
			ID:         InFlightID(session.ID, seq),
			SessionID:  session.ID,
			ActorID:    actorID,
			OrbID:      session.OrbID,
			Frequency:  p.Frequency,
			Amplitude:  p.Amplitude,
			Phase:      p.Phase,
			Count:      p.Count,
			DepartedAt: now,
			Deadline:   deadline,
		})
	}

	if err := s.repo.MarkExtracted(ctx, tx, session.ID, seq); err != nil {
		return nil, err
	}
	if err := s.repo.CreateInFlightBatch(ctx, tx, launched); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	ids := make([]string, 0, len(launched))
	for _, p := range launched {
		ids = append(ids, p.ID)
	}
	world := &events.WorldRef{X: o.WorldX, Y: o.WorldY, Z: o.WorldZ}
	logger.Info("Packets extracted", "units", packet.Total(taken), "in_flight", len(launched))
	s.bus.Publish(ctx, events.Event{
		Type:    events.TypePacketExtracted,
		World:   world,
		ActorID: actorID,
		Payload: events.PacketPayload{InFlightIDs: ids, Packets: taken, Units: packet.Total(taken)},
	})
	if packet.Total(remaining) == 0 {
		s.bus.Publish(ctx, events.Event{
			Type:    events.TypeOrbDepleted,
			World:   world,
			Payload: events.OrbPayload{OrbID: session.OrbID},
		})
	}

	return launched, nil
}

// End deactivates the session. Ending an already-ended session is a
// no-op; in-flight packets keep travelling either way.
func (s *Service) End(ctx context.Context, actorID, sessionID int) error {
	logger := s.logger.With(
		"component", "extraction_service",
		"operation", "end",
		"actor_id", actorID,
		"session_id", sessionID,
	)
	logger.Debug("Ending extraction session")

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	session, err := s.repo.GetSessionForUpdate(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if session == nil || session.ActorID != actorID {
		return errors.NotFoundf("extraction session %d not found", sessionID)
	}

	ended, err := s.repo.EndSession(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if ended {
		if err := s.orbRepo.AdjustActiveExtractors(ctx, tx, session.OrbID, -1); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if ended {
		logger.Info("Extraction session ended")
		s.bus.Publish(ctx, events.Event{
			Type:    events.TypeExtractionEnded,
			ActorID: actorID,
			Payload: events.ExtractionPayload{SessionID: sessionID, OrbID: session.OrbID},
		})
	}

	return nil
}

// Acknowledge collects an in-flight packet into the actor's inventory.
// On a capacity failure the row survives the rollback and stays
// acknowledgeable, so nothing is lost until the sweeper expires it.
func (s *Service) Acknowledge(ctx context.Context, actorID int, inFlightID string) error {
	logger := s.logger.With(
		"component", "extraction_service",
		"operation", "acknowledge",
		"actor_id", actorID,
		"in_flight_id", inFlightID,
	)
	logger.Debug("Acknowledging in-flight packet")

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	p, err := s.repo.GetInFlightForUpdate(ctx, tx, inFlightID)
	if err != nil {
		return err
	}
	if p == nil {
		return errors.NotFoundf("in-flight packet %s not found", inFlightID)
	}
	if p.ActorID != actorID {
		return errors.Forbidden("in-flight packet belongs to another actor")
	}

	if err := s.inventoryService.Credit(ctx, tx, actorID, []packet.WavePacket{p.Packet()}); err != nil {
		return err
	}

	if err := s.repo.DeleteInFlight(ctx, tx, inFlightID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Packet acknowledged", "units", p.Count)
	s.bus.Publish(ctx, events.Event{
		Type:    events.TypePacketAcknowledged,
		ActorID: actorID,
		Payload: events.PacketPayload{InFlightIDs: []string{inFlightID}, Packets: []packet.WavePacket{p.Packet()}, Units: p.Count},
	})

	return nil
}

// SweepExpired drops in-flight packets whose deadline passed more than
// the grace window ago. Expired packets are lost, not refunded.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-config.GlobalConfig.Game.SweepGrace)

	expired, err := s.repo.DeleteExpiredInFlight(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, p := range expired {
		s.bus.Publish(ctx, events.Event{
			Type:    events.TypePacketLost,
			ActorID: p.ActorID,
			Payload: events.PacketPayload{InFlightIDs: []string{p.ID}, Packets: []packet.WavePacket{p.Packet()}, Units: p.Count},
		})
	}

	if len(expired) > 0 {
		s.logger.Info("Swept expired in-flight packets",
			"component", "extraction_service",
			"operation", "sweep_expired",
			"count", len(expired),
		)
	}

	return len(expired), nil
}
