package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resonance-server/internal/actor"
	"resonance-server/internal/events"
	"resonance-server/internal/inventory"
	"resonance-server/internal/lattice"
	"resonance-server/internal/packet"
	"resonance-server/internal/shared/config"
	"resonance-server/internal/shared/database"
	"resonance-server/internal/shared/errors"
	"resonance-server/internal/storagenode"
)

type Service struct {
	repo             *Repository
	inventoryService *inventory.Service
	storageService   *storagenode.Service
	actorService     *actor.Service
	latticeService   *lattice.Service
	db               *database.DB
	bus              *events.Bus
	logger           *slog.Logger
}

func NewService(
	repo *Repository,
	inventoryService *inventory.Service,
	storageService *storagenode.Service,
	actorService *actor.Service,
	latticeService *lattice.Service,
	db *database.DB,
	bus *events.Bus,
	logger *slog.Logger,
) *Service {
	logger.Debug("Initializing transfer service")

	return &Service{
		repo:             repo,
		inventoryService: inventoryService,
		storageService:   storageService,
		actorService:     actorService,
		latticeService:   latticeService,
		db:               db,
		bus:              bus,
		logger:           logger,
	}
}

// Initiate escrows the composition out of the sender's inventory and
// opens pending offers toward the target. Oversized requests split into
// multiple offers along the batching limits.
func (s *Service) Initiate(ctx context.Context, senderID int, targetKind TargetKind, targetID int, composition []packet.WavePacket) ([]Offer, error) {
	logger := s.logger.With(
		"component", "transfer_service",
		"operation", "initiate",
		"sender_id", senderID,
		"target_kind", targetKind,
		"target_id", targetID,
	)
	logger.Debug("Initiating transfer")

	if packet.Total(composition) == 0 {
		return nil, errors.Validation("transfer requires at least one unit")
	}

	switch targetKind {
	case TargetKindActor:
		if targetID == senderID {
			return nil, errors.Validation("cannot transfer to yourself")
		}
		if _, err := s.actorService.GetActorByID(ctx, targetID); err != nil {
			return nil, err
		}
	case TargetKindStorage:
		if _, err := s.storageService.Get(ctx, targetID); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Validationf("unknown target kind %q", targetKind)
	}

	game := config.GlobalConfig.Game
	batches := packet.SplitBatches(composition, game.BatchMaxPerFrequency, game.BatchMaxTotal)
	expiresAt := time.Now().UTC().Add(game.OfferWindow)

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.inventoryService.Debit(ctx, tx, senderID, composition); err != nil {
		return nil, err
	}

	offers, err := s.repo.CreateOffersBatch(ctx, tx, senderID, targetKind, targetID, batches, expiresAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Transfer initiated", "offers", len(offers), "units", packet.Total(composition))
	for _, offer := range offers {
		s.bus.Publish(ctx, events.Event{
			Type:    events.TypeTransferInitiated,
			ActorID: senderID,
			Payload: events.TransferPayload{
				OfferID:    offer.ID,
				FromActor:  senderID,
				TargetKind: string(targetKind),
				TargetID:   targetID,
				Units:      offer.Units(),
			},
		})
	}

	return offers, nil
}

// Accept resolves a pending offer in the caller's favor. The caller
// must be the target actor or own the target storage node. The batch
// routes through the relay lattice first; backpressure there turns the
// accept into a reject. A target over capacity leaves the offer pending.
func (s *Service) Accept(ctx context.Context, callerID, offerID int) error {
	logger := s.logger.With(
		"component", "transfer_service",
		"operation", "accept",
		"caller_id", callerID,
		"offer_id", offerID,
	)
	logger.Debug("Accepting transfer")

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	offer, err := s.loadPendingOffer(ctx, tx, offerID)
	if err != nil {
		return err
	}
	if err := s.authorizeResolution(ctx, callerID, offer); err != nil {
		return err
	}

	from, to, err := s.anchors(ctx, offer)
	if err != nil {
		return err
	}

	routed, err := s.latticeService.RouteTransfer(ctx, tx, offer.ID, offer.Units(), from, to)
	if err == lattice.ErrBackpressure {
		if err := s.rejectLocked(ctx, tx, offer, logger, "relay backpressure"); err != nil {
			return err
		}
		return errors.Conflictf("relay lattice congested; transfer offer %d was rejected", offer.ID)
	}
	if err != nil {
		return err
	}

	switch offer.TargetKind {
	case TargetKindActor:
		err = s.inventoryService.Credit(ctx, tx, offer.TargetID, offer.Composition)
	case TargetKindStorage:
		err = s.storageService.Credit(ctx, tx, offer.TargetID, offer.Composition)
	default:
		err = fmt.Errorf("unknown target kind %q", offer.TargetKind)
	}
	if err != nil {
		return err
	}

	resolved, err := s.repo.MarkResolved(ctx, tx, offer.ID, OfferStatusAccepted)
	if err != nil {
		return err
	}
	if !resolved {
		return errors.Conflictf("transfer offer %d is no longer pending", offer.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Transfer accepted", "units", offer.Units())
	s.bus.Publish(ctx, events.Event{
		Type:    events.TypeTransferAccepted,
		ActorID: callerID,
		Payload: s.payloadFor(offer),
	})
	s.publishRouteEvents(ctx, routed)

	return nil
}

// Reject resolves a pending offer against the sender: escrow is
// force-credited back, above capacity if needed.
func (s *Service) Reject(ctx context.Context, callerID, offerID int) error {
	logger := s.logger.With(
		"component", "transfer_service",
		"operation", "reject",
		"caller_id", callerID,
		"offer_id", offerID,
	)
	logger.Debug("Rejecting transfer")

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	offer, err := s.loadPendingOffer(ctx, tx, offerID)
	if err != nil {
		return err
	}
	if err := s.authorizeResolution(ctx, callerID, offer); err != nil {
		return err
	}

	return s.rejectLocked(ctx, tx, offer, logger, "rejected by target")
}

// rejectLocked finishes a reject on an offer already locked in tx,
// committing the transaction.
func (s *Service) rejectLocked(ctx context.Context, tx *database.Tx, offer *Offer, logger *slog.Logger, reason string) error {
	if err := s.inventoryService.ForceCredit(ctx, tx, offer.FromActorID, offer.Composition); err != nil {
		return err
	}

	resolved, err := s.repo.MarkResolved(ctx, tx, offer.ID, OfferStatusRejected)
	if err != nil {
		return err
	}
	if !resolved {
		return errors.Conflictf("transfer offer %d is no longer pending", offer.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Transfer rejected", "reason", reason)
	s.bus.Publish(ctx, events.Event{
		Type:    events.TypeTransferRejected,
		ActorID: offer.FromActorID,
		Payload: s.payloadFor(offer),
	})

	return nil
}

// ListOffers returns the actor's offers in the requested direction.
func (s *Service) ListOffers(ctx context.Context, actorID int, direction string) ([]Offer, error) {
	var incoming bool
	switch direction {
	case "incoming", "":
		incoming = true
	case "outgoing":
		incoming = false
	default:
		return nil, errors.Validationf("direction must be incoming or outgoing, got %q", direction)
	}

	offers, err := s.repo.ListOffersByActor(ctx, actorID, incoming)
	if err != nil {
		return nil, err
	}
	if offers == nil {
		offers = []Offer{}
	}
	return offers, nil
}

// ExpireOffers resolves every pending offer whose window lapsed,
// returning escrow to the senders. Fire-and-forget from any actor's
// perspective.
func (s *Service) ExpireOffers(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repo.ListExpiredPendingIDs(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		ok, err := s.expireOffer(ctx, id, now)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}

	if expired > 0 {
		s.logger.Info("Expired transfer offers",
			"component", "transfer_service",
			"operation", "expire_offers",
			"count", expired,
		)
	}

	return expired, nil
}

func (s *Service) expireOffer(ctx context.Context, id int, now time.Time) (bool, error) {
	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	offer, err := s.repo.GetOfferForUpdate(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if offer == nil || offer.Status != OfferStatusPending || offer.ExpiresAt.After(now) {
		return false, nil
	}

	if err := s.inventoryService.ForceCredit(ctx, tx, offer.FromActorID, offer.Composition); err != nil {
		return false, err
	}

	resolved, err := s.repo.MarkResolved(ctx, tx, offer.ID, OfferStatusExpired)
	if err != nil {
		return false, err
	}
	if !resolved {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.bus.Publish(ctx, events.Event{
		Type:    events.TypeTransferExpired,
		ActorID: offer.FromActorID,
		Payload: s.payloadFor(offer),
	})

	return true, nil
}

// loadPendingOffer locks the offer and verifies it is still resolvable.
// A lapsed offer reads as expired even before the sweeper gets to it.
func (s *Service) loadPendingOffer(ctx context.Context, tx *database.Tx, offerID int) (*Offer, error) {
	offer, err := s.repo.GetOfferForUpdate(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, errors.NotFoundf("transfer offer %d not found", offerID)
	}

	switch offer.Status {
	case OfferStatusPending:
	case OfferStatusExpired:
		return nil, errors.Expiredf("transfer offer %d has expired", offerID)
	default:
		return nil, errors.Conflictf("transfer offer %d is already %s", offerID, offer.Status)
	}

	if !offer.ExpiresAt.After(time.Now().UTC()) {
		return nil, errors.Expiredf("transfer offer %d has expired", offerID)
	}

	return offer, nil
}

func (s *Service) authorizeResolution(ctx context.Context, callerID int, offer *Offer) error {
	switch offer.TargetKind {
	case TargetKindActor:
		if offer.TargetID != callerID {
			return errors.Forbidden("transfer offer targets another actor")
		}
	case TargetKindStorage:
		node, err := s.storageService.Get(ctx, offer.TargetID)
		if err != nil {
			return err
		}
		if node.OwnerID != callerID {
			return errors.Forbidden("transfer offer targets another actor's storage")
		}
	default:
		return fmt.Errorf("unknown target kind %q", offer.TargetKind)
	}
	return nil
}

// anchors resolves the routing endpoints. Actors anchor at the center
// world origin; storage nodes anchor where they were placed.
func (s *Service) anchors(ctx context.Context, offer *Offer) (lattice.Anchor, lattice.Anchor, error) {
	from := lattice.Anchor{}

	if offer.TargetKind == TargetKindStorage {
		node, err := s.storageService.Get(ctx, offer.TargetID)
		if err != nil {
			return from, lattice.Anchor{}, err
		}
		return from, lattice.Anchor{
			WorldX: node.WorldX,
			WorldY: node.WorldY,
			WorldZ: node.WorldZ,
			X:      node.X,
			Y:      node.Y,
			Z:      node.Z,
		}, nil
	}

	return from, lattice.Anchor{}, nil
}

func (s *Service) payloadFor(offer *Offer) events.TransferPayload {
	return events.TransferPayload{
		OfferID:    offer.ID,
		FromActor:  offer.FromActorID,
		TargetKind: string(offer.TargetKind),
		TargetID:   offer.TargetID,
		Units:      offer.Units(),
	}
}

func (s *Service) publishRouteEvents(ctx context.Context, routed []lattice.RouteResult) {
	for _, hop := range routed {
		world := &events.WorldRef{X: hop.WorldX, Y: hop.WorldY, Z: hop.WorldZ}
		payload := events.RelayPayload{
			RelayID: hop.RelayID,
			Address: [3]int{hop.Address.AX, hop.Address.AY, hop.Address.AZ},
			Charge:  hop.Charge,
			Status:  string(hop.Status),
		}
		s.bus.Publish(ctx, events.Event{
			Type:    events.TypeRelayRouted,
			World:   world,
			Payload: payload,
		})
		if hop.Activated {
			s.bus.Publish(ctx, events.Event{
				Type:    events.TypeRelayActivated,
				World:   world,
				Payload: payload,
			})
		}
	}
}
