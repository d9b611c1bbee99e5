package storagenode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"resonance-server/internal/events"
	"resonance-server/internal/inventory"
	"resonance-server/internal/packet"
	"resonance-server/internal/shared/config"
	"resonance-server/internal/shared/database"
	"resonance-server/internal/shared/errors"
)

type Service struct {
	repo             *Repository
	validator        PlacementValidator
	inventoryService *inventory.Service
	db               *database.DB
	bus              *events.Bus
	logger           *slog.Logger
}

func NewService(repo *Repository, validator PlacementValidator, inventoryService *inventory.Service, db *database.DB, bus *events.Bus, logger *slog.Logger) *Service {
	logger.Debug("Initializing storage node service")

	return &Service{
		repo:             repo,
		validator:        validator,
		inventoryService: inventoryService,
		db:               db,
		bus:              bus,
		logger:           logger,
	}
}

// Place creates an empty storage node for the owner, enforcing the
// per-owner cap and the placement rule.
func (s *Service) Place(ctx context.Context, ownerID int, name string, p Placement) (*StorageNode, error) {
	logger := s.logger.With(
		"component", "storage_service",
		"operation", "place",
		"owner_id", ownerID,
		"name", name,
	)
	logger.Debug("Placing storage node")

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("storage node name is required")
	}
	if len(name) > 64 {
		return nil, errors.Validation("storage node name must be at most 64 characters")
	}

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := s.repo.ListNodesByOwnerForUpdate(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	maxNodes := config.GlobalConfig.Game.StorageCapPerOwner
	if len(existing) >= maxNodes {
		return nil, errors.CapacityExceededf("storage node cap reached (%d of %d)", len(existing), maxNodes)
	}

	if err := s.validator.ValidatePlacement(ctx, p, existing); err != nil {
		return nil, err
	}

	node, err := s.repo.CreateNode(ctx, tx, ownerID, name, p)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Storage node placed", "storage_id", node.ID)
	s.bus.Publish(ctx, events.Event{
		Type:    events.TypeStoragePlaced,
		World:   &events.WorldRef{X: node.WorldX, Y: node.WorldY, Z: node.WorldZ},
		ActorID: ownerID,
		Payload: events.StoragePayload{StorageID: node.ID, Name: node.Name},
	})

	return node, nil
}

func (s *Service) List(ctx context.Context, ownerID int) ([]StorageNode, error) {
	nodes, err := s.repo.ListNodesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []StorageNode{}
	}
	return nodes, nil
}

func (s *Service) Get(ctx context.Context, id int) (*StorageNode, error) {
	node, err := s.repo.GetNodeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, errors.NotFoundf("storage node %d not found", id)
	}
	return node, nil
}

// Credit merges packets into the node inside the caller's transaction,
// all-or-nothing against the node capacity.
func (s *Service) Credit(ctx context.Context, tx *database.Tx, storageID int, packets []packet.WavePacket) error {
	node, err := s.repo.GetNodeForUpdate(ctx, tx, storageID)
	if err != nil {
		return err
	}
	if node == nil {
		return errors.NotFoundf("storage node %d not found", storageID)
	}

	capacity := config.GlobalConfig.Game.StorageCapacity
	merged, err := packet.Add(node.Composition, packets, capacity)
	if err == packet.ErrCapacityExceeded {
		return errors.CapacityExceededf(
			"storage node %d cannot hold %d more units (%d/%d used)",
			storageID, packet.Total(packets), node.TotalCount, capacity)
	}
	if err != nil {
		return err
	}

	return s.repo.UpdateComposition(ctx, tx, storageID, merged)
}

// Debit removes packets from the node inside the caller's transaction,
// failing whole when any entry cannot be satisfied.
func (s *Service) Debit(ctx context.Context, tx *database.Tx, storageID int, packets []packet.WavePacket) error {
	node, err := s.repo.GetNodeForUpdate(ctx, tx, storageID)
	if err != nil {
		return err
	}
	if node == nil {
		return errors.NotFoundf("storage node %d not found", storageID)
	}

	remaining, err := packet.Remove(node.Composition, packets)
	if err == packet.ErrInsufficientPackets {
		return errors.InsufficientPacketsf("storage node %d lacks the requested units", storageID)
	}
	if err != nil {
		return err
	}

	return s.repo.UpdateComposition(ctx, tx, storageID, remaining)
}

// Deposit moves packets from the owner's inventory into the node.
func (s *Service) Deposit(ctx context.Context, ownerID, storageID int, packets []packet.WavePacket) (*StorageNode, error) {
	return s.move(ctx, ownerID, storageID, packets, true)
}

// Withdraw moves packets from the node back into the owner's inventory.
func (s *Service) Withdraw(ctx context.Context, ownerID, storageID int, packets []packet.WavePacket) (*StorageNode, error) {
	return s.move(ctx, ownerID, storageID, packets, false)
}

func (s *Service) move(ctx context.Context, ownerID, storageID int, packets []packet.WavePacket, intoStorage bool) (*StorageNode, error) {
	operation := "withdraw"
	if intoStorage {
		operation = "deposit"
	}
	logger := s.logger.With(
		"component", "storage_service",
		"operation", operation,
		"owner_id", ownerID,
		"storage_id", storageID,
		"units", packet.Total(packets),
	)
	logger.Debug("Moving packets between inventory and storage")

	if packet.Total(packets) == 0 {
		return nil, errors.Validation("at least one unit is required")
	}

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	node, err := s.repo.GetNodeForUpdate(ctx, tx, storageID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, errors.NotFoundf("storage node %d not found", storageID)
	}
	if node.OwnerID != ownerID {
		return nil, errors.Forbidden("storage node belongs to another actor")
	}

	if intoStorage {
		if err := s.inventoryService.Debit(ctx, tx, ownerID, packets); err != nil {
			return nil, err
		}
		if err := s.Credit(ctx, tx, storageID, packets); err != nil {
			return nil, err
		}
	} else {
		if err := s.Debit(ctx, tx, storageID, packets); err != nil {
			return nil, err
		}
		if err := s.inventoryService.Credit(ctx, tx, ownerID, packets); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.GetNodeForUpdate(ctx, tx, storageID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("Packets moved")
	return updated, nil
}
