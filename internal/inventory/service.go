package inventory

import (
	"context"
	"log/slog"
	"time"

	"resonance-server/internal/packet"
	"resonance-server/internal/shared/config"
	"resonance-server/internal/shared/database"
	"resonance-server/internal/shared/errors"
)

type Service struct {
	repo   *Repository
	logger *slog.Logger
}

func NewService(repo *Repository, logger *slog.Logger) *Service {
	logger.Debug("Initializing inventory service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Get returns the actor's inventory, presenting an empty one when no row
// exists yet.
func (s *Service) Get(ctx context.Context, actorID int) (*Inventory, error) {
	inv, err := s.repo.GetInventory(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return &Inventory{
			ActorID:     actorID,
			Composition: []packet.WavePacket{},
			TotalCount:  0,
			UpdatedAt:   time.Now(),
		}, nil
	}
	if inv.Composition == nil {
		inv.Composition = []packet.WavePacket{}
	}
	return inv, nil
}

// Credit merges packets into the actor's inventory inside the caller's
// transaction. The capacity check is all-or-nothing: on failure nothing
// is written and the caller sees a capacity error.
func (s *Service) Credit(ctx context.Context, tx *database.Tx, actorID int, packets []packet.WavePacket) error {
	logger := s.logger.With(
		"component", "inventory_service",
		"operation", "credit",
		"actor_id", actorID,
		"units", packet.Total(packets),
	)
	logger.Debug("Crediting inventory")

	if err := s.repo.EnsureRow(ctx, tx, actorID); err != nil {
		return err
	}

	inv, err := s.repo.GetInventoryForUpdate(ctx, tx, actorID)
	if err != nil {
		return err
	}

	var existing []packet.WavePacket
	if inv != nil {
		existing = inv.Composition
	}

	capacity := config.GlobalConfig.Game.InventoryCapacity
	merged, err := packet.Add(existing, packets, capacity)
	if err == packet.ErrCapacityExceeded {
		return errors.CapacityExceededf(
			"inventory cannot hold %d more units (%d/%d used)",
			packet.Total(packets), packet.Total(existing), capacity)
	}
	if err != nil {
		return err
	}

	return s.repo.UpsertInventory(ctx, tx, actorID, merged)
}

// ForceCredit merges packets regardless of the capacity cap. It exists
// for escrow returns: rejecting or expiring a transfer must never fail,
// so the sender may transiently sit above capacity. Regular credits stay
// gated, which drains the overflow before new units fit.
func (s *Service) ForceCredit(ctx context.Context, tx *database.Tx, actorID int, packets []packet.WavePacket) error {
	logger := s.logger.With(
		"component", "inventory_service",
		"operation", "force_credit",
		"actor_id", actorID,
		"units", packet.Total(packets),
	)
	logger.Debug("Force-crediting inventory")

	if err := s.repo.EnsureRow(ctx, tx, actorID); err != nil {
		return err
	}

	inv, err := s.repo.GetInventoryForUpdate(ctx, tx, actorID)
	if err != nil {
		return err
	}

	var existing []packet.WavePacket
	if inv != nil {
		existing = inv.Composition
	}

	merged := packet.Consolidate(append(packet.Clone(existing), packets...))
	return s.repo.UpsertInventory(ctx, tx, actorID, merged)
}

// Debit removes packets from the actor's inventory inside the caller's
// transaction, failing whole when any entry cannot be satisfied.
func (s *Service) Debit(ctx context.Context, tx *database.Tx, actorID int, packets []packet.WavePacket) error {
	logger := s.logger.With(
		"component", "inventory_service",
		"operation", "debit",
		"actor_id", actorID,
		"units", packet.Total(packets),
	)
	logger.Debug("Debiting inventory")

	inv, err := s.repo.GetInventoryForUpdate(ctx, tx, actorID)
	if err != nil {
		return err
	}
	if inv == nil {
		return errors.InsufficientPacketsf("inventory holds no units")
	}

	remaining, err := packet.Remove(inv.Composition, packets)
	if err == packet.ErrInsufficientPackets {
		return errors.InsufficientPacketsf("inventory lacks the requested units")
	}
	if err != nil {
		return err
	}

	return s.repo.UpsertInventory(ctx, tx, actorID, remaining)
}
