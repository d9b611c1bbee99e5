package actor

import (
	"context"
	"fmt"
	"log/slog"

	"resonance-server/internal/shared/config"
	"resonance-server/internal/shared/errors"
)

type Service struct {
	repo   *Repository
	logger *slog.Logger
}

func NewService(repo *Repository, logger *slog.Logger) *Service {
	logger.Debug("Initializing actor service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetActorByID(ctx context.Context, id int) (*Actor, error) {
	a, err := s.repo.GetActorByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errors.NotFoundf("actor %d not found", id)
	}
	return a, nil
}

func (s *Service) GetActorCount(ctx context.Context) (int, error) {
	return s.repo.GetActorCount(ctx)
}

// EnsureActor resolves the actor row for a validated token subject,
// provisioning it on first sight. Token issuance happens at the gateway;
// this server only needs a durable row to hang game state off.
func (s *Service) EnsureActor(ctx context.Context, username, displayName string) (*Actor, error) {
	logger := s.logger.With(
		"component", "actor_service",
		"operation", "ensure_actor",
		"username", username,
	)
	logger.Debug("Ensuring actor exists")

	cfg := config.GlobalConfig
	isAdminUsername := cfg != nil && username == cfg.Admin.Username

	existing, err := s.repo.FindActorByUsername(ctx, username)
	if err != nil {
		logger.Error("Database error checking for actor by username", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	if existing != nil {
		if isAdminUsername && existing.Role != ActorRoleAdmin {
			logger.Info("Upgrading existing actor to admin role", "actor_id", existing.ID)
			if err := s.repo.UpdateActorRole(ctx, existing.ID, ActorRoleAdmin); err != nil {
				logger.Error("Failed to upgrade actor to admin", "error", err)
				return nil, fmt.Errorf("failed to upgrade to admin: %w", err)
			}
			existing.Role = ActorRoleAdmin
		}
		return existing, nil
	}

	role := ActorRoleUser
	if isAdminUsername {
		role = ActorRoleAdmin
		if cfg != nil && displayName == "" {
			displayName = cfg.Admin.DisplayName
		}
		logger.Info("Provisioning admin actor")
	}
	if displayName == "" {
		displayName = username
	}

	created, err := s.repo.CreateActor(ctx, username, displayName, role)
	if err != nil {
		if errors.GetType(err) == errors.ErrorTypeConflict {
			// Two first-sight requests raced; the other insert won.
			existing, findErr := s.repo.FindActorByUsername(ctx, username)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		logger.Error("Failed to create actor", "error", err)
		return nil, fmt.Errorf("failed to create actor: %w", err)
	}

	logger.Info("Actor provisioned",
		"actor_id", created.ID,
		"username", created.Username,
		"role", created.Role)

	return created, nil
}
