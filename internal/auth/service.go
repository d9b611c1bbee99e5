package auth

import (
	"context"
	"fmt"
	"log/slog"

	"resonance-server/internal/actor"
	"resonance-server/internal/shared/errors"
)

type Service struct {
	actorService *actor.Service
	logger       *slog.Logger
}

func NewService(actorService *actor.Service, logger *slog.Logger) *Service {
	logger.Debug("Initializing auth service")

	return &Service{
		actorService: actorService,
		logger:       logger,
	}
}

// ResolveActor maps validated token claims onto the authoritative actor
// row, provisioning the row when the subject is seen for the first time.
func (s *Service) ResolveActor(ctx context.Context, claims *Claims) (*actor.Actor, error) {
	if claims == nil || claims.Username == "" {
		return nil, errors.Unauthorized("token carries no subject")
	}

	a, err := s.actorService.EnsureActor(ctx, claims.Username, claims.DisplayName)
	if err != nil {
		s.logger.Error("Failed to resolve actor for token subject",
			"username", claims.Username, "error", err)
		return nil, fmt.Errorf("failed to resolve actor: %w", err)
	}

	return a, nil
}
