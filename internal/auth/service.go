package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/employee-attendance/internal"
	"github.com/frahmantamala/employee-attendance/internal/identity"
)

type TokenVerifier interface {
	Verify(token string) (*identity.Identity, error)
}

// RoleResolver looks up the role of a verified user.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID string) (string, error)
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, token string) (*User, error)
}

type Service struct {
	verifier TokenVerifier
	roles    RoleResolver
	logger   *slog.Logger
}

func NewService(verifier TokenVerifier, roles RoleResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		verifier: verifier,
		roles:    roles,
		logger:   logger,
	}
}

// Authenticate verifies token and resolves the caller's role. Failures are
// returned as *internal.AppError.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken)
	}

	id, err := s.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, identity.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired().WithCause(err)
		}
		return nil, internal.ErrInvalidToken().WithCause(err)
	}

	role, err := s.roles.ResolveRole(ctx, id.UserID)
	if err != nil {
		s.logger.Error("failed to resolve role", "error", err, "user_id", id.UserID)
		return nil, internal.NewInternalError("failed to resolve role", err)
	}

	return &User{ID: id.UserID, Email: id.Email, Role: role}, nil
}
