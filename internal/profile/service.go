package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	profileDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/profile"
	"github.com/frahmantamala/employee-attendance/internal/core/events"
	"github.com/go-playground/validator/v10"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*profileDatamodel.Profile, error)
	GetRole(ctx context.Context, userID string) (string, error)
	ListAll(ctx context.Context) ([]*profileDatamodel.Profile, error)
	Create(ctx context.Context, p *profileDatamodel.Profile) error
	AssignRole(ctx context.Context, userID string, role string) error
}

type EventPublisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      RepositoryAPI
	publisher EventPublisher
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		logger:   logger,
	}
}

// UsePublisher makes the service announce new profiles.
func (s *Service) UsePublisher(publisher EventPublisher) {
	s.publisher = publisher
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			s.logger.Error("failed to get profile", "error", err, "user_id", userID)
		}
		return nil, err
	}
	return FromDataModel(p), nil
}

// GetRole resolves the caller's role. A user without a role row is an employee.
func (s *Service) GetRole(ctx context.Context, userID string) (Role, error) {
	role, err := s.repo.GetRole(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			s.logger.Warn("no role assigned, defaulting to employee", "user_id", userID)
			return RoleEmployee, nil
		}
		s.logger.Error("failed to get role", "error", err, "user_id", userID)
		return "", err
	}
	return Role(role), nil
}

// Me loads the profile and role pair for a signed-in user.
func (s *Service) Me(ctx context.Context, userID string) (*MeResponse, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.GetRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MeResponse{Profile: p, Role: role}, nil
}

func (s *Service) ListProfiles(ctx context.Context) ([]*Profile, error) {
	profiles, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list profiles", "error", err)
		return nil, err
	}
	return FromDataModelSlice(profiles), nil
}

func (s *Service) CreateProfile(ctx context.Context, dto CreateProfileDTO) (*Profile, error) {
	if err := s.validate.Struct(dto); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	p := NewProfile(dto.ID, dto.EmployeeID, dto.Name, dto.Department)
	if err := s.repo.Create(ctx, ToDataModel(p)); err != nil {
		s.logger.Error("failed to create profile", "error", err, "user_id", dto.ID)
		return nil, err
	}
	if err := s.repo.AssignRole(ctx, dto.ID, string(dto.Role)); err != nil {
		s.logger.Error("failed to assign role", "error", err, "user_id", dto.ID, "role", dto.Role)
		return nil, err
	}

	s.logger.Info("profile created", "user_id", p.ID, "employee_id", p.EmployeeID, "role", dto.Role)

	if s.publisher != nil {
		if err := s.publisher.PublishSync(ctx, events.NewProfileCreatedEvent(p.ID, p.EmployeeID, string(dto.Role))); err != nil {
			s.logger.Warn("failed to publish profile event", "error", err, "user_id", p.ID)
		}
	}
	return p, nil
}

// ResolveRole satisfies the authentication role lookup.
func (s *Service) ResolveRole(ctx context.Context, userID string) (string, error) {
	role, err := s.GetRole(ctx, userID)
	return string(role), err
}
