package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/chemconfig-service/internal/domain"
	"github.com/spec-kit/chemconfig-service/internal/repository"
	apperrors "github.com/spec-kit/chemconfig-service/pkg/util"
)

// UserService serves account directory reads. Password hashes never leave the
// service boundary; the DTO layer strips them.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// ListUsers returns all accounts, ordered by username.
func (s *UserService) ListUsers(ctx context.Context, principal domain.Principal) ([]domain.User, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// GetUser returns one account by id.
func (s *UserService) GetUser(ctx context.Context, principal domain.Principal, userID string) (*domain.User, error) {
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
