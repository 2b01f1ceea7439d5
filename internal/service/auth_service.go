package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/chemconfig-service/internal/audit"
	"github.com/spec-kit/chemconfig-service/internal/auth"
	"github.com/spec-kit/chemconfig-service/internal/config"
	"github.com/spec-kit/chemconfig-service/internal/domain"
	"github.com/spec-kit/chemconfig-service/internal/repository"
	apperrors "github.com/spec-kit/chemconfig-service/pkg/util"
)

// AuthService coordinates login and the LOGIN/LOGOUT audit trail.
type AuthService struct {
	users    repository.UserRepository
	recorder *audit.Recorder
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, recorder *audit.Recorder) *AuthService {
	return &AuthService{
		users:    users,
		recorder: recorder,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login verifies credentials, stamps last login and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string, meta RequestMeta) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	s.recorder.Record(ctx, audit.Input{
		Action:     domain.ActionLogin,
		EntityType: domain.EntityUser,
		EntityID:   user.ID,
		UserID:     user.ID,
		UserName:   user.FullName,
		UserRole:   user.Role,
		Details:    "User logged in",
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	})

	return user, token, expiresAt, nil
}

// Logout records the logout. Tokens are stateless, so there is nothing to
// revoke server-side.
func (s *AuthService) Logout(ctx context.Context, principal domain.Principal, meta RequestMeta) {
	s.recorder.Record(ctx, audit.Input{
		Action:     domain.ActionLogout,
		EntityType: domain.EntityUser,
		EntityID:   principal.ID,
		UserID:     principal.ID,
		UserName:   principal.FullName,
		UserRole:   principal.Role,
		Details:    "User logged out",
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	})
}
