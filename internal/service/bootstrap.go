package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/chemconfig-service/internal/auth"
	"github.com/spec-kit/chemconfig-service/internal/config"
	"github.com/spec-kit/chemconfig-service/internal/domain"
	"github.com/spec-kit/chemconfig-service/internal/repository"
)

// EnsureAdminUser seeds the configured admin account on startup. Disabled by
// default; a fresh install flips SEED_ADMIN_ENABLED to get a first login.
// An existing account with the configured username is left untouched.
func EnsureAdminUser(ctx context.Context, cfg config.Config, users repository.UserRepository, logger *zap.Logger) error {
	if !cfg.Seed.AdminEnabled {
		return nil
	}
	if cfg.Seed.AdminPassword == "" {
		logger.Warn("admin seed enabled but SEED_ADMIN_PASSWORD is empty; skipping")
		return nil
	}

	_, err := users.GetByUsername(ctx, cfg.Seed.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.Seed.AdminPassword, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	admin := &domain.User{
		Username:     cfg.Seed.AdminUsername,
		FullName:     cfg.Seed.AdminFullName,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Department:   domain.DepartmentEngineering,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	logger.Info("seeded admin account", zap.String("username", admin.Username))
	return nil
}
