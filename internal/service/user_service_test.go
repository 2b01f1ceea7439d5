package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/chemconfig-service/internal/domain"
	apperrors "github.com/spec-kit/chemconfig-service/pkg/util"
)

func TestListUsersReturnsDirectory(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users)

	users, err := svc.ListUsers(context.Background(), principalFor(f, "req-1"))
	require.NoError(t, err)

	require.Len(t, users, 4)
	assert.Equal(t, "alex", users[0].Username)
	assert.Equal(t, "sam", users[3].Username)
}

func TestListUsersRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users)

	_, err := svc.ListUsers(context.Background(), domain.Principal{})
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestGetUserByID(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users)

	user, err := svc.GetUser(context.Background(), principalFor(f, "req-1"), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "Sam Lead", user.FullName)
	assert.Equal(t, domain.RoleApprover, user.Role)
}

func TestGetUserNotFound(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users)

	_, err := svc.GetUser(context.Background(), principalFor(f, "req-1"), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}
