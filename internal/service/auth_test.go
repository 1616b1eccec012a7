package service

import (
	"context"
	"testing"

	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewAuthService(users, "test-secret", 24)
	ctx := context.Background()

	user, err := svc.Register(ctx, "eve@example.com", "password123", "Eve")
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, err = svc.Register(ctx, "eve@example.com", "password123", "Eve")
	assert.Error(t, err, "duplicate email must be rejected")

	token, err := svc.Login(ctx, "eve@example.com", "password123")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims["user_id"])
	assert.Equal(t, "user", claims["role"])

	_, err = svc.Login(ctx, "eve@example.com", "wrong")
	assert.Error(t, err)
}

func TestLoginSuspended(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewAuthService(users, "test-secret", 24)
	ctx := context.Background()

	user, err := svc.Register(ctx, "frank@example.com", "password123", "Frank")
	require.NoError(t, err)
	require.NoError(t, users.UpdateStatus(ctx, user.ID, models.UserStatusSuspended))

	_, err = svc.Login(ctx, "frank@example.com", "password123")
	assert.ErrorIs(t, err, ErrAccountSuspended)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	svc := NewAuthService(users, "secret-a", 24)
	_, err := svc.Register(ctx, "grace@example.com", "password123", "Grace")
	require.NoError(t, err)

	token, err := svc.Login(ctx, "grace@example.com", "password123")
	require.NoError(t, err)

	other := NewAuthService(users, "secret-b", 24)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
