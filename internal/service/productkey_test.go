package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKey(t *testing.T) {
	h := HashKey("pg_example")

	assert.Len(t, h, 64)
	assert.Equal(t, h, HashKey("pg_example"))
	assert.NotEqual(t, h, HashKey("pg_other"))
}

func TestCreateAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewProductKeyService(repository.NewProductKeyRepository(db), repository.NewSubscriptionRepository(db), newTestLogger())
	ctx := context.Background()

	user := &models.User{Email: "alice@example.com", PasswordHash: "x", Status: models.UserStatusActive}
	require.NoError(t, users.Create(ctx, user))

	plaintext, key, err := svc.Create(ctx, user.ID, "default")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plaintext, "pg_"))
	assert.NotEqual(t, plaintext, key.KeyHash)
	assert.True(t, strings.HasPrefix(plaintext, key.KeyPrefix))

	gotKey, gotUser, gotSub, err := svc.Authenticate(ctx, plaintext)
	require.NoError(t, err)
	assert.Equal(t, key.ID, gotKey.ID)
	assert.Equal(t, user.ID, gotUser.ID)
	assert.Nil(t, gotSub)
}

func TestAuthenticateTaxonomy(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	keyRepo := repository.NewProductKeyRepository(db)
	svc := NewProductKeyService(keyRepo, repository.NewSubscriptionRepository(db), newTestLogger())
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		_, _, _, err := svc.Authenticate(ctx, "  ")
		assert.ErrorIs(t, err, ErrMissingCredential)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, _, _, err := svc.Authenticate(ctx, "pg_does-not-exist")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("revoked key", func(t *testing.T) {
		user := &models.User{Email: "bob@example.com", PasswordHash: "x", Status: models.UserStatusActive}
		require.NoError(t, users.Create(ctx, user))

		plaintext, key, err := svc.Create(ctx, user.ID, "revoked")
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(ctx, key.ID, user.ID))

		_, _, _, err = svc.Authenticate(ctx, plaintext)
		assert.ErrorIs(t, err, ErrRevokedCredential)
	})

	t.Run("suspended account", func(t *testing.T) {
		user := &models.User{Email: "carol@example.com", PasswordHash: "x", Status: models.UserStatusActive}
		require.NoError(t, users.Create(ctx, user))

		plaintext, _, err := svc.Create(ctx, user.ID, "suspended")
		require.NoError(t, err)
		require.NoError(t, users.UpdateStatus(ctx, user.ID, models.UserStatusSuspended))

		_, _, _, err = svc.Authenticate(ctx, plaintext)
		assert.ErrorIs(t, err, ErrAccountSuspended)
	})
}

func TestAuthenticateResolvesSubscription(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	subs := repository.NewSubscriptionRepository(db)
	svc := NewProductKeyService(repository.NewProductKeyRepository(db), subs, newTestLogger())
	ctx := context.Background()

	user := &models.User{Email: "dave@example.com", PasswordHash: "x", Status: models.UserStatusActive}
	require.NoError(t, users.Create(ctx, user))

	plan := &models.Plan{Name: "pro", RequestLimitMonthly: 500, RateLimitPerMinute: 60}
	require.NoError(t, subs.CreatePlan(ctx, plan))

	sub := &models.Subscription{
		UserID:             user.ID,
		PlanID:             plan.ID,
		Status:             models.SubscriptionStatusActive,
		CurrentPeriodStart: time.Now().UTC().Add(-24 * time.Hour),
	}
	require.NoError(t, subs.Create(ctx, sub))
	require.NoError(t, users.SetCurrentSubscription(ctx, user.ID, &sub.ID))

	plaintext, _, err := svc.Create(ctx, user.ID, "default")
	require.NoError(t, err)

	_, _, gotSub, err := svc.Authenticate(ctx, plaintext)
	require.NoError(t, err)
	require.NotNil(t, gotSub)
	assert.Equal(t, sub.ID, gotSub.ID)
	require.NotNil(t, gotSub.Plan)
	assert.Equal(t, "pro", gotSub.Plan.Name)
}

func TestRevokeOwnership(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewProductKeyService(repository.NewProductKeyRepository(db), repository.NewSubscriptionRepository(db), newTestLogger())
	ctx := context.Background()

	owner := &models.User{Email: "owner@example.com", PasswordHash: "x", Status: models.UserStatusActive}
	other := &models.User{Email: "other@example.com", PasswordHash: "x", Status: models.UserStatusActive}
	require.NoError(t, users.Create(ctx, owner))
	require.NoError(t, users.Create(ctx, other))

	_, key, err := svc.Create(ctx, owner.ID, "default")
	require.NoError(t, err)

	// Another user cannot revoke a key they do not own.
	assert.ErrorIs(t, svc.Revoke(ctx, key.ID, other.ID), ErrInvalidCredential)
	assert.NoError(t, svc.Revoke(ctx, key.ID, owner.ID))
}
