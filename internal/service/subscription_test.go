package service

import (
	"context"
	"testing"
	"time"

	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBillingEvent(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	subs := repository.NewSubscriptionRepository(db)
	svc := NewSubscriptionService(subs, users, newTestLogger())
	ctx := context.Background()

	user := &models.User{Email: "billing@example.com", PasswordHash: "x", Status: models.UserStatusActive}
	require.NoError(t, users.Create(ctx, user))

	plan := &models.Plan{Name: "pro", RequestLimitMonthly: 500, RateLimitPerMinute: 60, PriceCents: 1900}
	require.NoError(t, subs.CreatePlan(ctx, plan))

	periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	created := BillingEvent{
		Type:        BillingEventSubscriptionCreated,
		UserID:      user.ID,
		Plan:        "pro",
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		BillingRef:  "bil_123",
	}

	t.Run("created activates the subscription", func(t *testing.T) {
		require.NoError(t, svc.ApplyBillingEvent(ctx, created))

		sub, err := subs.FindByBillingRef(ctx, "bil_123")
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
		assert.Equal(t, plan.ID, sub.PlanID)

		got, err := users.FindByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CurrentSubscriptionID)
		assert.Equal(t, sub.ID, *got.CurrentSubscriptionID)
	})

	t.Run("created replay is idempotent", func(t *testing.T) {
		require.NoError(t, svc.ApplyBillingEvent(ctx, created))

		history, err := svc.History(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("updated rolls the billing period", func(t *testing.T) {
		require.NoError(t, svc.ApplyBillingEvent(ctx, BillingEvent{
			Type:        BillingEventSubscriptionUpdated,
			BillingRef:  "bil_123",
			PeriodStart: periodEnd,
			PeriodEnd:   periodEnd.AddDate(0, 1, 0),
		}))

		sub, err := subs.FindByBillingRef(ctx, "bil_123")
		require.NoError(t, err)
		assert.Equal(t, periodEnd, sub.CurrentPeriodStart.UTC())
	})

	t.Run("canceled clears the live pointer but keeps the row", func(t *testing.T) {
		require.NoError(t, svc.ApplyBillingEvent(ctx, BillingEvent{
			Type:       BillingEventSubscriptionCanceled,
			BillingRef: "bil_123",
		}))

		sub, err := subs.FindByBillingRef(ctx, "bil_123")
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, models.SubscriptionStatusCanceled, sub.Status)

		got, err := users.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, got.CurrentSubscriptionID)
	})

	t.Run("unknown event type", func(t *testing.T) {
		err := svc.ApplyBillingEvent(ctx, BillingEvent{Type: "invoice.paid", BillingRef: "bil_123"})
		assert.ErrorIs(t, err, ErrUnknownBillingEvent)
	})

	t.Run("created with unknown plan", func(t *testing.T) {
		err := svc.ApplyBillingEvent(ctx, BillingEvent{
			Type:       BillingEventSubscriptionCreated,
			UserID:     user.ID,
			Plan:       "platinum",
			BillingRef: "bil_999",
		})
		assert.Error(t, err)
	})
}
