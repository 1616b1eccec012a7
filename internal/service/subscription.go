package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
)

// Billing event types accepted from the webhook.
const (
	BillingEventSubscriptionCreated  = "subscription.created"
	BillingEventSubscriptionUpdated  = "subscription.updated"
	BillingEventSubscriptionCanceled = "subscription.canceled"
)

var ErrUnknownBillingEvent = errors.New("unknown billing event type")

// BillingEvent is the normalized payload a billing-provider webhook
// delivers. Signature verification happens upstream of this service.
type BillingEvent struct {
	Type        string    `json:"type" binding:"required"`
	UserID      uuid.UUID `json:"user_id"`
	Plan        string    `json:"plan"`
	Status      string    `json:"status"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	BillingRef  string    `json:"billing_ref" binding:"required"`
}

type SubscriptionService struct {
	subs   *repository.SubscriptionRepository
	users  *repository.UserRepository
	logger *slog.Logger
}

func NewSubscriptionService(subs *repository.SubscriptionRepository, users *repository.UserRepository, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		subs:   subs,
		users:  users,
		logger: logger.With("component", "subscription"),
	}
}

// ApplyBillingEvent translates one webhook event into subscription-state
// writes. The gate only ever reads the result; all mutation of
// subscription state funnels through here or admin action.
func (s *SubscriptionService) ApplyBillingEvent(ctx context.Context, ev BillingEvent) error {
	switch ev.Type {
	case BillingEventSubscriptionCreated:
		return s.created(ctx, ev)
	case BillingEventSubscriptionUpdated:
		return s.updated(ctx, ev)
	case BillingEventSubscriptionCanceled:
		return s.canceled(ctx, ev)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBillingEvent, ev.Type)
	}
}

func (s *SubscriptionService) created(ctx context.Context, ev BillingEvent) error {
	// Replays of the same event must not create a second row.
	if existing, err := s.subs.FindByBillingRef(ctx, ev.BillingRef); err != nil {
		return err
	} else if existing != nil {
		return nil
	}

	plan, err := s.subs.FindPlanByName(ctx, ev.Plan)
	if err != nil {
		return err
	}
	if plan == nil {
		return fmt.Errorf("unknown plan in billing event: %s", ev.Plan)
	}

	status := ev.Status
	if status == "" {
		status = models.SubscriptionStatusActive
	}

	sub := &models.Subscription{
		UserID:             ev.UserID,
		PlanID:             plan.ID,
		Status:             status,
		CurrentPeriodStart: ev.PeriodStart,
		CurrentPeriodEnd:   ev.PeriodEnd,
		BillingRef:         ev.BillingRef,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return err
	}

	if err := s.users.SetCurrentSubscription(ctx, ev.UserID, &sub.ID); err != nil {
		return err
	}

	s.logger.Info("subscription created", "user_id", ev.UserID, "plan", ev.Plan, "billing_ref", ev.BillingRef)
	return nil
}

func (s *SubscriptionService) updated(ctx context.Context, ev BillingEvent) error {
	sub, err := s.subs.FindByBillingRef(ctx, ev.BillingRef)
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("billing event for unknown subscription: %s", ev.BillingRef)
	}

	updates := map[string]interface{}{}
	if ev.Status != "" {
		updates["status"] = ev.Status
	}
	if !ev.PeriodStart.IsZero() {
		updates["current_period_start"] = ev.PeriodStart
	}
	if !ev.PeriodEnd.IsZero() {
		updates["current_period_end"] = ev.PeriodEnd
	}
	if len(updates) > 0 {
		if err := s.subs.Update(ctx, sub.ID, updates); err != nil {
			return err
		}
	}

	if ev.Status == models.SubscriptionStatusCanceled {
		return s.users.SetCurrentSubscription(ctx, sub.UserID, nil)
	}

	return nil
}

func (s *SubscriptionService) canceled(ctx context.Context, ev BillingEvent) error {
	sub, err := s.subs.FindByBillingRef(ctx, ev.BillingRef)
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("billing event for unknown subscription: %s", ev.BillingRef)
	}

	if err := s.subs.Update(ctx, sub.ID, map[string]interface{}{
		"status": models.SubscriptionStatusCanceled,
	}); err != nil {
		return err
	}

	// The historical row stays; only the live pointer is cleared.
	if err := s.users.SetCurrentSubscription(ctx, sub.UserID, nil); err != nil {
		return err
	}

	s.logger.Info("subscription canceled", "user_id", sub.UserID, "billing_ref", ev.BillingRef)
	return nil
}

func (s *SubscriptionService) ListPlans(ctx context.Context) ([]models.Plan, error) {
	return s.subs.ListPlans(ctx)
}

func (s *SubscriptionService) History(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	return s.subs.ListByUser(ctx, userID)
}
