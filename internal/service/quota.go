package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/repository"
)

const FreeTierPlanName = "free"

// QuotaPolicy is the resolved counting rule for one request: either the
// subscribed tier (plan limit counted from the billing period start) or
// the free tier (fixed limit over a trailing window). Keeping it a
// plain value makes the branch testable without a database.
type QuotaPolicy struct {
	Plan        string    `json:"plan"`
	Limit       int       `json:"limit"`
	WindowStart time.Time `json:"window_start"`
	FreeTier    bool      `json:"free_tier"`
}

// Exceeded is the single evaluation function for both tiers.
func (p QuotaPolicy) Exceeded(used int64) bool {
	return used >= int64(p.Limit)
}

type QuotaService struct {
	usage      *repository.UsageLogRepository
	freeLimit  int
	freeWindow time.Duration
}

func NewQuotaService(usage *repository.UsageLogRepository, freeLimit int, freeWindowDays int) *QuotaService {
	return &QuotaService{
		usage:      usage,
		freeLimit:  freeLimit,
		freeWindow: time.Duration(freeWindowDays) * 24 * time.Hour,
	}
}

// PolicyFor picks the tier. Only an active subscription gets the plan
// limit; trialing, past_due and canceled all fall back to free tier.
func (s *QuotaService) PolicyFor(sub *models.Subscription, now time.Time) QuotaPolicy {
	if sub != nil && sub.Status == models.SubscriptionStatusActive && sub.Plan != nil {
		return QuotaPolicy{
			Plan:        sub.Plan.Name,
			Limit:       sub.Plan.RequestLimitMonthly,
			WindowStart: sub.CurrentPeriodStart,
		}
	}

	return QuotaPolicy{
		Plan:        FreeTierPlanName,
		Limit:       s.freeLimit,
		WindowStart: now.Add(-s.freeWindow),
		FreeTier:    true,
	}
}

// Check counts the user's ledger entries inside the policy window and
// returns a QuotaExceededError when the limit is spent. The count is
// read-committed, not linearizable with concurrent admissions; a
// one-request overshoot under simultaneous admission is accepted.
func (s *QuotaService) Check(ctx context.Context, userID uuid.UUID, sub *models.Subscription, now time.Time) (QuotaPolicy, int64, error) {
	policy := s.PolicyFor(sub, now)

	used, err := s.usage.CountByUserSince(ctx, userID, policy.WindowStart)
	if err != nil {
		return policy, 0, err
	}

	if policy.Exceeded(used) {
		return policy, used, &QuotaExceededError{
			Limit: policy.Limit,
			Used:  used,
			Plan:  policy.Plan,
		}
	}

	return policy, used, nil
}
