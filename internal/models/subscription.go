package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription is one billing window for a user. Historical rows are
// kept for audit; users.current_subscription_id points at the live one.
type Subscription struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID             uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	PlanID             uuid.UUID `gorm:"type:uuid;not null" json:"plan_id"`
	Plan               *Plan     `json:"plan,omitempty"`
	Status             string    `gorm:"not null" json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	BillingRef         string    `gorm:"index" json:"billing_ref,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (Subscription) TableName() string {
	return "subscriptions"
}
