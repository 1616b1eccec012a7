package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Plan struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name                string    `gorm:"uniqueIndex;not null" json:"name"`
	RequestLimitMonthly int       `gorm:"not null" json:"request_limit_monthly"`
	RateLimitPerMinute  int       `gorm:"not null" json:"rate_limit_per_minute"`
	PriceCents          int       `gorm:"not null" json:"price_cents"`
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Plan) TableName() string {
	return "plans"
}
