package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderKey is an upstream image-API credential in the rotating pool.
// RateLimited must hold exactly when RequestCount has reached the
// configured ceiling; both fields are reset by the daily scheduler.
type ProviderKey struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Key          string    `gorm:"uniqueIndex;not null" json:"-"`
	RequestCount int       `gorm:"default:0;not null" json:"request_count"`
	RateLimited  bool      `gorm:"default:false;not null" json:"rate_limited"`
	LastUsedAt   time.Time `gorm:"index" json:"last_used_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (k *ProviderKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

func (ProviderKey) TableName() string {
	return "provider_keys"
}

// Suffix returns the last four characters of the key for log output.
func (k *ProviderKey) Suffix() string {
	if len(k.Key) > 4 {
		return k.Key[len(k.Key)-4:]
	}
	return k.Key
}
