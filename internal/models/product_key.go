package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProductKeyStatusActive  = "active"
	ProductKeyStatusRevoked = "revoked"
)

// ProductKey is a caller-facing API key. Only the sha256 hash of the
// secret is stored; the plaintext is returned once at creation time.
type ProductKey struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	KeyHash    string     `gorm:"uniqueIndex;not null" json:"-"`
	KeyPrefix  string     `gorm:"not null" json:"key_prefix"`
	Name       string     `gorm:"not null" json:"name"`
	UserID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	User       *User      `json:"-"`
	Status     string     `gorm:"default:'active'" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func (k *ProductKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

func (ProductKey) TableName() string {
	return "product_keys"
}
