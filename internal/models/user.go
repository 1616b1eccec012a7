package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

type User struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Email                 string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash          string     `gorm:"not null" json:"-"`
	Name                  string     `json:"name"`
	Role                  string     `gorm:"default:'user'" json:"role"`
	Status                string     `gorm:"default:'active'" json:"status"`
	CurrentSubscriptionID *uuid.UUID `gorm:"type:uuid" json:"current_subscription_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	return nil
}

func (User) TableName() string {
	return "users"
}
