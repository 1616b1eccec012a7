package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageLog is one admitted request. Rows are append-only: they back
// quota evaluation and analytics and are never updated or deleted.
type UsageLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	UserID         uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ProductKeyID   uuid.UUID `gorm:"type:uuid;index;not null" json:"product_key_id"`
	Method         string    `json:"method"`
	Path           string    `gorm:"index" json:"path"`
	StatusCode     int       `gorm:"index" json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	Credits        int       `gorm:"default:1;not null" json:"credits"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}
