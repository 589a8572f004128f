package models

import "time"

// ActivityLog is an append-only audit record.
type ActivityLog struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        uint   `gorm:"not null;index"`
	ActivityType  string `gorm:"size:50;not null"`
	Description   string
	RelatedUserID *uint `gorm:"index"`
	CreatedAt     time.Time
}
