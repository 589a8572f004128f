package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID               uint   `gorm:"primaryKey"`
	SenderID         uint   `gorm:"not null;index"`
	RecipientID      uint   `gorm:"not null;index"`
	Content          string `gorm:"not null"`
	ReplyToID        *uint
	ReplyToJournalID *uint `gorm:"index"`
	IsRead           bool  `gorm:"not null;default:false"`
	CreatedAt        time.Time
}
