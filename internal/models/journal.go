package models

import "time"

// Mood is a selectable mood for a journal entry.
type Mood struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:50;unique;not null"`
	Emoji string `gorm:"size:16"`
}

// JournalEntry is a mood entry posted by a user.
type JournalEntry struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;index"`
	MoodID    uint `gorm:"not null"`
	Content   string
	IsPublic  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Mood Mood `gorm:"foreignKey:MoodID"`
}

// Comment is a reply left on a journal entry.
type Comment struct {
	ID        uint   `gorm:"primaryKey"`
	EntryID   uint   `gorm:"not null;index"`
	UserID    uint   `gorm:"not null;index"`
	Content   string `gorm:"not null"`
	CreatedAt time.Time
}

// Reaction is a single reaction on a journal entry.
type Reaction struct {
	ID           uint   `gorm:"primaryKey"`
	EntryID      uint   `gorm:"not null;index;uniqueIndex:idx_reaction_entry_user"`
	UserID       uint   `gorm:"not null;index;uniqueIndex:idx_reaction_entry_user"`
	ReactionType string `gorm:"size:20;not null"`
	CreatedAt    time.Time
}
