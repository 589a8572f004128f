package models

import "time"

// MentorMentee holds a mentor's private metadata about one mentee.
type MentorMentee struct {
	ID             uint `gorm:"primaryKey"`
	MentorID       uint `gorm:"not null;uniqueIndex:idx_mentor_mentee_pair"`
	MenteeID       uint `gorm:"not null;uniqueIndex:idx_mentor_mentee_pair;index"`
	Notes          string
	NeedsAttention bool `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (MentorMentee) TableName() string { return "mentor_mentee" }

// CounsellorClient holds a counsellor's private metadata about one client.
type CounsellorClient struct {
	ID           uint `gorm:"primaryKey"`
	CounsellorID uint `gorm:"not null;uniqueIndex:idx_counsellor_client_pair"`
	ClientID     uint `gorm:"not null;uniqueIndex:idx_counsellor_client_pair;index"`
	Notes        string
	Priority     bool `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CounsellorClient) TableName() string { return "counsellor_client" }

// CounsellingSession is a scheduled meeting between a counsellor and a client.
type CounsellingSession struct {
	ID           uint      `gorm:"primaryKey"`
	CounsellorID uint      `gorm:"not null;index"`
	ClientID     uint      `gorm:"not null;index"`
	SessionDate  time.Time `gorm:"not null;index"`
	SessionType  string    `gorm:"size:50;not null"`
	Notes        string
	CreatedAt    time.Time
}
