// Package relations is the relationship graph and role-scoped access engine.
//
// Edges between two users live once per unordered pair in the relationships table.
// Mentor and counsellor edges additionally carry a ledger row owned by the elevated side.
// Every exported operation runs in a single transaction and reports failures as *apperr.Error.
package relations

import (
	"context"
	"time"

	"gorm.io/gorm"

	"moodiary/backend/internal/directory"
	"moodiary/backend/internal/models"
)

// Principal is the authenticated caller of an engine operation.
type Principal struct {
	UserID uint
	Roles  []models.RoleName
}

func (p Principal) HasRole(role models.RoleName) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Edge is the caller-facing view of a relationship row.
type Edge struct {
	RequesterID uint                      `json:"requester_id"`
	RecipientID uint                      `json:"recipient_id"`
	Type        models.RelationshipType   `json:"relationship_type"`
	Status      models.RelationshipStatus `json:"status"`
	ElevatedID  *uint                     `json:"elevated_id,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

func edgeOf(r *models.Relationship) Edge {
	return Edge{
		RequesterID: r.RequesterID,
		RecipientID: r.RecipientID(),
		Type:        r.Type,
		Status:      r.Status,
		ElevatedID:  r.ElevatedID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// EdgeFilter narrows ListEdges. Zero values match everything.
type EdgeFilter struct {
	Status models.RelationshipStatus
	Type   models.RelationshipType
}

// Pending splits a user's pending edges by direction.
type Pending struct {
	Received []Edge `json:"received"`
	Sent     []Edge `json:"sent"`
}

// LedgerEntry is the per-pair metadata an elevated user keeps about a subject.
type LedgerEntry struct {
	OwnerID   uint      `json:"owner_id"`
	SubjectID uint      `json:"subject_id"`
	Notes     string    `json:"notes"`
	Flag      bool      `json:"flag"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubjectSummary is one row of a mentor or counsellor dashboard.
type SubjectSummary struct {
	UserID          uint       `json:"user_id"`
	Username        string     `json:"username"`
	FullName        string     `json:"full_name"`
	Email           string     `json:"email"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	Notes           string     `json:"notes"`
	Flag            bool       `json:"flag"`
	UpcomingSession bool       `json:"upcoming_session"`
	RecentMood      string     `json:"recent_mood,omitempty"`
}

// Session is a scheduled counselling session.
type Session struct {
	ID          uint      `json:"id"`
	ClientID    uint      `json:"client_id"`
	SessionDate time.Time `json:"session_date"`
	SessionType string    `json:"session_type"`
	Notes       string    `json:"notes"`
}

// SubjectDetail is everything an elevated user may see about one subject.
type SubjectDetail struct {
	Subject          directory.UserSummary `json:"subject"`
	Entry            LedgerEntry           `json:"entry"`
	EntryCount       int64                 `json:"entry_count"`
	RecentEntries    []directory.MoodEntry `json:"recent_entries"`
	UpcomingSessions []Session             `json:"upcoming_sessions,omitempty"`
	SessionCount     int64                 `json:"session_count,omitempty"`
}

// ReassignResult reports the symmetric difference applied by ReassignSubjects.
type ReassignResult struct {
	Added   []uint `json:"added"`
	Removed []uint `json:"removed"`
}

// UserDirectory answers existence and role questions about users.
type UserDirectory interface {
	UserExists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	MissingUsers(ctx context.Context, tx *gorm.DB, ids []uint) ([]uint, error)
	HasRole(ctx context.Context, tx *gorm.DB, id uint, role models.RoleName) (bool, error)
	Profiles(ctx context.Context, tx *gorm.DB, ids []uint) ([]directory.UserSummary, error)
}

// JournalReader exposes the read-only journal lookups shown on dashboards.
type JournalReader interface {
	LatestMoods(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]string, error)
	EntryCount(ctx context.Context, tx *gorm.DB, id uint) (int64, error)
	RecentEntries(ctx context.Context, tx *gorm.DB, id uint, limit int) ([]directory.MoodEntry, error)
}

// Notifier pushes events to a connected user. Delivery is best effort.
type Notifier interface {
	Publish(userID uint, eventType string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(uint, string, interface{}) {}
