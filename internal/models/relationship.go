package models

import "time"

// RelationshipStatus defines the state of a relationship between two users.
type RelationshipStatus string

const (
	// StatusPending means a request has been sent but not yet accepted.
	StatusPending RelationshipStatus = "pending"

	// StatusAccepted means the request was accepted.
	StatusAccepted RelationshipStatus = "accepted"
)

func (s RelationshipStatus) Valid() bool {
	return s == StatusPending || s == StatusAccepted
}

// RelationshipType gives an edge its meaning.
type RelationshipType string

const (
	TypeFriend     RelationshipType = "friend"
	TypeMentor     RelationshipType = "mentor"
	TypeCounsellor RelationshipType = "counsellor"
	TypeFamily     RelationshipType = "family"
)

func (t RelationshipType) Valid() bool {
	switch t {
	case TypeFriend, TypeMentor, TypeCounsellor, TypeFamily:
		return true
	}
	return false
}

// Elevated reports whether the type grants one side authority over the other.
func (t RelationshipType) Elevated() bool {
	return t == TypeMentor || t == TypeCounsellor
}

// Relationship is the single edge between two users.
// The pair is stored once, with UserLowID < UserHighID, so (UserLowID, UserHighID) is the identity key.
type Relationship struct {
	ID          uint               `gorm:"primaryKey"`
	UserLowID   uint               `gorm:"not null;uniqueIndex:idx_relationship_pair"`
	UserHighID  uint               `gorm:"not null;uniqueIndex:idx_relationship_pair;index"`
	RequesterID uint               `gorm:"not null"`
	Type        RelationshipType   `gorm:"type:varchar(20);not null;default:'friend'"`
	Status      RelationshipStatus `gorm:"type:varchar(20);not null"`
	// ElevatedID is the mentor or counsellor side. Nil for friend and family edges.
	ElevatedID *uint `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PairKey returns the canonical (low, high) ordering of two user ids.
func PairKey(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// NewRelationship builds an edge in canonical order.
func NewRelationship(requester, recipient uint, t RelationshipType, status RelationshipStatus) Relationship {
	low, high := PairKey(requester, recipient)
	r := Relationship{
		UserLowID:   low,
		UserHighID:  high,
		RequesterID: requester,
		Type:        t,
		Status:      status,
	}
	if t.Elevated() {
		elevated := requester
		r.ElevatedID = &elevated
	}
	return r
}

// RecipientID is the side that did not send the request.
func (r *Relationship) RecipientID() uint {
	if r.RequesterID == r.UserLowID {
		return r.UserHighID
	}
	return r.UserLowID
}

// Other returns the participant that is not userID.
func (r *Relationship) Other(userID uint) uint {
	if r.UserLowID == userID {
		return r.UserHighID
	}
	return r.UserLowID
}

// Involves reports whether userID is one of the two participants.
func (r *Relationship) Involves(userID uint) bool {
	return r.UserLowID == userID || r.UserHighID == userID
}
