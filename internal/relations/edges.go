package relations

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/models"
)

const pairWhere = "user_low_id = ? AND user_high_id = ?"

var pairColumns = []clause.Column{{Name: "user_low_id"}, {Name: "user_high_id"}}

// EdgeStore owns the relationships table.
type EdgeStore struct {
	db *gorm.DB
}

func NewEdgeStore(db *gorm.DB) *EdgeStore {
	return &EdgeStore{db: db}
}

func (s *EdgeStore) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}
	return transaction.WithContext(ctx)
}

// Find returns the edge between a and b in either direction.
func (s *EdgeStore) Find(ctx context.Context, tx *gorm.DB, a, b uint) (*models.Relationship, error) {
	low, high := models.PairKey(a, b)
	var r models.Relationship
	err := s.conn(ctx, tx).Where(pairWhere, low, high).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("relationship not found")
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &r, nil
}

// CreatePending inserts a pending edge. Any existing edge for the pair is a Conflict.
func (s *EdgeStore) CreatePending(ctx context.Context, tx *gorm.DB, requester, recipient uint, t models.RelationshipType) (*models.Relationship, error) {
	if requester == recipient {
		return nil, apperr.Validation("cannot create a relationship with yourself")
	}
	if !t.Valid() {
		return nil, apperr.Validation("invalid relationship type %q", t)
	}

	_, err := s.Find(ctx, tx, requester, recipient)
	switch {
	case err == nil:
		return nil, apperr.Conflict("a relationship already exists between these users")
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, err
	}

	r := models.NewRelationship(requester, recipient, t, models.StatusPending)
	if err := s.conn(ctx, tx).Create(&r).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperr.Conflict("a relationship already exists between these users")
		}
		return nil, apperr.Storage(err)
	}
	return &r, nil
}

// Accept moves the pending edge sent by requester to recipient into accepted.
// A non-nil newType retypes the edge, and an elevated newType puts the requester on the elevated side.
func (s *EdgeStore) Accept(ctx context.Context, tx *gorm.DB, requester, recipient uint, newType *models.RelationshipType) (*models.Relationship, error) {
	if newType != nil && !newType.Valid() {
		return nil, apperr.Validation("invalid relationship type %q", *newType)
	}
	if requester == recipient {
		return nil, apperr.NotFound("no pending request found")
	}
	low, high := models.PairKey(requester, recipient)

	var r models.Relationship
	err := s.conn(ctx, tx).
		Where(pairWhere+" AND requester_id = ? AND status = ?", low, high, requester, models.StatusPending).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no pending request found")
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}

	if newType != nil && *newType != r.Type {
		r.Type = *newType
		r.ElevatedID = nil
		if r.Type.Elevated() {
			elevated := requester
			r.ElevatedID = &elevated
		}
	}
	r.Status = models.StatusAccepted

	res := s.conn(ctx, tx).Model(&models.Relationship{}).
		Where("id = ? AND status = ?", r.ID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":      r.Status,
			"type":        r.Type,
			"elevated_id": r.ElevatedID,
		})
	if res.Error != nil {
		return nil, apperr.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("no pending request found")
	}
	return &r, nil
}

// Reject deletes the pending edge sent by requester to recipient. Missing rows are not an error.
func (s *EdgeStore) Reject(ctx context.Context, tx *gorm.DB, requester, recipient uint) (bool, error) {
	low, high := models.PairKey(requester, recipient)
	res := s.conn(ctx, tx).
		Where(pairWhere+" AND requester_id = ? AND status = ?", low, high, requester, models.StatusPending).
		Delete(&models.Relationship{})
	if res.Error != nil {
		return false, apperr.Storage(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Remove deletes the edge between a and b at any status. Missing rows are not an error.
func (s *EdgeStore) Remove(ctx context.Context, tx *gorm.DB, a, b uint) (bool, error) {
	low, high := models.PairKey(a, b)
	res := s.conn(ctx, tx).Where(pairWhere, low, high).Delete(&models.Relationship{})
	if res.Error != nil {
		return false, apperr.Storage(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// List returns every edge userID takes part in, newest first.
func (s *EdgeStore) List(ctx context.Context, tx *gorm.DB, userID uint, filter EdgeFilter) ([]models.Relationship, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("invalid relationship status %q", filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperr.Validation("invalid relationship type %q", filter.Type)
	}

	query := s.conn(ctx, tx).Where("(user_low_id = ? OR user_high_id = ?)", userID, userID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var edges []models.Relationship
	if err := query.Order("updated_at DESC, id DESC").Find(&edges).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return edges, nil
}

// SubjectIDs lists the users owner holds an accepted edge of type t over.
func (s *EdgeStore) SubjectIDs(ctx context.Context, tx *gorm.DB, owner uint, t models.RelationshipType) ([]uint, error) {
	var edges []models.Relationship
	err := s.conn(ctx, tx).
		Where("elevated_id = ? AND type = ? AND status = ?", owner, t, models.StatusAccepted).
		Order("id").
		Find(&edges).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	ids := make([]uint, 0, len(edges))
	for i := range edges {
		ids = append(ids, edges[i].Other(owner))
	}
	return ids, nil
}

// EnsureAccepted makes the pair edge accepted, typed t and elevated on owner.
// A concurrent insert of the same pair falls through to the update path.
func (s *EdgeStore) EnsureAccepted(ctx context.Context, tx *gorm.DB, owner, subject uint, t models.RelationshipType) error {
	r := models.NewRelationship(owner, subject, t, models.StatusAccepted)
	res := s.conn(ctx, tx).Clauses(clause.OnConflict{Columns: pairColumns, DoNothing: true}).Create(&r)
	if res.Error != nil {
		return apperr.Storage(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	existing, err := s.Find(ctx, tx, owner, subject)
	if err != nil {
		return err
	}
	if existing.Type == t && existing.Status == models.StatusAccepted &&
		existing.ElevatedID != nil && *existing.ElevatedID == owner {
		return nil
	}
	err = s.conn(ctx, tx).Model(&models.Relationship{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"type":        t,
			"status":      models.StatusAccepted,
			"elevated_id": owner,
		}).Error
	return apperr.Storage(err)
}

// Degrade turns owner's edge of type t with subject back into a friend edge.
// Edges retyped since are left alone.
func (s *EdgeStore) Degrade(ctx context.Context, tx *gorm.DB, owner, subject uint, t models.RelationshipType) (bool, error) {
	low, high := models.PairKey(owner, subject)
	res := s.conn(ctx, tx).Model(&models.Relationship{}).
		Where(pairWhere+" AND type = ? AND elevated_id = ?", low, high, t, owner).
		Updates(map[string]interface{}{
			"type":        models.TypeFriend,
			"elevated_id": nil,
		})
	if res.Error != nil {
		return false, apperr.Storage(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
