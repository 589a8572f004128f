package relations

import (
	"context"

	"gorm.io/gorm"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/models"
)

// hiddenSubject is shared by "not yours" and "does not exist" so the guard never reveals which one it was.
const hiddenSubject = "subject not found or not assigned to you"

// Guard gates every mentor and counsellor action on the current edge.
type Guard struct {
	db *gorm.DB
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// HasAcceptedEdge reports whether a and b share an accepted edge of type t.
// For elevated types a must also be the elevated side.
func (g *Guard) HasAcceptedEdge(ctx context.Context, tx *gorm.DB, a, b uint, t models.RelationshipType) (bool, error) {
	if a == b || !t.Valid() {
		return false, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = g.db
	}
	low, high := models.PairKey(a, b)
	query := transaction.WithContext(ctx).Model(&models.Relationship{}).
		Where(pairWhere+" AND status = ? AND type = ?", low, high, models.StatusAccepted, t)
	if t.Elevated() {
		query = query.Where("elevated_id = ?", a)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, apperr.Storage(err)
	}
	return count > 0, nil
}

// Authorize fails with Forbidden unless actor holds an accepted edge of type t over subject.
func (g *Guard) Authorize(ctx context.Context, tx *gorm.DB, actor, subject uint, t models.RelationshipType) error {
	ok, err := g.HasAcceptedEdge(ctx, tx, actor, subject, t)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden(hiddenSubject)
	}
	return nil
}
