package relations

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/models"
)

// Reconciler keeps the ledgers in step with the edges they describe.
type Reconciler struct {
	edges   *EdgeStore
	ledgers map[models.RelationshipType]*Ledger
	users   UserDirectory
}

func NewReconciler(edges *EdgeStore, ledgers map[models.RelationshipType]*Ledger, users UserDirectory) *Reconciler {
	return &Reconciler{edges: edges, ledgers: ledgers, users: users}
}

func (r *Reconciler) ledger(kind models.RelationshipType) (*Ledger, error) {
	l, ok := r.ledgers[kind]
	if !ok {
		return nil, apperr.Validation("relationship type %q has no ledger", kind)
	}
	return l, nil
}

// OnAccepted materializes the ledger entry for a freshly accepted elevated edge.
func (r *Reconciler) OnAccepted(ctx context.Context, tx *gorm.DB, edge *models.Relationship) error {
	if edge.Status != models.StatusAccepted || !edge.Type.Elevated() || edge.ElevatedID == nil {
		return nil
	}
	l, err := r.ledger(edge.Type)
	if err != nil {
		return err
	}
	owner := *edge.ElevatedID
	_, err = l.Ensure(ctx, tx, owner, edge.Other(owner))
	return err
}

// Backfill creates a default entry for every accepted edge of type kind that owner is elevated on.
// It returns the number of rows inserted. Running it again inserts nothing.
func (r *Reconciler) Backfill(ctx context.Context, tx *gorm.DB, owner uint, kind models.RelationshipType) (int, error) {
	l, err := r.ledger(kind)
	if err != nil {
		return 0, err
	}
	subjects, err := r.edges.SubjectIDs(ctx, tx, owner, kind)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, subject := range subjects {
		inserted, err := l.Ensure(ctx, tx, owner, subject)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

// ReplaceRoles swaps user's role set for roles and backfills the ledgers of any elevated role held afterwards.
func (r *Reconciler) ReplaceRoles(ctx context.Context, tx *gorm.DB, userID uint, roles []models.RoleName) (map[models.RelationshipType]int, error) {
	conn := tx.WithContext(ctx)

	var roleRows []models.Role
	if err := conn.Where("name IN ?", roles).Find(&roleRows).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	if len(roleRows) != len(roles) {
		return nil, apperr.Validation("unknown role in %v", roles)
	}

	if err := conn.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	links := make([]models.UserRole, 0, len(roleRows))
	for _, role := range roleRows {
		links = append(links, models.UserRole{UserID: userID, RoleID: role.ID})
	}
	if len(links) > 0 {
		if err := conn.Create(&links).Error; err != nil {
			return nil, apperr.Storage(err)
		}
	}

	backfilled := map[models.RelationshipType]int{}
	for _, role := range roles {
		kind, ok := kindForRole(role)
		if !ok {
			continue
		}
		n, err := r.Backfill(ctx, tx, userID, kind)
		if err != nil {
			return nil, err
		}
		backfilled[kind] = n
	}
	return backfilled, nil
}

// Reassign makes owner's subjects of type kind exactly subjects.
// Callers run it inside one transaction; any error leaves that transaction to roll back.
func (r *Reconciler) Reassign(ctx context.Context, tx *gorm.DB, owner uint, subjects []uint, kind models.RelationshipType) (*ReassignResult, error) {
	l, err := r.ledger(kind)
	if err != nil {
		return nil, err
	}

	exists, err := r.users.UserExists(ctx, tx, owner)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if !exists {
		return nil, apperr.NotFound("user not found")
	}
	holds, err := r.users.HasRole(ctx, tx, owner, l.schema.role)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if !holds {
		return nil, apperr.Validation("user is not a %s", l.schema.role)
	}

	desired := dedupe(subjects)
	for _, subject := range desired {
		if subject == owner {
			return nil, apperr.Validation("a user cannot be their own %s", l.schema.subject)
		}
	}
	missing, err := r.users.MissingUsers(ctx, tx, desired)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if len(missing) > 0 {
		return nil, apperr.NotFound("user %d not found", missing[0])
	}

	current, err := r.currentSubjects(ctx, tx, owner, l)
	if err != nil {
		return nil, err
	}

	result := &ReassignResult{Added: []uint{}, Removed: []uint{}}
	want := toSet(desired)
	for _, subject := range desired {
		if _, held := current[subject]; held {
			continue
		}
		if err := r.link(ctx, tx, l, owner, subject); err != nil {
			return nil, err
		}
		result.Added = append(result.Added, subject)
	}

	for _, subject := range sortedKeys(current) {
		if _, keep := want[subject]; keep {
			continue
		}
		if err := l.Delete(ctx, tx, owner, subject); err != nil {
			return nil, err
		}
		if _, err := r.edges.Degrade(ctx, tx, owner, subject, kind); err != nil {
			return nil, err
		}
		result.Removed = append(result.Removed, subject)
	}
	return result, nil
}

func (r *Reconciler) link(ctx context.Context, tx *gorm.DB, l *Ledger, owner, subject uint) error {
	if _, err := l.Ensure(ctx, tx, owner, subject); err != nil {
		return err
	}
	return r.edges.EnsureAccepted(ctx, tx, owner, subject, l.schema.kind)
}

// currentSubjects is the union of ledger entries and accepted typed edges held by owner.
func (r *Reconciler) currentSubjects(ctx context.Context, tx *gorm.DB, owner uint, l *Ledger) (map[uint]struct{}, error) {
	fromLedger, err := l.SubjectIDs(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	fromEdges, err := r.edges.SubjectIDs(ctx, tx, owner, l.schema.kind)
	if err != nil {
		return nil, err
	}
	return toSet(append(fromLedger, fromEdges...)), nil
}

func kindForRole(role models.RoleName) (models.RelationshipType, bool) {
	switch role {
	case models.RoleMentor:
		return models.TypeMentor, true
	case models.RoleCounsellor:
		return models.TypeCounsellor, true
	}
	return "", false
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedKeys(set map[uint]struct{}) []uint {
	keys := make([]uint, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
