package relations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/directory"
	"moodiary/backend/internal/models"
)

func requireAdmin(actor Principal) error {
	if !actor.HasRole(models.RoleAdmin) {
		return apperr.Forbidden("admin access required")
	}
	return nil
}

// ParseRoles keeps the valid role names in names, deduplicated and in order.
func ParseRoles(names []string) []models.RoleName {
	seen := map[models.RoleName]bool{}
	roles := make([]models.RoleName, 0, len(names))
	for _, n := range names {
		role := models.RoleName(strings.ToLower(strings.TrimSpace(n)))
		if !role.Valid() || seen[role] {
			continue
		}
		seen[role] = true
		roles = append(roles, role)
	}
	return roles
}

// SetRoles replaces userID's role set. Granting mentor or counsellor backfills that ledger
// from the user's existing accepted edges; the result counts the rows created per ledger.
func (s *Service) SetRoles(ctx context.Context, actor Principal, userID uint, names []string) (backfilled map[models.RelationshipType]int, err error) {
	defer s.metrics.track("set_roles", time.Now(), &err)
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	roles := ParseRoles(names)
	if len(roles) == 0 {
		return nil, apperr.Validation("no valid roles provided")
	}

	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		backfilled, err = s.reconciler.ReplaceRoles(ctx, tx, userID, roles)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("roles replaced", "user_id", userID, "roles", roles, "backfilled", backfilled)
	s.audit.Record(ctx, actor.UserID, ActivityUpdatedRoles, fmt.Sprintf("set roles to %v", roles), ref(userID))
	return backfilled, nil
}

// ReassignSubjects makes owner's subjects of type kind exactly subjects. The call is all or nothing.
func (s *Service) ReassignSubjects(ctx context.Context, actor Principal, owner uint, subjects []uint, kind models.RelationshipType) (result *ReassignResult, err error) {
	defer s.metrics.track("reassign_subjects", time.Now(), &err)
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !kind.Elevated() {
		return nil, apperr.Validation("relationship type %q cannot be reassigned", kind)
	}

	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		result, err = s.reconciler.Reassign(ctx, tx, owner, subjects, kind)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subjects reassigned", "owner_id", owner, "kind", kind, "added", result.Added, "removed", result.Removed)
	s.audit.Record(ctx, actor.UserID, ActivityReassigned,
		fmt.Sprintf("reassigned %s subjects: +%v -%v", kind, result.Added, result.Removed), ref(owner))
	return result, nil
}

// AdminListSubjects lists everyone owner holds through either a ledger entry or an accepted edge of type kind.
func (s *Service) AdminListSubjects(ctx context.Context, actor Principal, owner uint, kind models.RelationshipType) (subjects []directory.UserSummary, err error) {
	defer s.metrics.track("admin_list_subjects", time.Now(), &err)
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	l, err := s.ledger(kind)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := s.requireUser(ctx, tx, owner); err != nil {
			return err
		}
		held, err := s.reconciler.currentSubjects(ctx, tx, owner, l)
		if err != nil {
			return err
		}
		subjects, err = s.users.Profiles(ctx, tx, sortedKeys(held))
		return apperr.Storage(err)
	})
	if err != nil {
		return nil, err
	}
	return subjects, nil
}

// DeleteUser removes userID and every row referencing them in one transaction.
// Nothing is audited so that no row names the user afterwards.
func (s *Service) DeleteUser(ctx context.Context, actor Principal, userID uint) (err error) {
	defer s.metrics.track("delete_user", time.Now(), &err)
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if userID == actor.UserID {
		return apperr.Validation("administrators cannot delete their own account")
	}

	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}
		return s.cascade.Run(ctx, tx, userID)
	})
	if err != nil {
		s.log.Warn("user deletion rolled back", "user_id", userID, "error", err)
		return err
	}
	s.log.Info("user deleted", "user_id", userID, "admin_id", actor.UserID)
	return nil
}
