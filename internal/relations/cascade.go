package relations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/models"
)

// cascadeStep removes one group of rows referencing a user.
type cascadeStep struct {
	name string
	run  func(tx *gorm.DB, userID uint) error
}

// ownEntries selects the ids of the user's journal entries.
func ownEntries(tx *gorm.DB, userID uint) *gorm.DB {
	return tx.Model(&models.JournalEntry{}).Select("id").Where("user_id = ?", userID)
}

// cascadeSteps run children before parents.
var cascadeSteps = []cascadeStep{
	{"activity_logs", func(tx *gorm.DB, id uint) error {
		return tx.Where("user_id = ? OR related_user_id = ?", id, id).Delete(&models.ActivityLog{}).Error
	}},
	{"message_replies", func(tx *gorm.DB, id uint) error {
		own := tx.Model(&models.Message{}).Select("id").Where("sender_id = ? OR recipient_id = ?", id, id)
		return tx.Model(&models.Message{}).
			Where("reply_to_id IN (?)", own).
			Update("reply_to_id", nil).Error
	}},
	{"messages", func(tx *gorm.DB, id uint) error {
		return tx.Where("sender_id = ? OR recipient_id = ?", id, id).Delete(&models.Message{}).Error
	}},
	{"authored_reactions", func(tx *gorm.DB, id uint) error {
		return tx.Where("user_id = ?", id).Delete(&models.Reaction{}).Error
	}},
	{"authored_comments", func(tx *gorm.DB, id uint) error {
		return tx.Where("user_id = ?", id).Delete(&models.Comment{}).Error
	}},
	{"counselling_sessions", func(tx *gorm.DB, id uint) error {
		return tx.Where("counsellor_id = ? OR client_id = ?", id, id).Delete(&models.CounsellingSession{}).Error
	}},
	{"mentor_mentee", func(tx *gorm.DB, id uint) error {
		return tx.Where("mentor_id = ? OR mentee_id = ?", id, id).Delete(&models.MentorMentee{}).Error
	}},
	{"counsellor_client", func(tx *gorm.DB, id uint) error {
		return tx.Where("counsellor_id = ? OR client_id = ?", id, id).Delete(&models.CounsellorClient{}).Error
	}},
	{"relationships", func(tx *gorm.DB, id uint) error {
		return tx.Where("user_low_id = ? OR user_high_id = ?", id, id).Delete(&models.Relationship{}).Error
	}},
	{"entry_comments", func(tx *gorm.DB, id uint) error {
		return tx.Where("entry_id IN (?)", ownEntries(tx, id)).Delete(&models.Comment{}).Error
	}},
	{"entry_reactions", func(tx *gorm.DB, id uint) error {
		return tx.Where("entry_id IN (?)", ownEntries(tx, id)).Delete(&models.Reaction{}).Error
	}},
	{"entry_replies", func(tx *gorm.DB, id uint) error {
		return tx.Model(&models.Message{}).
			Where("reply_to_journal_id IN (?)", ownEntries(tx, id)).
			Update("reply_to_journal_id", nil).Error
	}},
	{"journal_entries", func(tx *gorm.DB, id uint) error {
		return tx.Where("user_id = ?", id).Delete(&models.JournalEntry{}).Error
	}},
	{"user_roles", func(tx *gorm.DB, id uint) error {
		return tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error
	}},
	{"users", func(tx *gorm.DB, id uint) error {
		return tx.Unscoped().Delete(&models.User{}, id).Error
	}},
}

// Cascade deletes a user together with every row that references them.
type Cascade struct {
	steps []cascadeStep
}

func NewCascade() *Cascade {
	return &Cascade{steps: cascadeSteps}
}

// Run executes every step on tx. The first failing step aborts the rest and names itself in the error.
func (c *Cascade) Run(ctx context.Context, tx *gorm.DB, userID uint) error {
	conn := tx.WithContext(ctx)
	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return apperr.Storage(err)
		}
		if err := step.run(conn, userID); err != nil {
			return apperr.Storage(fmt.Errorf("delete %s: %w", step.name, err))
		}
	}
	return nil
}
