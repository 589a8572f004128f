// Package directory answers read-only questions about users and their journals.
// The relationship engine consumes it through interfaces and never writes through it.
package directory

import (
	"context"
	"time"

	"gorm.io/gorm"

	"moodiary/backend/internal/models"
)

// UserSummary is the public slice of a user shown on dashboards.
type UserSummary struct {
	ID          uint       `json:"user_id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// MoodEntry is a journal entry flattened with its mood name.
type MoodEntry struct {
	Content   string    `json:"content"`
	MoodName  string    `json:"mood_name"`
	CreatedAt time.Time `json:"created_at"`
}

type Directory struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	transaction := tx
	if transaction == nil {
		transaction = d.db
	}
	return transaction.WithContext(ctx)
}

func (d *Directory) UserExists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}
	var count int64
	if err := d.conn(ctx, tx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MissingUsers returns the ids from ids that do not name an existing user.
func (d *Directory) MissingUsers(ctx context.Context, tx *gorm.DB, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := d.conn(ctx, tx).Model(&models.User{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []uint
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (d *Directory) HasRole(ctx context.Context, tx *gorm.DB, id uint, role models.RoleName) (bool, error) {
	var count int64
	err := d.conn(ctx, tx).Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.name = ?", id, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RoleNames loads the role set of a user.
func (d *Directory) RoleNames(ctx context.Context, tx *gorm.DB, id uint) ([]models.RoleName, error) {
	var names []models.RoleName
	err := d.conn(ctx, tx).Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", id).
		Order("roles.id").
		Pluck("roles.name", &names).Error
	return names, err
}

// Profiles loads summaries for ids, ordered by id.
func (d *Directory) Profiles(ctx context.Context, tx *gorm.DB, ids []uint) ([]UserSummary, error) {
	if len(ids) == 0 {
		return []UserSummary{}, nil
	}
	var users []models.User
	if err := d.conn(ctx, tx).Where("id IN ?", ids).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, Summarize(u))
	}
	return out, nil
}

func Summarize(u models.User) UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
