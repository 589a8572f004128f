package directory

import (
	"context"
	"time"

	"gorm.io/gorm"

	"moodiary/backend/internal/models"
)

// LatestMoods maps each user in ids to the mood of their most recent journal entry.
// Users without entries are absent from the map.
func (d *Directory) LatestMoods(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]string, error) {
	moods := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return moods, nil
	}
	var rows []struct {
		UserID    uint
		MoodName  string
		CreatedAt time.Time
	}
	err := d.conn(ctx, tx).Table("journal_entries").
		Select("journal_entries.user_id, moods.name AS mood_name, journal_entries.created_at").
		Joins("JOIN moods ON moods.id = journal_entries.mood_id").
		Where("journal_entries.user_id IN ?", ids).
		Order("journal_entries.created_at DESC, journal_entries.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if _, seen := moods[r.UserID]; !seen {
			moods[r.UserID] = r.MoodName
		}
	}
	return moods, nil
}

func (d *Directory) EntryCount(ctx context.Context, tx *gorm.DB, id uint) (int64, error) {
	var count int64
	err := d.conn(ctx, tx).Model(&models.JournalEntry{}).Where("user_id = ?", id).Count(&count).Error
	return count, err
}

// RecentEntries returns the newest limit entries of a user.
func (d *Directory) RecentEntries(ctx context.Context, tx *gorm.DB, id uint, limit int) ([]MoodEntry, error) {
	entries := []MoodEntry{}
	err := d.conn(ctx, tx).Table("journal_entries").
		Select("journal_entries.content, moods.name AS mood_name, journal_entries.created_at").
		Joins("JOIN moods ON moods.id = journal_entries.mood_id").
		Where("journal_entries.user_id = ?", id).
		Order("journal_entries.created_at DESC, journal_entries.id DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}
