package relations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/models"
)

const (
	mentorRecentEntries     = 5
	counsellorRecentEntries = 10
	upcomingWindow          = 24 * time.Hour
)

// authorizeSubject checks the actor's role for kind and the edge to subject.
func (s *Service) authorizeSubject(ctx context.Context, tx *gorm.DB, actor Principal, kind models.RelationshipType, subject uint) (*Ledger, error) {
	l, err := s.ledger(kind)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(l.schema.role) {
		return nil, apperr.Forbidden("%s access required", l.schema.role)
	}
	if err := s.guard.Authorize(ctx, tx, actor.UserID, subject, kind); err != nil {
		return nil, err
	}
	return l, nil
}

// SubjectDetails returns the actor's ledger entry about subject together with the subject's recent journal activity.
// An absent entry is reported with default metadata.
func (s *Service) SubjectDetails(ctx context.Context, actor Principal, kind models.RelationshipType, subject uint) (detail *SubjectDetail, err error) {
	defer s.metrics.track("subject_details", time.Now(), &err)

	detail = &SubjectDetail{}
	var l *Ledger
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		if l, err = s.authorizeSubject(ctx, tx, actor, kind, subject); err != nil {
			return err
		}
		if detail.Entry, err = l.Lookup(ctx, tx, actor.UserID, subject); err != nil {
			return err
		}

		profiles, err := s.users.Profiles(ctx, tx, []uint{subject})
		if err != nil {
			return apperr.Storage(err)
		}
		if len(profiles) == 0 {
			return apperr.Forbidden(hiddenSubject)
		}
		detail.Subject = profiles[0]

		limit := mentorRecentEntries
		if kind == models.TypeCounsellor {
			limit = counsellorRecentEntries
		}
		if detail.EntryCount, err = s.journal.EntryCount(ctx, tx, subject); err != nil {
			return apperr.Storage(err)
		}
		if detail.RecentEntries, err = s.journal.RecentEntries(ctx, tx, subject, limit); err != nil {
			return apperr.Storage(err)
		}

		if kind == models.TypeCounsellor {
			return s.loadSessions(ctx, tx, actor.UserID, subject, detail)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	activity := ActivityViewedMentee
	if kind == models.TypeCounsellor {
		activity = ActivityViewedClient
	}
	s.audit.Record(ctx, actor.UserID, activity, fmt.Sprintf("viewed %s details", l.schema.subject), ref(subject))
	return detail, nil
}

func (s *Service) loadSessions(ctx context.Context, tx *gorm.DB, counsellor, client uint, detail *SubjectDetail) error {
	conn := tx.WithContext(ctx).Model(&models.CounsellingSession{}).
		Where("counsellor_id = ? AND client_id = ?", counsellor, client).
		Session(&gorm.Session{})

	if err := conn.Count(&detail.SessionCount).Error; err != nil {
		return apperr.Storage(err)
	}
	var rows []models.CounsellingSession
	err := conn.Where("session_date >= ?", time.Now()).Order("session_date").Find(&rows).Error
	if err != nil {
		return apperr.Storage(err)
	}
	detail.UpcomingSessions = make([]Session, 0, len(rows))
	for _, r := range rows {
		detail.UpcomingSessions = append(detail.UpcomingSessions, sessionOf(r))
	}
	return nil
}

func sessionOf(r models.CounsellingSession) Session {
	return Session{
		ID:          r.ID,
		ClientID:    r.ClientID,
		SessionDate: r.SessionDate,
		SessionType: r.SessionType,
		Notes:       r.Notes,
	}
}

// SaveNotes replaces the actor's notes about subject.
func (s *Service) SaveNotes(ctx context.Context, actor Principal, kind models.RelationshipType, subject uint, notes string) (err error) {
	defer s.metrics.track("save_notes", time.Now(), &err)
	var l *Ledger
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		if l, err = s.authorizeSubject(ctx, tx, actor, kind, subject); err != nil {
			return err
		}
		return l.UpsertNotes(ctx, tx, actor.UserID, subject, notes)
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, actor.UserID, ActivityUpdatedNotes, fmt.Sprintf("updated notes for %s", l.schema.subject), ref(subject))
	return nil
}

// SetFlag sets needs_attention for mentees or priority for clients.
func (s *Service) SetFlag(ctx context.Context, actor Principal, kind models.RelationshipType, subject uint, flag bool) (err error) {
	defer s.metrics.track("set_flag", time.Now(), &err)
	var l *Ledger
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		if l, err = s.authorizeSubject(ctx, tx, actor, kind, subject); err != nil {
			return err
		}
		return l.UpsertFlag(ctx, tx, actor.UserID, subject, flag)
	})
	if err != nil {
		return err
	}

	activity, description := ActivityUpdatedPriority, fmt.Sprintf("set client priority to %t", flag)
	if kind == models.TypeMentor {
		activity, description = ActivityMarkedReviewed, "marked mentee as reviewed"
		if flag {
			activity, description = ActivityFlaggedAttention, "flagged mentee as needing attention"
		}
	}
	s.audit.Record(ctx, actor.UserID, activity, description, ref(subject))
	return nil
}

// ListSubjects is the dashboard of an elevated user: every subject held through an accepted edge,
// flagged first, then (for counsellors) those with a session in the next day, then most recently active.
func (s *Service) ListSubjects(ctx context.Context, actor Principal, kind models.RelationshipType) (subjects []SubjectSummary, err error) {
	defer s.metrics.track("list_subjects", time.Now(), &err)
	l, err := s.ledger(kind)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(l.schema.role) {
		return nil, apperr.Forbidden("%s access required", l.schema.role)
	}

	subjects = []SubjectSummary{}
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		query := l.dashboardQuery(tx.WithContext(ctx), actor.UserID, time.Now())
		if err := query.Scan(&subjects).Error; err != nil {
			return apperr.Storage(err)
		}
		ids := make([]uint, 0, len(subjects))
		for _, sub := range subjects {
			ids = append(ids, sub.UserID)
		}
		moods, err := s.journal.LatestMoods(ctx, tx, ids)
		if err != nil {
			return apperr.Storage(err)
		}
		for i := range subjects {
			subjects[i].RecentMood = moods[subjects[i].UserID]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subjects, nil
}

func (l *Ledger) dashboardQuery(conn *gorm.DB, owner uint, now time.Time) *gorm.DB {
	sc := l.schema
	upcoming := falseLiteral(conn) + " AS upcoming_session"
	var upcomingArgs []interface{}
	if sc.kind == models.TypeCounsellor {
		upcoming = "EXISTS (SELECT 1 FROM counselling_sessions cs WHERE cs.counsellor_id = ? AND cs.client_id = u.id" +
			" AND cs.session_date >= ? AND cs.session_date <= ?) AS upcoming_session"
		upcomingArgs = []interface{}{owner, now, now.Add(upcomingWindow)}
	}

	columns := strings.Join([]string{
		"u.id AS user_id",
		"u.username",
		"u.full_name",
		"u.email",
		"u.last_login_at",
		"COALESCE(l.notes, '') AS notes",
		fmt.Sprintf("COALESCE(l.%s, %s) AS flag", sc.flagCol, falseLiteral(conn)),
		upcoming,
	}, ", ")

	return conn.Table("relationships AS r").
		Select(columns, upcomingArgs...).
		Joins("JOIN users u ON u.id = CASE WHEN r.user_low_id = ? THEN r.user_high_id ELSE r.user_low_id END", owner).
		Joins(fmt.Sprintf("LEFT JOIN %s l ON l.%s = ? AND l.%s = u.id", sc.table, sc.ownerCol, sc.subjectCol), owner).
		Where("r.status = ? AND r.type = ? AND r.elevated_id = ? AND u.deleted_at IS NULL", models.StatusAccepted, sc.kind, owner).
		Order("flag DESC, upcoming_session DESC, COALESCE(u.last_login_at, u.created_at) DESC, u.id")
}

// falseLiteral spells boolean false for the active dialect.
func falseLiteral(conn *gorm.DB) string {
	if conn.Dialector.Name() == "postgres" {
		return "FALSE"
	}
	return "0"
}

// ScheduleSession books a session between the counsellor and one of their clients.
func (s *Service) ScheduleSession(ctx context.Context, actor Principal, client uint, when time.Time, sessionType, notes string) (session *Session, err error) {
	defer s.metrics.track("schedule_session", time.Now(), &err)
	if when.IsZero() {
		return nil, apperr.Validation("session date is required")
	}
	sessionType = strings.TrimSpace(sessionType)
	if sessionType == "" {
		return nil, apperr.Validation("session type is required")
	}

	row := models.CounsellingSession{
		CounsellorID: actor.UserID,
		ClientID:     client,
		SessionDate:  when,
		SessionType:  sessionType,
		Notes:        notes,
	}
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if _, err := s.authorizeSubject(ctx, tx, actor, models.TypeCounsellor, client); err != nil {
			return err
		}
		return apperr.Storage(tx.WithContext(ctx).Create(&row).Error)
	})
	if err != nil {
		return nil, err
	}

	out := sessionOf(row)
	s.audit.Record(ctx, actor.UserID, ActivityScheduledSession,
		fmt.Sprintf("scheduled %s session for %s", sessionType, when.Format(time.RFC3339)), ref(client))
	return &out, nil
}
