package relations

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/models"
)

func TestGuardHidesSubjectExistence(t *testing.T) {
	f := newFixture(t)
	mentor, mentee, stranger := f.user("m", models.RoleMentor), f.user("e"), f.user("s")
	f.link(mentor.UserID, mentee.UserID, models.TypeMentor, models.StatusAccepted)

	errStranger := f.svc.SaveNotes(f.ctx, mentor, models.TypeMentor, stranger.UserID, "x")
	errMissing := f.svc.SaveNotes(f.ctx, mentor, models.TypeMentor, 4242, "x")

	require.True(t, apperr.Is(errStranger, apperr.KindForbidden))
	require.True(t, apperr.Is(errMissing, apperr.KindForbidden))
	assert.Equal(t, errStranger.Error(), errMissing.Error())
	assert.Equal(t, int64(0), f.count(&models.MentorMentee{}, "1 = 1"))
}

func TestGuardRejectsWrongTypeAndPendingEdges(t *testing.T) {
	f := newFixture(t)
	c, friend, pending := f.user("c", models.RoleCounsellor), f.user("f"), f.user("p")
	f.link(c.UserID, friend.UserID, models.TypeFriend, models.StatusAccepted)
	f.link(c.UserID, pending.UserID, models.TypeCounsellor, models.StatusPending)

	for _, subject := range []uint{friend.UserID, pending.UserID} {
		err := f.svc.SetFlag(f.ctx, c, models.TypeCounsellor, subject, true)
		assert.True(t, apperr.Is(err, apperr.KindForbidden), "subject %d", subject)
	}
	ok, err := f.svc.guard.HasAcceptedEdge(f.ctx, nil, c.UserID, c.UserID, models.TypeFriend)
	require.NoError(t, err)
	assert.False(t, ok, "a user has no edge with themselves")
}

func TestSubjectOperationsRequireRole(t *testing.T) {
	f := newFixture(t)
	owner, subject := f.user("o"), f.user("s")
	f.link(owner.UserID, subject.UserID, models.TypeMentor, models.StatusAccepted)

	err := f.svc.SaveNotes(f.ctx, owner, models.TypeMentor, subject.UserID, "x")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.ListSubjects(f.ctx, owner, models.TypeMentor)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	owner.Roles = []models.RoleName{models.RoleMentor}
	_, err = f.svc.ListSubjects(f.ctx, owner, models.TypeFriend)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "friend edges have no ledger")
}

func TestUpsertTouchesOnlyTheGivenField(t *testing.T) {
	f := newFixture(t)
	m, e := f.user("m", models.RoleMentor), f.user("e")
	f.link(m.UserID, e.UserID, models.TypeMentor, models.StatusAccepted)

	require.NoError(t, f.svc.SetFlag(f.ctx, m, models.TypeMentor, e.UserID, true))
	require.NoError(t, f.svc.SaveNotes(f.ctx, m, models.TypeMentor, e.UserID, "call on friday"))

	var entry models.MentorMentee
	require.NoError(t, f.db.First(&entry).Error)
	assert.True(t, entry.NeedsAttention, "writing notes keeps the flag")
	assert.Equal(t, "call on friday", entry.Notes)

	require.NoError(t, f.svc.SetFlag(f.ctx, m, models.TypeMentor, e.UserID, false))
	require.NoError(t, f.db.First(&entry).Error)
	assert.False(t, entry.NeedsAttention)
	assert.Equal(t, "call on friday", entry.Notes, "clearing the flag keeps the notes")
	assert.Equal(t, int64(1), f.count(&models.MentorMentee{}, "1 = 1"))

	assert.Equal(t, int64(1), f.count(&models.ActivityLog{}, "activity_type = ?", ActivityFlaggedAttention))
	assert.Equal(t, int64(1), f.count(&models.ActivityLog{}, "activity_type = ?", ActivityMarkedReviewed))
	assert.Equal(t, int64(1), f.count(&models.ActivityLog{}, "activity_type = ?", ActivityUpdatedNotes))
}

func TestSubjectDetailsDefaultsAbsentEntry(t *testing.T) {
	f := newFixture(t)
	c, client := f.user("c", models.RoleCounsellor), f.user("client")
	f.link(c.UserID, client.UserID, models.TypeCounsellor, models.StatusAccepted)

	mood := models.Mood{Name: "calm"}
	require.NoError(t, f.db.Create(&mood).Error)
	for i := 0; i < 12; i++ {
		require.NoError(t, f.db.Create(&models.JournalEntry{UserID: client.UserID, MoodID: mood.ID, Content: "entry"}).Error)
	}

	detail, err := f.svc.SubjectDetails(f.ctx, c, models.TypeCounsellor, client.UserID)
	require.NoError(t, err)
	assert.Equal(t, client.UserID, detail.Subject.ID)
	assert.Equal(t, "", detail.Entry.Notes)
	assert.False(t, detail.Entry.Flag)
	assert.Equal(t, int64(12), detail.EntryCount)
	assert.Len(t, detail.RecentEntries, counsellorRecentEntries)
	assert.Equal(t, "calm", detail.RecentEntries[0].MoodName)
	assert.Empty(t, detail.UpcomingSessions)

	assert.Equal(t, int64(0), f.count(&models.CounsellorClient{}, "1 = 1"), "reading does not create entries")
	assert.Equal(t, int64(1), f.count(&models.ActivityLog{}, "activity_type = ? AND user_id = ?", ActivityViewedClient, c.UserID))
}

func TestScheduleSession(t *testing.T) {
	f := newFixture(t)
	c, client, other := f.user("c", models.RoleCounsellor), f.user("client"), f.user("other")
	f.link(c.UserID, client.UserID, models.TypeCounsellor, models.StatusAccepted)

	when := time.Now().Add(3 * time.Hour)
	_, err := f.svc.ScheduleSession(f.ctx, c, client.UserID, time.Time{}, "video", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.ScheduleSession(f.ctx, c, client.UserID, when, "  ", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.ScheduleSession(f.ctx, c, other.UserID, when, "video", "")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	session, err := f.svc.ScheduleSession(f.ctx, c, client.UserID, when, "video", "first intake")
	require.NoError(t, err)
	assert.NotZero(t, session.ID)
	assert.Equal(t, "video", session.SessionType)

	detail, err := f.svc.SubjectDetails(f.ctx, c, models.TypeCounsellor, client.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.SessionCount)
	require.Len(t, detail.UpcomingSessions, 1)
	assert.Equal(t, "first intake", detail.UpcomingSessions[0].Notes)
}

func TestListSubjectsOrdering(t *testing.T) {
	f := newFixture(t)
	c := f.user("c", models.RoleCounsellor)
	quiet, flagged, soon, foreign := f.user("quiet"), f.user("flagged"), f.user("soon"), f.user("foreign")
	for _, s := range []Principal{quiet, flagged, soon} {
		f.link(c.UserID, s.UserID, models.TypeCounsellor, models.StatusAccepted)
	}
	// foreign counsels c, so c holds no authority over foreign.
	f.link(foreign.UserID, c.UserID, models.TypeCounsellor, models.StatusAccepted)

	recent := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", quiet.UserID).Update("last_login_at", recent).Error)

	require.NoError(t, f.svc.SetFlag(f.ctx, c, models.TypeCounsellor, flagged.UserID, true))
	_, err := f.svc.ScheduleSession(f.ctx, c, soon.UserID, time.Now().Add(2*time.Hour), "call", "")
	require.NoError(t, err)

	mood := models.Mood{Name: "tired"}
	require.NoError(t, f.db.Create(&mood).Error)
	require.NoError(t, f.db.Create(&models.JournalEntry{UserID: soon.UserID, MoodID: mood.ID}).Error)

	subjects, err := f.svc.ListSubjects(f.ctx, c, models.TypeCounsellor)
	require.NoError(t, err)
	require.Len(t, subjects, 3)
	assert.Equal(t, flagged.UserID, subjects[0].UserID)
	assert.True(t, subjects[0].Flag)
	assert.Equal(t, soon.UserID, subjects[1].UserID)
	assert.True(t, subjects[1].UpcomingSession)
	assert.Equal(t, "tired", subjects[1].RecentMood)
	assert.Equal(t, quiet.UserID, subjects[2].UserID)
	assert.False(t, subjects[2].Flag)
}

func TestLedgerUpsertsCreateOneEntryPerPair(t *testing.T) {
	f := newFixture(t)
	m := f.user("m", models.RoleMentor)
	first, second := f.user("first"), f.user("second")
	l, err := NewLedger(f.db, models.TypeMentor)
	require.NoError(t, err)

	require.NoError(t, l.UpsertNotes(f.ctx, nil, m.UserID, first.UserID, "a"))
	require.NoError(t, l.UpsertFlag(f.ctx, nil, m.UserID, second.UserID, true))
	require.NoError(t, l.UpsertFlag(f.ctx, nil, m.UserID, first.UserID, true))

	ids, err := l.SubjectIDs(f.ctx, nil, m.UserID)
	require.NoError(t, err)
	assert.Equal(t, []uint{first.UserID, second.UserID}, ids)

	entry, err := l.Lookup(f.ctx, nil, m.UserID, first.UserID)
	require.NoError(t, err)
	assert.True(t, entry.Flag)
	assert.Equal(t, "a", entry.Notes)

	_, err = l.Get(f.ctx, nil, second.UserID, m.UserID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = NewLedger(f.db, models.TypeFamily)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	m, e := f.user("m", models.RoleMentor), f.user("e")
	f.link(m.UserID, e.UserID, models.TypeMentor, models.StatusAccepted)
	f.failOn("create", "activity_logs", 0)

	require.NoError(t, f.svc.SaveNotes(f.ctx, m, models.TypeMentor, e.UserID, "kept"))

	var entry models.MentorMentee
	require.NoError(t, f.db.First(&entry).Error)
	assert.Equal(t, "kept", entry.Notes)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.svc.metrics.auditFailures))
}

func TestOperationMetricsRecordOutcome(t *testing.T) {
	f := newFixture(t)
	a := f.user("a")

	_, err := f.svc.RequestEdge(f.ctx, a, 777, models.TypeFriend)
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.svc.metrics.operations.WithLabelValues("request_edge", string(apperr.KindNotFound))))
	assert.Equal(t, float64(0), testutil.ToFloat64(f.svc.metrics.operations.WithLabelValues("request_edge", "ok")))
}
