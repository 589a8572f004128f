package relations

import (
	"context"
	"time"

	"gorm.io/gorm"

	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/models"
)

// Activity types written to the activity log.
const (
	ActivityRequestSent      = "friend_request_sent"
	ActivityRequestAccepted  = "friend_request_accepted"
	ActivityViewedMentee     = "viewed_mentee"
	ActivityViewedClient     = "viewed_client"
	ActivityUpdatedNotes     = "updated_notes"
	ActivityMarkedReviewed   = "marked_reviewed"
	ActivityFlaggedAttention = "flagged_attention"
	ActivityUpdatedPriority  = "updated_priority"
	ActivityScheduledSession = "scheduled_session"
	ActivityUpdatedRoles     = "updated_roles"
	ActivityReassigned       = "reassigned_subjects"
)

const auditTimeout = 2 * time.Second

// Auditor appends activity log rows after the primary transaction has committed.
// Failures are logged and counted, never returned.
type Auditor struct {
	db      *gorm.DB
	log     *logger.Logger
	metrics *Metrics
}

func NewAuditor(db *gorm.DB, log *logger.Logger, metrics *Metrics) *Auditor {
	return &Auditor{db: db, log: log, metrics: metrics}
}

func (a *Auditor) Record(ctx context.Context, actor uint, activity, description string, related *uint) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	entry := models.ActivityLog{
		UserID:        actor,
		ActivityType:  activity,
		Description:   description,
		RelatedUserID: related,
	}
	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		a.metrics.auditFailures.Inc()
		a.log.Warn("activity log write failed", "activity", activity, "user_id", actor, "error", err)
	}
}

func ref(id uint) *uint {
	return &id
}
