package relations

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/models"
)

// ledgerSchema describes one specialization table.
type ledgerSchema struct {
	kind       models.RelationshipType
	role       models.RoleName
	table      string
	ownerCol   string
	subjectCol string
	flagCol    string
	subject    string
	model      func() interface{}
}

var (
	mentorSchema = ledgerSchema{
		kind:       models.TypeMentor,
		role:       models.RoleMentor,
		table:      "mentor_mentee",
		ownerCol:   "mentor_id",
		subjectCol: "mentee_id",
		flagCol:    "needs_attention",
		subject:    "mentee",
		model:      func() interface{} { return &models.MentorMentee{} },
	}
	counsellorSchema = ledgerSchema{
		kind:       models.TypeCounsellor,
		role:       models.RoleCounsellor,
		table:      "counsellor_client",
		ownerCol:   "counsellor_id",
		subjectCol: "client_id",
		flagCol:    "priority",
		subject:    "client",
		model:      func() interface{} { return &models.CounsellorClient{} },
	}
)

// Ledger reads and writes one specialization table.
type Ledger struct {
	db     *gorm.DB
	schema ledgerSchema
}

// NewLedger returns the ledger backing edges of type kind.
func NewLedger(db *gorm.DB, kind models.RelationshipType) (*Ledger, error) {
	switch kind {
	case models.TypeMentor:
		return &Ledger{db: db, schema: mentorSchema}, nil
	case models.TypeCounsellor:
		return &Ledger{db: db, schema: counsellorSchema}, nil
	}
	return nil, apperr.Validation("relationship type %q has no ledger", kind)
}

func (l *Ledger) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	transaction := tx
	if transaction == nil {
		transaction = l.db
	}
	return transaction.WithContext(ctx).Table(l.schema.table)
}

func (l *Ledger) pair() string {
	return fmt.Sprintf("%s = ? AND %s = ?", l.schema.ownerCol, l.schema.subjectCol)
}

func (l *Ledger) conflictColumns() []clause.Column {
	return []clause.Column{{Name: l.schema.ownerCol}, {Name: l.schema.subjectCol}}
}

func (l *Ledger) row(owner, subject uint, notes string, flag bool, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		l.schema.ownerCol:   owner,
		l.schema.subjectCol: subject,
		"notes":             notes,
		l.schema.flagCol:    flag,
		"created_at":        now,
		"updated_at":        now,
	}
}

// UpsertNotes writes notes, creating the entry with a cleared flag when absent.
func (l *Ledger) UpsertNotes(ctx context.Context, tx *gorm.DB, owner, subject uint, notes string) error {
	now := time.Now()
	err := l.conn(ctx, tx).Clauses(clause.OnConflict{
		Columns:   l.conflictColumns(),
		DoUpdates: clause.Assignments(map[string]interface{}{"notes": notes, "updated_at": now}),
	}).Create(l.row(owner, subject, notes, false, now)).Error
	return apperr.Storage(err)
}

// UpsertFlag writes the flag, creating the entry with empty notes when absent.
func (l *Ledger) UpsertFlag(ctx context.Context, tx *gorm.DB, owner, subject uint, flag bool) error {
	now := time.Now()
	err := l.conn(ctx, tx).Clauses(clause.OnConflict{
		Columns:   l.conflictColumns(),
		DoUpdates: clause.Assignments(map[string]interface{}{l.schema.flagCol: flag, "updated_at": now}),
	}).Create(l.row(owner, subject, "", flag, now)).Error
	return apperr.Storage(err)
}

// Ensure creates an empty entry unless one exists. It reports whether a row was inserted.
func (l *Ledger) Ensure(ctx context.Context, tx *gorm.DB, owner, subject uint) (bool, error) {
	res := l.conn(ctx, tx).Clauses(clause.OnConflict{
		Columns:   l.conflictColumns(),
		DoNothing: true,
	}).Create(l.row(owner, subject, "", false, time.Now()))
	if res.Error != nil {
		return false, apperr.Storage(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (l *Ledger) selectEntry() string {
	t := l.schema.table
	return fmt.Sprintf("%[1]s.%[2]s AS owner_id, %[1]s.%[3]s AS subject_id, %[1]s.notes, %[1]s.%[4]s AS flag, %[1]s.created_at, %[1]s.updated_at",
		t, l.schema.ownerCol, l.schema.subjectCol, l.schema.flagCol)
}

// Get returns the entry for the pair, or NotFound.
func (l *Ledger) Get(ctx context.Context, tx *gorm.DB, owner, subject uint) (*LedgerEntry, error) {
	var entries []LedgerEntry
	err := l.conn(ctx, tx).Select(l.selectEntry()).Where(l.pair(), owner, subject).Limit(1).Scan(&entries).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if len(entries) == 0 {
		return nil, apperr.NotFound("%s entry not found", l.schema.subject)
	}
	return &entries[0], nil
}

// Lookup is Get with absence mapped to a default entry.
func (l *Ledger) Lookup(ctx context.Context, tx *gorm.DB, owner, subject uint) (LedgerEntry, error) {
	entry, err := l.Get(ctx, tx, owner, subject)
	if apperr.Is(err, apperr.KindNotFound) {
		return LedgerEntry{OwnerID: owner, SubjectID: subject}, nil
	}
	if err != nil {
		return LedgerEntry{}, err
	}
	return *entry, nil
}

// SubjectIDs lists the subjects owner has an entry for.
func (l *Ledger) SubjectIDs(ctx context.Context, tx *gorm.DB, owner uint) ([]uint, error) {
	var ids []uint
	err := l.conn(ctx, tx).Where(l.schema.ownerCol+" = ?", owner).Order(l.schema.subjectCol).Pluck(l.schema.subjectCol, &ids).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return ids, nil
}

func (l *Ledger) Delete(ctx context.Context, tx *gorm.DB, owner, subject uint) error {
	transaction := tx
	if transaction == nil {
		transaction = l.db
	}
	err := transaction.WithContext(ctx).Where(l.pair(), owner, subject).Delete(l.schema.model()).Error
	return apperr.Storage(err)
}
