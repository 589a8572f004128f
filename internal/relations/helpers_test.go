package relations

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"moodiary/backend/internal/database"
	"moodiary/backend/internal/directory"
	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/models"
)

var errInjected = errors.New("injected failure")

type fixture struct {
	t   *testing.T
	db  *gorm.DB
	svc *Service
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "relations.sqlite")
	db, err := database.Open(database.DriverSQLite, dsn, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	dir := directory.New(db)
	svc := NewService(db, dir, dir, Options{Logger: logger.Nop()})
	return &fixture{t: t, db: db, svc: svc, ctx: context.Background()}
}

// user creates a user holding roles and returns the principal acting as them.
func (f *fixture) user(name string, roles ...models.RoleName) Principal {
	f.t.Helper()
	u := models.User{Username: name, Email: name + "@example.com", FullName: name, PasswordHash: "x"}
	require.NoError(f.t, f.db.Create(&u).Error)
	for _, r := range roles {
		var role models.Role
		require.NoError(f.t, f.db.Where("name = ?", r).First(&role).Error)
		require.NoError(f.t, f.db.Create(&models.UserRole{UserID: u.ID, RoleID: role.ID}).Error)
	}
	return Principal{UserID: u.ID, Roles: roles}
}

// link inserts an edge directly, bypassing the engine and its ledger writes.
func (f *fixture) link(requester, recipient uint, t models.RelationshipType, status models.RelationshipStatus) {
	f.t.Helper()
	r := models.NewRelationship(requester, recipient, t, status)
	require.NoError(f.t, f.db.Create(&r).Error)
}

func (f *fixture) count(model interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (f *fixture) edge(a, b uint) models.Relationship {
	f.t.Helper()
	low, high := models.PairKey(a, b)
	var r models.Relationship
	require.NoError(f.t, f.db.Where(pairWhere, low, high).First(&r).Error)
	return r
}

var snapshotTables = []string{
	"users", "user_roles", "relationships", "mentor_mentee", "counsellor_client",
	"counselling_sessions", "activity_logs", "messages", "journal_entries", "comments", "reactions",
}

// snapshot dumps every row of tables so two states can be compared for equality.
func (f *fixture) snapshot(tables ...string) map[string][]map[string]interface{} {
	f.t.Helper()
	if len(tables) == 0 {
		tables = snapshotTables
	}
	out := make(map[string][]map[string]interface{}, len(tables))
	for _, table := range tables {
		var rows []map[string]interface{}
		order := "id"
		if table == "user_roles" {
			order = "user_id, role_id"
		}
		require.NoError(f.t, f.db.Table(table).Order(order).Find(&rows).Error)
		out[table] = rows
	}
	return out
}

// failOn makes the pass+1-th and later statements of kind op against table fail.
func (f *fixture) failOn(op, table string, pass int) {
	f.t.Helper()
	calls := 0
	inject := func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		calls++
		if calls > pass {
			tx.AddError(errInjected)
		}
	}
	name := fmt.Sprintf("test:fail_%s_%s", op, table)
	var err error
	switch op {
	case "create":
		err = f.db.Callback().Create().Before("gorm:create").Register(name, inject)
	case "update":
		err = f.db.Callback().Update().Before("gorm:update").Register(name, inject)
	case "delete":
		err = f.db.Callback().Delete().Before("gorm:delete").Register(name, inject)
	default:
		f.t.Fatalf("unknown op %q", op)
	}
	require.NoError(f.t, err)
}

func typ(t models.RelationshipType) *models.RelationshipType { return &t }
