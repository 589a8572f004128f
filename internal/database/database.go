package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var DB *gorm.DB

// Models lists every table in migration order.
var Models = []interface{}{
	&models.Role{},
	&models.User{},
	&models.UserRole{},
	&models.Relationship{},
	&models.MentorMentee{},
	&models.CounsellorClient{},
	&models.CounsellingSession{},
	&models.ActivityLog{},
	&models.Message{},
	&models.Mood{},
	&models.JournalEntry{},
	&models.Comment{},
	&models.Reaction{},
}

// Open initializes the database connection without migrating.
func Open(driver, dsn string, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverPostgres, "":
		if dsn == "" {
			return nil, errors.New("DATABASE_URL is required for postgres")
		}
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	// Configure GORM logger
	gormLog := gormlogger.Discard
	if log != nil {
		gormLog = gormlogger.New(
			log.With("component", "gorm"),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond, // Slow SQL threshold
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
	}

	if strings.ToLower(driver) == DriverSQLite {
		// SQLite only enforces one writer; a single connection keeps transactions from tripping SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates every table and seeds the fixed role set.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return SeedRoles(db)
}

// SeedRoles inserts the fixed role names, leaving existing rows alone.
func SeedRoles(db *gorm.DB) error {
	roles := make([]models.Role, 0, len(models.AllRoles))
	for _, name := range models.AllRoles {
		roles = append(roles, models.Role{Name: name})
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&roles).Error
}

// Connect initializes the package-level connection and runs migrations.
func Connect(driver, dsn string, log *logger.Logger) error {
	db, err := Open(driver, dsn, log)
	if err != nil {
		return err
	}
	if log != nil {
		log.Info("Database connection established.", "driver", driver)
	}

	if err := Migrate(db); err != nil {
		return err
	}
	if log != nil {
		log.Info("Database migrated successfully.")
	}

	DB = db
	return nil
}
