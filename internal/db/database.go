package db

import (
	"fmt"
	stlog "log"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pageinbox/internal/models"
)

// Open connects to the database at the given DSN and returns the handle.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	var gormLogLevel gormlogger.LogLevel
	switch log.Logger.GetLevel().String() {
	case "debug", "trace":
		gormLogLevel = gormlogger.Info
	case "warn":
		gormLogLevel = gormlogger.Warn
	default:
		gormLogLevel = gormlogger.Error
	}

	newLogger := gormlogger.New(
		stlog.New(log.Logger, "", stlog.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// TranslateError surfaces unique-index violations as gorm.ErrDuplicatedKey,
	// which the store maps to the duplicate-event signal.
	handle, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info().Msg("Database connection established")
	return handle, nil
}

// Migrate runs AutoMigrate for every persisted entity.
func Migrate(handle *gorm.DB) error {
	if handle == nil {
		return fmt.Errorf("database not initialized")
	}

	err := handle.AutoMigrate(
		&models.Integration{},
		&models.Account{},
		&models.Conversation{},
		&models.ConversationMessage{},
		&models.Customer{},
		&models.ActivityLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	log.Info().Msg("Database migration completed")
	return nil
}
