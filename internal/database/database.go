package database

import (
	"fmt"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Options configures the database connection
type Options struct {
	// Debug logs every SQL statement
	Debug bool
}

// InitDatabase initializes the database connection and migrates the schema
func InitDatabase(dsn string, opts Options) error {
	db, err := Open(dsn, opts)
	if err != nil {
		return err
	}
	DB = db
	log.Info().Str("dsn", dsn).Msg("Database initialized")
	return nil
}

// Open opens a sqlite database and migrates the schema without touching the
// global instance
func Open(dsn string, opts Options) (*gorm.DB, error) {
	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate migrates the schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.AccountRecord{},
		&models.ConversationRecord{},
		&models.MessageRecord{},
		&models.SignalRecord{},
		&models.TradeRecord{},
		&models.RelatedOrderRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
