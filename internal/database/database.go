package database

import (
	"fmt"
	"time"

	"github.com/chirpsocial/backend/internal/config"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/telemetry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the process-wide connection
var DB *gorm.DB

// GormConfig is shared by the postgres connection and the sqlite test
// databases. TranslateError turns unique violations into gorm.ErrDuplicatedKey,
// which the relation sets rely on.
func GormConfig(verbose bool) *gorm.Config {
	lvl := gormlogger.Warn
	if verbose {
		lvl = gormlogger.Info
	}
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(lvl),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// replies and notifications may outlive the tweet they point at
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// Initialize creates and configures the database connection
func Initialize(cfg config.DatabaseConfig, verbose bool) error {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(verbose))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Use(telemetry.GormPlugin("postgresql")); err != nil {
		return fmt.Errorf("failed to install tracing plugin: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	DB = db
	logger.Log.Info("✅ Database connected successfully")
	return nil
}

// Migrate runs auto-migration for all models
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if db.Dialector.Name() == "postgres" {
		createIndexes(db)
	}
	logger.Log.Info("✅ Database migrations completed")
	return nil
}

// createIndexes adds postgres-only indexes that struct tags cannot express
func createIndexes(db *gorm.DB) {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
		"CREATE INDEX IF NOT EXISTS idx_tweets_top_level ON tweets (author_id, created_at DESC) WHERE parent_tweet_id IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications (recipient_id) WHERE read = false",
		"CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (conversation_id, recipient_id) WHERE read = false",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			logger.WarnWithFields("Could not create index", err)
		}
	}
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
