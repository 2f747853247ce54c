package dbtest

import (
	"testing"

	"github.com/chirpsocial/backend/internal/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a migrated in-memory sqlite database. A single
// connection keeps every query on the same in-memory instance.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig(false)
	cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)

	db, err := gorm.Open(sqlite.Open("file::memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}
