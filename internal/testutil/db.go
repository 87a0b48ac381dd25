// Package testutil opens throwaway ledger databases for tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"coopledger/pkg/config"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a migrated SQLite database under dir. A single connection
// serialises writers the way row locks would on postgres.
func Open(dir string) (*gorm.DB, error) {
	dsn := filepath.Join(dir, "ledger.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := config.AutoMigrate(db); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenDB returns a database private to t, closed when t finishes
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := Open(t.TempDir())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// FixedClock is a settable clock for stores under test
type FixedClock struct {
	At time.Time
}

// NewFixedClock starts at a stable UTC instant
func NewFixedClock() *FixedClock {
	return &FixedClock{At: time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *FixedClock) Now() time.Time {
	return c.At
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.At = c.At.Add(d)
}
