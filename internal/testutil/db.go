// Package testutil builds throwaway databases for package tests. It is only
// imported from _test.go files.
package testutil

import (
	"database/sql"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/iliyamo/apparel-storefront/internal/database"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]`)

// NewDB returns an in-memory sqlite database migrated with the production
// schema. The pool is pinned to one connection so the shared in-memory
// database lives as long as the test.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", unsafeName.ReplaceAllString(t.Name(), "_"))
	db, err := sql.Open(sqlite.DriverName, dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(sqlite.New(sqlite.Config{Conn: db})))
	return db
}
