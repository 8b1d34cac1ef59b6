// Package sqlitetest opens migrated in-memory SQLite databases for tests.
package sqlitetest

import (
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/authservice/internal/server/migrations"
)

// DSN is a private in-memory database with foreign keys enforced.
const DSN = "file::memory:?_pragma=foreign_keys(1)"

// Open returns a fresh in-memory database with every SQLite migration
// applied. The pool is pinned to one connection so all statements see the
// same database.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", DSN)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, migrations.SQLiteDir))

	return db
}
