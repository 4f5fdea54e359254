// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"client-registry/internal/db"
)

func Open(t testing.TB) *sql.DB {
	t.Helper()

	database, err := db.Open(context.Background(), db.SQLite, ":memory:", db.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(database, db.SQLite))

	return database
}
