package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{in: "postgres", want: Postgres},
		{in: "PGX", want: Postgres},
		{in: "sqlite", want: SQLite},
		{in: " sqlite3 ", want: SQLite},
		{in: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	query := `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`

	assert.Equal(t, query, Postgres.Rebind(query))
	assert.Equal(t, `UPDATE users SET password_hash = ?2, updated_at = ?3 WHERE id = ?1`, SQLite.Rebind(query))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_time_format=sqlite", sqliteDSN(":memory:"))
	assert.Equal(t, "data.db?_pragma=x&_time_format=sqlite", sqliteDSN("data.db?_pragma=x"))
	assert.Equal(t, "data.db?_time_format=sqlite", sqliteDSN("data.db?_time_format=sqlite"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)")))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.False(t, IsForeignKeyViolation(nil))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsForeignKeyViolation(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")))
}

func TestRunMigrations_SQLite(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, SQLite, ":memory:", PoolOptions{})
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(database, SQLite))
	// second run is a no-op
	require.NoError(t, RunMigrations(database, SQLite))

	for _, table := range []string{"users", "login_attempts", "clients", "states", "organizations", "pnumber_requests"} {
		var name string
		err := database.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	var states int
	require.NoError(t, database.QueryRowContext(ctx, `SELECT COUNT(*) FROM states`).Scan(&states))
	assert.Equal(t, 4, states)
}
