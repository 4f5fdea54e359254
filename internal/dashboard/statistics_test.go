package dashboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"client-registry/internal/db"
	"client-registry/internal/db/dbtest"
)

var testNow = time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)

func insertClient(t *testing.T, database *sql.DB, id string, state any, updatedAt time.Time) {
	t.Helper()
	_, err := database.Exec(`
		INSERT INTO clients (id, last_name, first_name, register_no, pnumber, state, registered_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, "Last"+id, "First"+id, "REG"+id, "P"+id, state, updatedAt, updatedAt)
	require.NoError(t, err)
}

func insertAttempt(t *testing.T, database *sql.DB, username, outcome string, at time.Time) {
	t.Helper()
	_, err := database.Exec(`
		INSERT INTO login_attempts (username, outcome, attempted_at, source_address)
		VALUES (?, ?, ?, ?)
	`, username, outcome, at, "10.0.0.1")
	require.NoError(t, err)
}

func newSeededRepository(t *testing.T) *Repository {
	t.Helper()
	database := dbtest.Open(t)

	insertClient(t, database, "c1", 1, testNow.Add(-time.Hour))
	insertClient(t, database, "c2", 1, testNow.Add(-2*time.Hour))
	insertClient(t, database, "c3", 3, testNow.Add(-30*time.Hour))
	insertClient(t, database, "c4", nil, testNow.Add(-3*time.Hour))
	for i := 0; i < 4; i++ {
		insertClient(t, database, fmt.Sprintf("d%d", i), 2, testNow.Add(-time.Duration(4+i)*time.Hour))
	}

	insertAttempt(t, database, "alice", "success", testNow.Add(-time.Minute))
	insertAttempt(t, database, "alice", "failed", testNow.Add(-2*time.Minute))
	insertAttempt(t, database, "bob", "failed", testNow.Add(-48*time.Hour))

	repo := NewRepository(database, db.SQLite)
	repo.now = func() time.Time { return testNow }
	return repo
}

func TestRepository_Statistics(t *testing.T) {
	stats, err := newSeededRepository(t).Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, stats.TotalClients)

	require.Len(t, stats.StateStatistics, 4)
	assert.Equal(t, StateCount{StateID: 1, StateName: "Registered", Count: 2}, stats.StateStatistics[0])
	assert.Equal(t, 4, stats.StateStatistics[1].Count)
	assert.Equal(t, 1, stats.StateStatistics[2].Count)
	assert.Equal(t, 0, stats.StateStatistics[3].Count)

	require.Len(t, stats.TodaysUpdates, recentLimit)
	assert.Equal(t, "c1", stats.TodaysUpdates[0].ID)
	assert.Equal(t, "Lastc1 Firstc1", stats.TodaysUpdates[0].Name)
	require.NotNil(t, stats.TodaysUpdates[0].StateName)
	assert.Equal(t, "Registered", *stats.TodaysUpdates[0].StateName)
	assert.Equal(t, "c4", stats.TodaysUpdates[2].ID)
	assert.Nil(t, stats.TodaysUpdates[2].StateID)
	for _, u := range stats.TodaysUpdates {
		assert.NotEqual(t, "c3", u.ID, "yesterday's update is excluded")
	}

	require.Len(t, stats.TodaysLogins, 2)
	assert.Equal(t, "success", stats.TodaysLogins[0].Status)
	assert.Equal(t, "failed", stats.TodaysLogins[1].Status)
	assert.Equal(t, "10.0.0.1", stats.TodaysLogins[0].IP)
}

func TestRepository_StatisticsEmpty(t *testing.T) {
	repo := NewRepository(dbtest.Open(t), db.SQLite)

	stats, err := repo.Statistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalClients)
	assert.Len(t, stats.StateStatistics, 4)
	assert.NotNil(t, stats.TodaysUpdates)
	assert.NotNil(t, stats.TodaysLogins)
}

func TestHandler_Statistics(t *testing.T) {
	h := NewHandler(newSeededRepository(t))

	w := httptest.NewRecorder()
	h.Statistics(w, httptest.NewRequest(http.MethodGet, "/dashboard/statistics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 8, body["totalClients"])
	assert.Contains(t, body, "stateStatistics")
	assert.Contains(t, body, "todaysUpdates")
	assert.Contains(t, body, "todaysLogins")
}

func TestHandler_StatisticsDatabaseDown(t *testing.T) {
	database := dbtest.Open(t)
	require.NoError(t, database.Close())

	h := NewHandler(NewRepository(database, db.SQLite))
	w := httptest.NewRecorder()
	h.Statistics(w, httptest.NewRequest(http.MethodGet, "/dashboard/statistics", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "sql:")
}
