// Package dashboard aggregates client and login activity for the admin UI.
package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"client-registry/internal/db"
)

const recentLimit = 5

type Statistics struct {
	TotalClients    int            `json:"totalClients"`
	StateStatistics []StateCount   `json:"stateStatistics"`
	TodaysUpdates   []ClientUpdate `json:"todaysUpdates"`
	TodaysLogins    []LoginEntry   `json:"todaysLogins"`
}

type StateCount struct {
	StateID   int    `json:"state_id"`
	StateName string `json:"state_name"`
	Count     int    `json:"count"`
}

type ClientUpdate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Pnumber   string    `json:"pnumber"`
	StateID   *int      `json:"state_id"`
	StateName *string   `json:"state_name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type LoginEntry struct {
	Username string    `json:"username"`
	Status   string    `json:"status"`
	Time     time.Time `json:"time"`
	IP       string    `json:"ip"`
}

type Repository struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

func NewRepository(database *sql.DB, dialect db.Dialect) *Repository {
	return &Repository{db: database, dialect: dialect, now: time.Now}
}

// Statistics runs the four aggregates concurrently. "Today" is the current
// UTC calendar day.
func (r *Repository) Statistics(ctx context.Context) (Statistics, error) {
	dayStart := r.now().UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	var stats Statistics
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&stats.TotalClients)
	})
	g.Go(func() error {
		counts, err := r.stateCounts(ctx)
		stats.StateStatistics = counts
		return err
	})
	g.Go(func() error {
		updates, err := r.updatesBetween(ctx, dayStart, dayEnd)
		stats.TodaysUpdates = updates
		return err
	})
	g.Go(func() error {
		logins, err := r.loginsBetween(ctx, dayStart, dayEnd)
		stats.TodaysLogins = logins
		return err
	})

	if err := g.Wait(); err != nil {
		return Statistics{}, fmt.Errorf("collect dashboard statistics: %w", err)
	}

	return stats, nil
}

func (r *Repository) stateCounts(ctx context.Context) ([]StateCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, COUNT(c.id)
		FROM states s
		LEFT JOIN clients c ON c.state = s.id
		GROUP BY s.id, s.name
		ORDER BY s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query state counts: %w", err)
	}
	defer rows.Close()

	out := make([]StateCount, 0)
	for rows.Next() {
		var sc StateCount
		if err := rows.Scan(&sc.StateID, &sc.StateName, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan state count: %w", err)
		}
		out = append(out, sc)
	}

	return out, rows.Err()
}

func (r *Repository) updatesBetween(ctx context.Context, from, to time.Time) ([]ClientUpdate, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`
		SELECT c.id, c.last_name, c.first_name, c.pnumber, c.state, s.name, c.updated_at
		FROM clients c
		LEFT JOIN states s ON s.id = c.state
		WHERE c.updated_at >= $1 AND c.updated_at < $2
		ORDER BY c.updated_at DESC
		LIMIT $3
	`), from, to, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("query todays updates: %w", err)
	}
	defer rows.Close()

	out := make([]ClientUpdate, 0)
	for rows.Next() {
		var u ClientUpdate
		var lastName, firstName string
		var stateID sql.NullInt64
		var stateName sql.NullString

		if err := rows.Scan(&u.ID, &lastName, &firstName, &u.Pnumber, &stateID, &stateName, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client update: %w", err)
		}

		u.Name = lastName + " " + firstName
		u.UpdatedAt = u.UpdatedAt.UTC()
		if stateID.Valid {
			id := int(stateID.Int64)
			u.StateID = &id
		}
		if stateName.Valid {
			u.StateName = &stateName.String
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

func (r *Repository) loginsBetween(ctx context.Context, from, to time.Time) ([]LoginEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`
		SELECT username, outcome, attempted_at, source_address
		FROM login_attempts
		WHERE attempted_at >= $1 AND attempted_at < $2
		ORDER BY attempted_at DESC, id DESC
		LIMIT $3
	`), from, to, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("query todays logins: %w", err)
	}
	defer rows.Close()

	out := make([]LoginEntry, 0)
	for rows.Next() {
		var e LoginEntry
		if err := rows.Scan(&e.Username, &e.Status, &e.Time, &e.IP); err != nil {
			return nil, fmt.Errorf("scan login entry: %w", err)
		}
		e.Time = e.Time.UTC()
		out = append(out, e)
	}

	return out, rows.Err()
}
