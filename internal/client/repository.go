package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"client-registry/internal/db"
)

const clientColumns = `id, last_name, first_name, register_no, organization, department, position,
	edited_admin, submitted_admin, letter_no, pnumber, state, registered_at, updated_at`

type Repository struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

func NewRepository(database *sql.DB, dialect db.Dialect) *Repository {
	return &Repository{db: database, dialect: dialect, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (Client, error) {
	var c Client
	var state sql.NullInt64

	err := row.Scan(
		&c.ID, &c.LastName, &c.FirstName, &c.RegisterNo, &c.Organization, &c.Department, &c.Position,
		&c.EditedAdmin, &c.SubmittedAdmin, &c.LetterNo, &c.Pnumber, &state, &c.RegisteredAt, &c.UpdatedAt,
	)
	if err != nil {
		return Client{}, err
	}

	if state.Valid {
		value := int(state.Int64)
		c.State = &value
	}
	c.RegisteredAt = c.RegisteredAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	return c, nil
}

func nullableState(state *int) any {
	if state == nil {
		return nil
	}
	return *state
}

func (r *Repository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		ORDER BY registered_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}

	return clients, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1
	`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Client{}, ErrClientNotFound
		}
		return Client{}, fmt.Errorf("query client: %w", err)
	}

	return c, nil
}

// Create stores a client and registers its organization in the lookup table.
func (r *Repository) Create(ctx context.Context, input Input) (Client, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Client{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := r.now().UTC()
	c := clientFromInput(id.String(), input, now)
	c.RegisteredAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Client{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`), c.ID, c.LastName, c.FirstName, c.RegisterNo, c.Organization, c.Department, c.Position,
		c.EditedAdmin, c.SubmittedAdmin, c.LetterNo, c.Pnumber, nullableState(c.State), c.RegisteredAt, c.UpdatedAt)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Client{}, ErrUnknownState
		}
		return Client{}, fmt.Errorf("insert client: %w", err)
	}

	if err := r.ensureOrganization(ctx, tx, c.Organization); err != nil {
		return Client{}, err
	}

	if err := tx.Commit(); err != nil {
		return Client{}, fmt.Errorf("commit transaction: %w", err)
	}

	return c, nil
}

func (r *Repository) Update(ctx context.Context, id string, input Input) (Client, error) {
	now := r.now().UTC()
	c := clientFromInput(id, input, now)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Client{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.dialect.Rebind(`
		UPDATE clients
		SET last_name = $2, first_name = $3, register_no = $4, organization = $5, department = $6,
			position = $7, edited_admin = $8, submitted_admin = $9, letter_no = $10, pnumber = $11,
			state = $12, updated_at = $13
		WHERE id = $1
	`), c.ID, c.LastName, c.FirstName, c.RegisterNo, c.Organization, c.Department, c.Position,
		c.EditedAdmin, c.SubmittedAdmin, c.LetterNo, c.Pnumber, nullableState(c.State), c.UpdatedAt)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Client{}, ErrUnknownState
		}
		return Client{}, fmt.Errorf("update client: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return Client{}, err
	}

	c, err = scanClient(tx.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1
	`), id))
	if err != nil {
		return Client{}, fmt.Errorf("reload client: %w", err)
	}

	if err := r.ensureOrganization(ctx, tx, c.Organization); err != nil {
		return Client{}, err
	}

	if err := tx.Commit(); err != nil {
		return Client{}, fmt.Errorf("commit transaction: %w", err)
	}

	return c, nil
}

func clientFromInput(id string, input Input, now time.Time) Client {
	return Client{
		ID:             id,
		LastName:       input.LastName,
		FirstName:      input.FirstName,
		RegisterNo:     input.RegisterNo,
		Organization:   input.Organization,
		Department:     input.Department,
		Position:       input.Position,
		EditedAdmin:    input.EditedAdmin,
		SubmittedAdmin: input.SubmittedAdmin,
		LetterNo:       input.LetterNo,
		Pnumber:        input.Pnumber,
		State:          input.State,
		UpdatedAt:      now,
	}
}

func (r *Repository) ensureOrganization(ctx context.Context, tx *sql.Tx, name string) error {
	if name == "" {
		return nil
	}

	_, err := tx.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO organizations (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
	`), name)
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM clients WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}

	return affectedOrNotFound(res)
}

// UpdateState sets the client's state; nil clears it.
func (r *Repository) UpdateState(ctx context.Context, id string, state *int) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		UPDATE clients SET state = $2, updated_at = $3 WHERE id = $1
	`), id, nullableState(state), r.now().UTC())
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrUnknownState
		}
		return fmt.Errorf("update client state: %w", err)
	}

	return affectedOrNotFound(res)
}

func affectedOrNotFound(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (r *Repository) ListStates(ctx context.Context) ([]State, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM states ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	states := make([]State, 0)
	for rows.Next() {
		var s State
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate states: %w", err)
	}

	return states, nil
}

func (r *Repository) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	organizations := make([]Organization, 0)
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		organizations = append(organizations, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}

	return organizations, nil
}
