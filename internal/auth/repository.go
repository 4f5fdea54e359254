package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"client-registry/internal/db"
)

// UserStore is the credential store the auth service depends on.
type UserStore interface {
	CreateUser(ctx context.Context, user User) error
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error
}

// AttemptLedger is the append-only login history.
type AttemptLedger interface {
	RecordAttempt(ctx context.Context, attempt LoginAttempt) error
	// FailedAttemptsSince returns failure times strictly after since, oldest first.
	FailedAttemptsSince(ctx context.Context, username string, since time.Time) ([]time.Time, error)
}

type Repository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewRepository(database *sql.DB, dialect db.Dialect) *Repository {
	return &Repository{db: database, dialect: dialect}
}

func (r *Repository) CreateUser(ctx context.Context, user User) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`), user.ID, user.Username, user.PasswordHash, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT id, username, password_hash, created_at, updated_at, last_login
		FROM users
		WHERE username = $1
	`), username)

	user, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("query user by username: %w", err)
	}
	return user, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT id, username, password_hash, created_at, updated_at, last_login
		FROM users
		WHERE id = $1
	`), id)

	user, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (User, error) {
	var user User
	var lastLogin sql.NullTime

	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	if lastLogin.Valid {
		value := lastLogin.Time.UTC()
		user.LastLogin = &value
	}

	return user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		UPDATE users SET last_login = $2 WHERE id = $1
	`), id, at.UTC())
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	return requireAffected(res)
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`), id, hash, at.UTC())
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) RecordAttempt(ctx context.Context, attempt LoginAttempt) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO login_attempts (username, outcome, attempted_at, source_address, client_agent)
		VALUES ($1, $2, $3, $4, $5)
	`), attempt.Username, string(attempt.Outcome), attempt.AttemptedAt.UTC(), attempt.SourceAddress, attempt.ClientAgent)
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}

	return nil
}

func (r *Repository) FailedAttemptsSince(ctx context.Context, username string, since time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`
		SELECT attempted_at
		FROM login_attempts
		WHERE username = $1 AND outcome = $2 AND attempted_at > $3
		ORDER BY attempted_at ASC
	`), username, string(OutcomeFailed), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query failed attempts: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("scan failed attempt: %w", err)
		}
		out = append(out, at.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed attempts: %w", err)
	}

	return out, nil
}
