package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"client-registry/internal/db"
)

// CreateRequest records that a p-number was asked for on behalf of a client.
func (r *Repository) CreateRequest(ctx context.Context, clientID, pnumber string) (PnumberRequest, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return PnumberRequest{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	req := PnumberRequest{
		ID:       id.String(),
		ClientID: clientID,
		Pnumber:  pnumber,
		SentAt:   r.now().UTC(),
	}

	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO pnumber_requests (id, client_id, pnumber, sent_at)
		VALUES ($1, $2, $3, $4)
	`), req.ID, req.ClientID, req.Pnumber, req.SentAt)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return PnumberRequest{}, ErrClientNotFound
		}
		return PnumberRequest{}, fmt.Errorf("insert pnumber request: %w", err)
	}

	return req, nil
}

// AcceptRequest marks the client's oldest pending request accepted and
// copies the p-number onto the client.
func (r *Repository) AcceptRequest(ctx context.Context, clientID, pnumber string) error {
	now := r.now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.dialect.Rebind(`
		UPDATE clients SET pnumber = $2, updated_at = $3 WHERE id = $1
	`), clientID, pnumber, now)
	if err != nil {
		return fmt.Errorf("update client pnumber: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return err
	}

	var requestID string
	err = tx.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT id FROM pnumber_requests
		WHERE client_id = $1 AND accepted_at IS NULL
		ORDER BY sent_at ASC, id ASC
		LIMIT 1
	`), clientID).Scan(&requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoPendingRequest
		}
		return fmt.Errorf("select pending request: %w", err)
	}

	if _, err := tx.ExecContext(ctx, r.dialect.Rebind(`
		UPDATE pnumber_requests SET pnumber = $2, accepted_at = $3 WHERE id = $1
	`), requestID, pnumber, now); err != nil {
		return fmt.Errorf("accept pnumber request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (r *Repository) PendingRequests(ctx context.Context) ([]RequestWithClient, error) {
	return r.requestsWithClients(ctx, `r.accepted_at IS NULL`, `r.sent_at ASC`)
}

func (r *Repository) AcceptedRequests(ctx context.Context) ([]RequestWithClient, error) {
	return r.requestsWithClients(ctx, `r.accepted_at IS NOT NULL`, `r.accepted_at DESC`)
}

func (r *Repository) requestsWithClients(ctx context.Context, where, orderBy string) ([]RequestWithClient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.client_id, r.pnumber, r.sent_at, r.accepted_at,
			c.id, c.last_name, c.first_name, c.register_no, c.organization, c.department, c.position,
			c.edited_admin, c.submitted_admin, c.letter_no, c.pnumber, c.state, c.registered_at, c.updated_at
		FROM pnumber_requests r
		INNER JOIN clients c ON c.id = r.client_id
		WHERE `+where+`
		ORDER BY `+orderBy+`, r.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pnumber requests: %w", err)
	}
	defer rows.Close()

	out := make([]RequestWithClient, 0)
	for rows.Next() {
		var item RequestWithClient
		var acceptedAt sql.NullTime
		var state sql.NullInt64
		c := &item.Client

		err := rows.Scan(
			&item.ID, &item.ClientID, &item.Pnumber, &item.SentAt, &acceptedAt,
			&c.ID, &c.LastName, &c.FirstName, &c.RegisterNo, &c.Organization, &c.Department, &c.Position,
			&c.EditedAdmin, &c.SubmittedAdmin, &c.LetterNo, &c.Pnumber, &state, &c.RegisteredAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pnumber request: %w", err)
		}

		item.SentAt = item.SentAt.UTC()
		if acceptedAt.Valid {
			value := acceptedAt.Time.UTC()
			item.AcceptedAt = &value
		}
		if state.Valid {
			value := int(state.Int64)
			c.State = &value
		}
		c.RegisteredAt = c.RegisteredAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()

		out = append(out, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pnumber requests: %w", err)
	}

	return out, nil
}
