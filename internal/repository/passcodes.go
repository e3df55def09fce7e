// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/models"
	"github.com/vinovest/sqlx"
)

// IssuePasscode supersedes every open passcode for the email and stores p
// as the only authoritative one, in a single transaction.
func (r *Repository) IssuePasscode(ctx context.Context, p *models.OneTimePasscode) error {
	p.IssuedAt = p.IssuedAt.UTC()
	p.ExpiresAt = p.ExpiresAt.UTC()

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE one_time_passcodes SET superseded = 1 WHERE email = ? AND consumed = 0 AND superseded = 0`,
			p.Email); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO one_time_passcodes (email, code_hash, issued_at, expires_at) VALUES (?, ?, ?, ?)`,
			p.Email, p.CodeHash, p.IssuedAt, p.ExpiresAt)
		if err != nil {
			return wrapError(err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	})
}

// LatestPasscode returns the most recently issued passcode for the email.
func (r *Repository) LatestPasscode(ctx context.Context, email string) (*models.OneTimePasscode, error) {
	var p models.OneTimePasscode
	err := r.db.GetContext(ctx, &p,
		`SELECT * FROM one_time_passcodes WHERE email = ? ORDER BY id DESC LIMIT 1`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &p, nil
}

// ConsumePasscode flips consumed from 0 to 1 and marks the owning account
// verified in the same transaction. It reports false when another caller
// consumed the passcode first or it was superseded in the meantime.
func (r *Repository) ConsumePasscode(ctx context.Context, id int64, email string, at time.Time) (bool, error) {
	at = at.UTC()
	consumed := false

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE one_time_passcodes SET consumed = 1, consumed_at = ?
			 WHERE id = ? AND consumed = 0 AND superseded = 0`,
			at, id)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err != nil || n == 0 {
			return err
		}

		result, err = tx.ExecContext(ctx,
			`UPDATE accounts SET verified = 1, verified_at = COALESCE(verified_at, ?) WHERE email = ?`,
			at, email)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}

		consumed = true
		return nil
	})

	return consumed, err
}

// DeleteStalePasscodes removes consumed, superseded and expired passcodes.
func (r *Repository) DeleteStalePasscodes(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_passcodes WHERE consumed = 1 OR superseded = 1 OR expires_at <= ?`,
		now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
