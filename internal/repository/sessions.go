// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/models"
)

// CreateSession stores a session. Returns ErrDuplicate on a token hash collision.
func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, email, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.TokenHash, s.Email, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return wrapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// GetSessionByTokenHash retrieves a session by the hash of its token.
func (r *Repository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var s models.Session
	err := r.db.GetContext(ctx, &s, `SELECT * FROM sessions WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// DeleteSessionByTokenHash removes a session. Deleting a missing session is not an error.
func (r *Repository) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
