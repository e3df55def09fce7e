// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/models"
)

// CreateShareLink stores a share link. Returns ErrDuplicate on a token collision.
func (r *Repository) CreateShareLink(ctx context.Context, l *models.ShareLink) error {
	l.CreatedAt = l.CreatedAt.UTC()
	l.ExpiresAt = l.ExpiresAt.UTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO share_links (token, snippet_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		l.Token, l.SnippetID, l.CreatedAt, l.ExpiresAt)
	if err != nil {
		return wrapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

// GetSharedSnippet returns the snippet behind a share token together with
// the link expiry. Expiry is not checked here.
func (r *Repository) GetSharedSnippet(ctx context.Context, token string) (*models.SharedSnippet, error) {
	var shared models.SharedSnippet
	err := r.db.GetContext(ctx, &shared,
		`SELECT s.language, s.code, l.expires_at
		 FROM share_links l
		 JOIN snippets s ON s.id = l.snippet_id
		 WHERE l.token = ?`, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &shared, nil
}

// DeleteExpiredShareLinks removes links past their expiry.
func (r *Repository) DeleteExpiredShareLinks(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM share_links WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
