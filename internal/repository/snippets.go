// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/snippetshare/internal/models"
)

// CreateSnippet stores a snippet with a caller-assigned ID.
func (r *Repository) CreateSnippet(ctx context.Context, s *models.Snippet) error {
	s.CreatedAt = s.CreatedAt.UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO snippets (id, owner_email, language, code, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.OwnerEmail, s.Language, s.Code, s.CreatedAt)
	return wrapError(err)
}

// GetSnippet retrieves a snippet by ID.
func (r *Repository) GetSnippet(ctx context.Context, id string) (*models.Snippet, error) {
	var s models.Snippet
	err := r.db.GetContext(ctx, &s, `SELECT * FROM snippets WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// ListSnippetsByOwner returns the owner's snippets, newest first.
func (r *Repository) ListSnippetsByOwner(ctx context.Context, ownerEmail string) ([]models.Snippet, error) {
	snippets := []models.Snippet{}
	err := r.db.SelectContext(ctx, &snippets,
		`SELECT * FROM snippets WHERE owner_email = ? ORDER BY created_at DESC, id`, ownerEmail)
	if err != nil {
		return nil, err
	}
	return snippets, nil
}

// DeleteSnippet removes a snippet owned by ownerEmail. Share links cascade.
func (r *Repository) DeleteSnippet(ctx context.Context, id, ownerEmail string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ? AND owner_email = ?`, id, ownerEmail)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
