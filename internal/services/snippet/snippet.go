// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package snippet stores the code snippets a user saves from the editor.
package snippet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/models"
	"codeberg.org/oliverandrich/snippetshare/internal/repository"
	"codeberg.org/oliverandrich/snippetshare/internal/services/credential"
	"github.com/google/uuid"
)

var (
	ErrNotFound = apperr.New(apperr.NotFound, "snippet_not_found", "code not found")
	ErrInvalid  = apperr.New(apperr.Validation, "validation_failed", "language and code are required")
)

type Service struct {
	repo *repository.Repository
	now  func() time.Time
}

func NewService(repo *repository.Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// Save stores a new snippet owned by owner.
func (s *Service) Save(ctx context.Context, owner, language, code string) (*models.Snippet, error) {
	language = strings.TrimSpace(language)
	if language == "" || strings.TrimSpace(code) == "" {
		return nil, ErrInvalid
	}

	snippet := &models.Snippet{
		ID:         uuid.NewString(),
		OwnerEmail: credential.NormalizeEmail(owner),
		Language:   language,
		Code:       code,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateSnippet(ctx, snippet); err != nil {
		return nil, fmt.Errorf("failed to save snippet: %w", err)
	}
	return snippet, nil
}

// List returns the owner's snippets, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]models.Snippet, error) {
	snippets, err := s.repo.ListSnippetsByOwner(ctx, credential.NormalizeEmail(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", err)
	}
	return snippets, nil
}

// Delete removes a snippet and, through the foreign key, its share links.
// Snippets of other owners are reported as missing.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	err := s.repo.DeleteSnippet(ctx, id, credential.NormalizeEmail(owner))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete snippet: %w", err)
	}
	return nil
}
