// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package share turns owned snippets into anonymous, time-limited links.
package share

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/models"
	"codeberg.org/oliverandrich/snippetshare/internal/repository"
	"codeberg.org/oliverandrich/snippetshare/internal/services/credential"
)

const (
	// DefaultMaxTTLMinutes bounds link lifetime to one year.
	DefaultMaxTTLMinutes = 365 * 24 * 60

	tokenBytes     = 32
	maxInsertTries = 3
)

// TokenLength is the length of an encoded share token.
var TokenLength = base64.RawURLEncoding.EncodedLen(tokenBytes)

var (
	ErrNotOwner   = apperr.New(apperr.Authorization, "not_owner", "snippet is not owned by the caller")
	ErrInvalidTTL = apperr.New(apperr.RateOrTTL, "invalid_ttl", "expiration is out of range")
	ErrNotFound   = apperr.New(apperr.NotFound, "not_found", "shared code not found or expired")
)

// Link is a created share link.
type Link struct {
	Token     string    `json:"token"`
	SnippetID string    `json:"snippetId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Registry struct {
	repo          *repository.Repository
	maxTTLMinutes int
	now           func() time.Time
	random        io.Reader
}

type Option func(*Registry)

// WithMaxTTL sets the longest allowed lifetime in minutes.
func WithMaxTTL(minutes int) Option {
	return func(r *Registry) {
		if minutes > 0 {
			r.maxTTLMinutes = minutes
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithRandom overrides the entropy source for tokens.
func WithRandom(rd io.Reader) Option {
	return func(r *Registry) { r.random = rd }
}

func NewRegistry(repo *repository.Repository, opts ...Option) *Registry {
	r := &Registry{
		repo:          repo,
		maxTTLMinutes: DefaultMaxTTLMinutes,
		now:           time.Now,
		random:        rand.Reader,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) MaxTTLMinutes() int {
	return r.maxTTLMinutes
}

// Create issues a new link to snippetID valid for ttlMinutes. Earlier links
// for the same snippet are left untouched.
func (r *Registry) Create(ctx context.Context, ownerEmail, snippetID string, ttlMinutes int) (*Link, error) {
	if ttlMinutes < 1 || ttlMinutes > r.maxTTLMinutes {
		return nil, ErrInvalidTTL
	}

	owner := credential.NormalizeEmail(ownerEmail)
	snippet, err := r.repo.GetSnippet(ctx, snippetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotOwner
		}
		return nil, fmt.Errorf("failed to load snippet: %w", err)
	}
	if snippet.OwnerEmail != owner {
		slog.Warn("share_denied", "email", owner, "snippet_id", snippetID)
		return nil, ErrNotOwner
	}

	now := r.now()
	for range maxInsertTries {
		token, err := newToken(r.random)
		if err != nil {
			return nil, fmt.Errorf("failed to generate share token: %w", err)
		}

		l := &models.ShareLink{
			Token:     token,
			SnippetID: snippet.ID,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Duration(ttlMinutes) * time.Minute),
		}
		err = r.repo.CreateShareLink(ctx, l)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store share link: %w", err)
		}

		slog.Info("share_created", "email", owner, "snippet_id", snippet.ID, "expires_at", l.ExpiresAt)
		return &Link{Token: l.Token, SnippetID: l.SnippetID, CreatedAt: l.CreatedAt, ExpiresAt: l.ExpiresAt}, nil
	}
	return nil, errors.New("failed to store share link: token collisions exhausted retries")
}

// Resolve returns the shared snippet behind token. Malformed, unknown and
// expired tokens all fail with the same ErrNotFound.
func (r *Registry) Resolve(ctx context.Context, token string) (*models.SharedSnippet, error) {
	if !validToken(token) {
		return nil, ErrNotFound
	}

	shared, err := r.repo.GetSharedSnippet(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load share link: %w", err)
	}
	if shared.Expired(r.now()) {
		return nil, ErrNotFound
	}
	return shared, nil
}

func newToken(r io.Reader) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validToken(token string) bool {
	if len(token) != TokenLength {
		return false
	}
	for _, c := range token {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
