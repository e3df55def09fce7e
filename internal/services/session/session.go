// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and validates server-side sessions carried in a
// signed cookie.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/config"
	"codeberg.org/oliverandrich/snippetshare/internal/models"
	"codeberg.org/oliverandrich/snippetshare/internal/repository"
	"codeberg.org/oliverandrich/snippetshare/internal/services/credential"
	"github.com/gorilla/securecookie"
)

const (
	tokenBytes     = 32
	maxInsertTries = 3
	keyBytes       = 32
)

var (
	ErrInvalidCredentials = apperr.New(apperr.Authentication, "invalid_credentials", "invalid credentials")
	ErrInvalidSession     = apperr.New(apperr.Authentication, "unauthenticated", "invalid or expired session")

	// ErrNotVerified is wrapped in ErrInvalidCredentials so callers see a
	// single rejection while logs and errors.Is can still tell them apart.
	ErrNotVerified = errors.New("account not verified")
)

// Issued is a freshly created session. Token is the plaintext credential and
// is only ever handed to the client.
type Issued struct {
	Token     string
	Email     string
	ExpiresAt time.Time
}

type Manager struct {
	repo       *repository.Repository
	accounts   *credential.Store
	codec      *securecookie.SecureCookie
	cookieName string
	lifetime   time.Duration
	secure     bool
	now        func() time.Time
	random     io.Reader
}

type Option func(*Manager)

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRandom overrides the entropy source for tokens.
func WithRandom(r io.Reader) Option {
	return func(m *Manager) { m.random = r }
}

// NewManager creates a session manager. Keys are hex-encoded 32-byte values;
// an empty hash key is replaced by a random one, which invalidates every
// cookie on restart.
func NewManager(cfg *config.SessionConfig, repo *repository.Repository, accounts *credential.Store, secure bool, opts ...Option) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey, "hash")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		slog.Warn("session hash key not configured, generating a random one")
		hashKey = securecookie.GenerateRandomKey(keyBytes)
	}

	blockKey, err := decodeKey(cfg.BlockKey, "block")
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	m := &Manager{
		repo:       repo,
		accounts:   accounts,
		codec:      codec,
		cookieName: cfg.CookieName,
		lifetime:   time.Duration(cfg.MaxAge) * time.Second,
		secure:     secure,
		now:        time.Now,
		random:     rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func decodeKey(value, name string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid session %s key: %w", name, err)
	}
	if len(key) != keyBytes {
		return nil, fmt.Errorf("session %s key must be 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

// Lifetime is the fixed duration a session stays valid after issuance.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Login checks the password and opens a session for a verified account.
// Unknown email, wrong password and unverified account all return
// ErrInvalidCredentials; only the log tells them apart.
func (m *Manager) Login(ctx context.Context, email, password string) (*Issued, error) {
	email = credential.NormalizeEmail(email)

	account, err := m.accounts.Authenticate(ctx, email, password)
	switch {
	case errors.Is(err, credential.ErrAccountNotFound):
		slog.Warn("login_failed", "email", email, "reason", "user_not_found")
		return nil, ErrInvalidCredentials
	case errors.Is(err, credential.ErrPasswordMismatch):
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, err
	}

	if !account.Verified {
		slog.Warn("login_failed", "email", email, "reason", "not_verified")
		return nil, apperr.Wrap(ErrInvalidCredentials, ErrNotVerified)
	}

	issued, err := m.create(ctx, account.Email)
	if err != nil {
		return nil, err
	}
	slog.Info("login_success", "email", account.Email)
	return issued, nil
}

// SessionFromOTP opens a session after a successful passcode confirmation.
// It refuses accounts that are not verified.
func (m *Manager) SessionFromOTP(ctx context.Context, email string) (*Issued, error) {
	account, err := m.accounts.Lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if !account.Verified {
		return nil, apperr.Wrap(ErrInvalidCredentials, ErrNotVerified)
	}
	return m.create(ctx, account.Email)
}

// Validate returns the email bound to token. Any miss, storage failure or
// expiry yields ErrInvalidSession.
func (m *Manager) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}

	s, err := m.repo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("session lookup failed", "error", err)
		}
		return "", ErrInvalidSession
	}
	if s.Expired(m.now()) {
		return "", ErrInvalidSession
	}
	return s.Email, nil
}

// Logout removes the session. Unknown or expired tokens are not an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.repo.DeleteSessionByTokenHash(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (m *Manager) create(ctx context.Context, email string) (*Issued, error) {
	now := m.now()

	for range maxInsertTries {
		token, err := newToken(m.random)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session token: %w", err)
		}

		s := &models.Session{
			TokenHash: hashToken(token),
			Email:     email,
			CreatedAt: now,
			ExpiresAt: now.Add(m.lifetime),
		}
		err = m.repo.CreateSession(ctx, s)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}

		slog.Info("session_created", "email", email, "expires_at", s.ExpiresAt)
		return &Issued{Token: token, Email: email, ExpiresAt: s.ExpiresAt}, nil
	}
	return nil, errors.New("failed to store session: token collisions exhausted retries")
}

// Cookie seals the session token into an HttpOnly cookie.
func (m *Manager) Cookie(issued *Issued) (*http.Cookie, error) {
	encoded, err := m.codec.Encode(m.cookieName, issued.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session cookie: %w", err)
	}

	return &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		MaxAge:   int(issued.ExpiresAt.Sub(m.now()).Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// ClearCookie returns a cookie that removes the session cookie.
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromRequest extracts the session token from the request cookie.
// It returns false for a missing, tampered or foreign cookie.
func (m *Manager) TokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var token string
	if err := m.codec.Decode(m.cookieName, cookie.Value, &token); err != nil {
		return "", false
	}
	return token, token != ""
}

func newToken(r io.Reader) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
