// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/config"
	"codeberg.org/oliverandrich/snippetshare/internal/repository"
	"codeberg.org/oliverandrich/snippetshare/internal/services/credential"
	"codeberg.org/oliverandrich/snippetshare/internal/services/session"
	"codeberg.org/oliverandrich/snippetshare/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// validHashKey is a valid 32-byte hex-encoded key for testing
const validHashKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// validBlockKey is a valid 32-byte hex-encoded key for encryption testing
const validBlockKey = "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"

func newTestConfig() *config.SessionConfig {
	return &config.SessionConfig{
		CookieName: "_test_session",
		MaxAge:     3600, // 1 hour
		HashKey:    validHashKey,
	}
}

type fixture struct {
	mgr   *session.Manager
	repo  *repository.Repository
	clock *testutil.Clock
}

func newFixture(t *testing.T, cfg *config.SessionConfig, secure bool) *fixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	clock := testutil.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	accounts := credential.NewStore(repo, credential.WithCost(bcrypt.MinCost), credential.WithNow(clock.Now))

	mgr, err := session.NewManager(cfg, repo, accounts, secure, session.WithNow(clock.Now))
	require.NoError(t, err)
	return &fixture{mgr: mgr, repo: repo, clock: clock}
}

func TestNewManager(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)
	assert.NotNil(t, f.mgr)
	assert.Equal(t, time.Hour, f.mgr.Lifetime())
}

func TestNewManager_WithBlockKey(t *testing.T) {
	cfg := newTestConfig()
	cfg.BlockKey = validBlockKey

	f := newFixture(t, cfg, true)
	assert.NotNil(t, f.mgr)
}

func TestNewManager_InvalidKeys(t *testing.T) {
	tests := []struct {
		name     string
		hashKey  string
		blockKey string
		wantErr  string
	}{
		{"hash key not hex", "not-hex-encoded", "", "invalid session hash key"},
		{"hash key wrong length", "0123456789abcdef", "", "must be 32 bytes"},
		{"block key not hex", validHashKey, "not-hex-encoded", "invalid session block key"},
		{"block key wrong length", validHashKey, "0123456789abcdef", "must be 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			cfg.HashKey = tt.hashKey
			cfg.BlockKey = tt.blockKey

			_, err := session.NewManager(cfg, nil, nil, false)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewManager_DevMode_GeneratesKey(t *testing.T) {
	cfg := &config.SessionConfig{
		CookieName: "_session",
		MaxAge:     3600,
		HashKey:    "", // empty - should auto-generate
	}

	mgr, err := session.NewManager(cfg, nil, nil, false)

	require.NoError(t, err)
	assert.NotNil(t, mgr)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)
	testutil.NewTestAccount(t, f.repo, "a@x.com", true)

	issued, err := f.mgr.Login(context.Background(), "A@x.com", testutil.TestPassword)

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", issued.Email)
	assert.Len(t, issued.Token, 43)
	assert.Equal(t, f.clock.Now().Add(time.Hour), issued.ExpiresAt)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)
	testutil.NewTestAccount(t, f.repo, "verified@x.com", true)
	testutil.NewTestAccount(t, f.repo, "pending@x.com", false)
	ctx := context.Background()

	tests := []struct {
		name        string
		email       string
		password    string
		notVerified bool
	}{
		{"unknown email", "ghost@x.com", testutil.TestPassword, false},
		{"wrong password", "verified@x.com", "wrong", false},
		{"unverified account", "pending@x.com", testutil.TestPassword, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mgr.Login(ctx, tt.email, tt.password)

			require.ErrorIs(t, err, session.ErrInvalidCredentials)
			assert.Equal(t, apperr.Authentication, apperr.KindOf(err))
			assert.Equal(t, "invalid_credentials", apperr.CodeOf(err))
			assert.Equal(t, tt.notVerified, errors.Is(err, session.ErrNotVerified))
		})
	}
}

func TestSessionFromOTP(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)
	testutil.NewTestAccount(t, f.repo, "a@x.com", true)
	testutil.NewTestAccount(t, f.repo, "pending@x.com", false)
	ctx := context.Background()

	issued, err := f.mgr.SessionFromOTP(ctx, "a@x.com")
	require.NoError(t, err)

	email, err := f.mgr.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)

	_, err = f.mgr.SessionFromOTP(ctx, "pending@x.com")
	assert.ErrorIs(t, err, session.ErrNotVerified)

	_, err = f.mgr.SessionFromOTP(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, credential.ErrAccountNotFound)
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		valid   bool
	}{
		{"fresh", 0, true},
		{"one second before expiry", time.Hour - time.Second, true},
		{"at expiry", time.Hour, false},
		{"one second after expiry", time.Hour + time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, newTestConfig(), false)
			testutil.NewTestAccount(t, f.repo, "a@x.com", true)
			ctx := context.Background()

			issued, err := f.mgr.Login(ctx, "a@x.com", testutil.TestPassword)
			require.NoError(t, err)

			f.clock.Advance(tt.elapsed)
			email, err := f.mgr.Validate(ctx, issued.Token)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", email)
			} else {
				assert.ErrorIs(t, err, session.ErrInvalidSession)
			}
		})
	}
}

func TestValidate_UnknownToken(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)
	ctx := context.Background()

	for _, token := range []string{"", "unknown", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		_, err := f.mgr.Validate(ctx, token)
		require.ErrorIs(t, err, session.ErrInvalidSession)
		assert.Equal(t, "unauthenticated", apperr.CodeOf(err))
	}
}

func TestValidate_StorageFailureFailsClosed(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)
	require.NoError(t, f.repo.DB().Close())

	_, err := f.mgr.Validate(context.Background(), "some-token")
	assert.ErrorIs(t, err, session.ErrInvalidSession)
}

func TestLogout(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)
	testutil.NewTestAccount(t, f.repo, "a@x.com", true)
	ctx := context.Background()

	issued, err := f.mgr.Login(ctx, "a@x.com", testutil.TestPassword)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Logout(ctx, issued.Token))

	_, err = f.mgr.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, session.ErrInvalidSession)

	// Idempotent
	assert.NoError(t, f.mgr.Logout(ctx, issued.Token))
	assert.NoError(t, f.mgr.Logout(ctx, ""))
	assert.NoError(t, f.mgr.Logout(ctx, "never-issued"))
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)
	testutil.NewTestAccount(t, f.repo, "a@x.com", true)
	ctx := context.Background()

	first, err := f.mgr.Login(ctx, "a@x.com", testutil.TestPassword)
	require.NoError(t, err)
	second, err := f.mgr.Login(ctx, "a@x.com", testutil.TestPassword)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	require.NoError(t, f.mgr.Logout(ctx, first.Token))

	email, err := f.mgr.Validate(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
}

func TestCookie(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)
	issued := &session.Issued{Token: "tok", Email: "a@x.com", ExpiresAt: f.clock.Now().Add(time.Hour)}

	cookie, err := f.mgr.Cookie(issued)

	require.NoError(t, err)
	assert.Equal(t, "_test_session", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.NotContains(t, cookie.Value, "tok")
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.Equal(t, issued.ExpiresAt, cookie.Expires)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestCookie_SecureMode(t *testing.T) {
	f := newFixture(t, newTestConfig(), true)

	cookie, err := f.mgr.Cookie(&session.Issued{Token: "tok", ExpiresAt: f.clock.Now().Add(time.Hour)})

	require.NoError(t, err)
	assert.True(t, cookie.Secure)
}

func TestTokenFromRequest(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)

	cookie, err := f.mgr.Cookie(&session.Issued{Token: "tok", ExpiresAt: f.clock.Now().Add(time.Hour)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	token, ok := f.mgr.TokenFromRequest(req)

	assert.True(t, ok)
	assert.Equal(t, "tok", token)
}

func TestTokenFromRequest_WithBlockKey(t *testing.T) {
	cfg := newTestConfig()
	cfg.BlockKey = validBlockKey
	f := newFixture(t, cfg, false)

	cookie, err := f.mgr.Cookie(&session.Issued{Token: "tok", ExpiresAt: f.clock.Now().Add(time.Hour)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	token, ok := f.mgr.TokenFromRequest(req)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)
}

func TestTokenFromRequest_Rejected(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)

	valid, err := f.mgr.Cookie(&session.Issued{Token: "tok", ExpiresAt: f.clock.Now().Add(time.Hour)})
	require.NoError(t, err)

	// Cookie sealed with a different key
	otherCfg := newTestConfig()
	otherCfg.HashKey = validBlockKey
	other := newFixture(t, otherCfg, false)
	foreign, err := other.mgr.Cookie(&session.Issued{Token: "tok", ExpiresAt: f.clock.Now().Add(time.Hour)})
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"empty value", &http.Cookie{Name: "_test_session", Value: ""}},
		{"invalid value", &http.Cookie{Name: "_test_session", Value: "invalid-cookie-value"}},
		{"tampered", &http.Cookie{Name: "_test_session", Value: valid.Value[:len(valid.Value)-5] + "XXXXX"}},
		{"different key", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			token, ok := f.mgr.TokenFromRequest(req)
			assert.False(t, ok)
			assert.Empty(t, token)
		})
	}
}

func TestClearCookie(t *testing.T) {
	f := newFixture(t, newTestConfig(), false)

	cookie := f.mgr.ClearCookie()

	assert.Equal(t, "_test_session", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestClearCookie_SecureMode(t *testing.T) {
	f := newFixture(t, newTestConfig(), true)

	assert.True(t, f.mgr.ClearCookie().Secure)
}
