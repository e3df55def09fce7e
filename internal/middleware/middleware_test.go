// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/auth"
	"codeberg.org/oliverandrich/snippetshare/internal/i18n"
	"codeberg.org/oliverandrich/snippetshare/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	tokens map[string]string
}

func (s stubSessions) TokenFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie("token")
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (s stubSessions) Validate(_ context.Context, token string) (string, error) {
	if email, ok := s.tokens[token]; ok {
		return email, nil
	}
	return "", errors.New("invalid session")
}

func run(t *testing.T, req *http.Request, mws ...echo.MiddlewareFunc) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	var seen echo.Context
	h := echo.HandlerFunc(func(c echo.Context) error {
		seen = c
		return nil
	})
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	err := h(c)
	return seen, err
}

func TestLoadSession(t *testing.T) {
	sessions := stubSessions{tokens: map[string]string{"good": "a@x.com"}}

	tests := []struct {
		name   string
		cookie string
		email  string
	}{
		{"valid session", "good", "a@x.com"},
		{"unknown token", "bad", ""},
		{"no cookie", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			c, err := run(t, req, middleware.LoadSession(sessions))
			require.NoError(t, err)
			require.NotNil(t, c)
			assert.Equal(t, tt.email, auth.Email(c.Request().Context()))
			if tt.email != "" {
				assert.Equal(t, tt.cookie, auth.SessionToken(c.Request().Context()))
			}
		})
	}
}

func TestRequireSession(t *testing.T) {
	sessions := stubSessions{tokens: map[string]string{"good": "a@x.com"}}

	t.Run("authenticated passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "good"})
		c, err := run(t, req, middleware.LoadSession(sessions), middleware.RequireSession)
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "expired"})
		c, err := run(t, req, middleware.LoadSession(sessions), middleware.RequireSession)
		require.ErrorIs(t, err, middleware.ErrUnauthenticated)
		assert.Nil(t, c)
		assert.Equal(t, apperr.Authentication, apperr.KindOf(err))
		assert.Equal(t, "unauthenticated", apperr.CodeOf(err))
	})
}

func TestLocale(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"de-DE,de;q=0.9", "de"},
		{"en-US", "en"},
		{"fr", "en"},
		{"", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Language", tt.header)
			c, err := run(t, req, middleware.Locale())
			require.NoError(t, err)
			assert.Equal(t, tt.want, i18n.GetLocale(c.Request().Context()))
		})
	}
}
