// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware provides echo middleware for sessions and locale.
package middleware

import (
	"context"
	"net/http"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/auth"
	"github.com/labstack/echo/v4"
)

var ErrUnauthenticated = apperr.New(apperr.Authentication, "unauthenticated", "authentication required")

// SessionValidator resolves the session presented with a request.
type SessionValidator interface {
	TokenFromRequest(r *http.Request) (string, bool)
	Validate(ctx context.Context, token string) (string, error)
}

// LoadSession puts the identity of a valid session into the request context.
// Requests without a valid session pass through unauthenticated.
func LoadSession(sessions SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if token, ok := sessions.TokenFromRequest(req); ok {
				if email, err := sessions.Validate(req.Context(), token); err == nil {
					c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), email, token)))
				}
			}
			return next(c)
		}
	}
}

// RequireSession rejects requests that LoadSession did not authenticate.
// Missing, tampered and expired sessions get the same response.
func RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !auth.IsAuthenticated(c.Request().Context()) {
			return ErrUnauthenticated
		}
		return next(c)
	}
}
