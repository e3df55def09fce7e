// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/oliverandrich/snippetshare/internal/ctxkeys"
)

// WithIdentity stores the authenticated email and its session token in the context.
func WithIdentity(ctx context.Context, email, token string) context.Context {
	ctx = context.WithValue(ctx, ctxkeys.Email{}, email)
	return context.WithValue(ctx, ctxkeys.SessionToken{}, token)
}

// Email returns the authenticated email from the context, or "" if not authenticated.
func Email(ctx context.Context) string {
	if email, ok := ctx.Value(ctxkeys.Email{}).(string); ok {
		return email
	}
	return ""
}

// SessionToken returns the validated session token from the context.
func SessionToken(ctx context.Context) string {
	if token, ok := ctx.Value(ctxkeys.SessionToken{}).(string); ok {
		return token
	}
	return ""
}

// IsAuthenticated returns true if the context has an authenticated email.
func IsAuthenticated(ctx context.Context) bool {
	return Email(ctx) != ""
}
