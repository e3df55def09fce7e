// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ctxkeys defines typed context keys used across packages.
package ctxkeys

// Email is the context key for the authenticated account email.
type Email struct{}

// SessionToken is the context key for the session token presented with the request.
type SessionToken struct{}
