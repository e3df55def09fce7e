// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// ShareLink grants anonymous read access to one snippet until ExpiresAt.
type ShareLink struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	Token     string    `db:"token" json:"token"`
	SnippetID string    `db:"snippet_id" json:"snippetId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
}

// SharedSnippet is the joined view served to anonymous readers.
type SharedSnippet struct {
	Language  string    `db:"language" json:"language"`
	Code      string    `db:"code" json:"code"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
}

// Expired reports whether the link it was read through is past its expiry at now.
func (s *SharedSnippet) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
