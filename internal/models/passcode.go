// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// OneTimePasscode stores the SHA256 hash of an emailed six digit code.
type OneTimePasscode struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64      `db:"id" json:"id"`
	Email      string     `db:"email" json:"email"`
	CodeHash   string     `db:"code_hash" json:"-"`
	IssuedAt   time.Time  `db:"issued_at" json:"issued_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	Consumed   bool       `db:"consumed" json:"consumed"`
	Superseded bool       `db:"superseded" json:"superseded"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}

// Expired reports whether the passcode is past its expiry at now.
func (p *OneTimePasscode) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
