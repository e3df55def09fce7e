// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Account is a registered user identified by a normalized email address.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Verified     bool       `db:"verified" json:"verified"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	VerifiedAt   *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}
