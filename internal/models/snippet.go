// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Snippet is a piece of code saved by its owner.
type Snippet struct { //nolint:govet // fieldalignment: readability over optimization
	ID         string    `db:"id" json:"id"`
	OwnerEmail string    `db:"owner_email" json:"email"`
	Language   string    `db:"language" json:"language"`
	Code       string    `db:"code" json:"code"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
