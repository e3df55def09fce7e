// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/models"
)

// CreateAccount inserts an unverified account. Returns ErrDuplicate if the email is taken.
func (r *Repository) CreateAccount(ctx context.Context, email, passwordHash string, createdAt time.Time) (*models.Account, error) {
	createdAt = createdAt.UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (email, password_hash, verified, created_at) VALUES (?, ?, 0, ?)`,
		email, passwordHash, createdAt)
	if err != nil {
		return nil, wrapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Account{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// GetAccountByEmail retrieves an account by its normalized email.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// MarkAccountVerified sets the verified flag. The first verification time is kept.
func (r *Repository) MarkAccountVerified(ctx context.Context, email string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET verified = 1, verified_at = COALESCE(verified_at, ?) WHERE email = ?`,
		at.UTC(), email)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
