// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp issues and confirms one-time passcodes bound to an email address.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/models"
	"codeberg.org/oliverandrich/snippetshare/internal/repository"
	"codeberg.org/oliverandrich/snippetshare/internal/services/credential"
)

const (
	// CodeLength is the number of decimal digits in a passcode.
	CodeLength = 6

	DefaultTTL = 10 * time.Minute
)

var codeSpace = big.NewInt(1_000_000)

var (
	ErrInvalidCode     = apperr.New(apperr.Authentication, "invalid_code", "invalid or expired OTP")
	ErrExpired         = apperr.New(apperr.Authentication, "otp_expired", "OTP has expired")
	ErrAlreadyConsumed = apperr.New(apperr.Conflict, "otp_consumed", "OTP has already been used")
)

type Issuer struct {
	repo   *repository.Repository
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
}

type Option func(*Issuer)

// WithTTL sets how long an issued code stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithRandom overrides the entropy source.
func WithRandom(r io.Reader) Option {
	return func(i *Issuer) { i.random = r }
}

func NewIssuer(repo *repository.Repository, opts ...Option) *Issuer {
	i := &Issuer{
		repo:   repo,
		ttl:    DefaultTTL,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a new code for email and supersedes every earlier open code.
// The plaintext code is returned once for delivery; only its hash is stored.
func (i *Issuer) Issue(ctx context.Context, email string) (string, time.Time, error) {
	email = credential.NormalizeEmail(email)

	code, err := generateCode(i.random)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate passcode: %w", err)
	}

	now := i.now()
	p := &models.OneTimePasscode{
		Email:     email,
		CodeHash:  hashCode(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	if err := i.repo.IssuePasscode(ctx, p); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store passcode: %w", err)
	}

	slog.Info("otp_issued", "email", email, "expires_at", p.ExpiresAt)
	return code, p.ExpiresAt, nil
}

// Confirm accepts code exactly once if it is the newest code issued for
// email and has not expired. Success also marks the account verified.
func (i *Issuer) Confirm(ctx context.Context, email, code string) error {
	email = credential.NormalizeEmail(email)

	if !validFormat(code) {
		return i.reject(email, "malformed", ErrInvalidCode)
	}

	p, err := i.repo.LatestPasscode(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return i.reject(email, "no_code", ErrInvalidCode)
		}
		return fmt.Errorf("failed to load passcode: %w", err)
	}

	now := i.now()
	if p.Expired(now) {
		return i.reject(email, "expired", ErrExpired)
	}
	if subtle.ConstantTimeCompare([]byte(p.CodeHash), []byte(hashCode(code))) != 1 {
		return i.reject(email, "mismatch", ErrInvalidCode)
	}
	if p.Consumed {
		return i.reject(email, "consumed", ErrAlreadyConsumed)
	}

	won, err := i.repo.ConsumePasscode(ctx, p.ID, email, now)
	if err != nil {
		return fmt.Errorf("failed to consume passcode: %w", err)
	}
	if !won {
		return i.reject(email, "lost_race", ErrAlreadyConsumed)
	}

	slog.Info("otp_confirmed", "email", email)
	return nil
}

func (i *Issuer) reject(email, reason string, err error) error {
	slog.Warn("otp_confirm_failed", "email", email, "reason", reason)
	return err
}

// generateCode draws a uniformly distributed code in 000000..999999.
func generateCode(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func validFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
