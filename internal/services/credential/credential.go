// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package credential persists accounts and checks their passwords.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/models"
	"codeberg.org/oliverandrich/snippetshare/internal/repository"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var (
	ErrDuplicateAccount = apperr.New(apperr.Conflict, "email_in_use", "user with this email already exists")
	ErrAccountNotFound  = apperr.New(apperr.NotFound, "account_not_found", "account not found")
	ErrInvalidEmail     = apperr.New(apperr.Validation, "invalid_email", "invalid email address")
	ErrInvalidPassword  = apperr.New(apperr.Validation, "invalid_password", "password must not be empty or longer than 72 bytes")

	// ErrPasswordMismatch is returned by Authenticate for a wrong password.
	ErrPasswordMismatch = errors.New("password mismatch")
)

// dummyHash is compared against for unknown emails so lookups take as long as real ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

type Store struct {
	repo *repository.Repository
	now  func() time.Time
	cost int
}

type Option func(*Store)

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(s *Store) { s.cost = cost }
}

func NewStore(repo *repository.Repository, opts ...Option) *Store {
	s := &Store{
		repo: repo,
		now:  time.Now,
		cost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail trims and lowercases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateEmail accepts what the validator's email tag accepts.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" || len(password) > MaxPasswordBytes {
		return ErrInvalidPassword
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func (s *Store) HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CreateAccount stores a new unverified account. The unique index on the
// normalized email rejects a second signup for the same address, verified or not.
func (s *Store) CreateAccount(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	account, err := s.repo.CreateAccount(ctx, email, passwordHash, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (s *Store) MarkVerified(ctx context.Context, email string) error {
	err := s.repo.MarkAccountVerified(ctx, NormalizeEmail(email), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}

func (s *Store) Lookup(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.repo.GetAccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// Authenticate returns the account when password matches. It fails with
// ErrAccountNotFound or ErrPasswordMismatch, spending a bcrypt comparison either way.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.Lookup(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrPasswordMismatch
	}
	return account, nil
}

// VerifyPassword reports whether password belongs to the account. Unknown
// emails report false without an error.
func (s *Store) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	_, err := s.Authenticate(ctx, email, password)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrPasswordMismatch):
		return false, nil
	default:
		return false, err
	}
}
