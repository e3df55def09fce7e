// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth runs the signup, passcode verification and login flows.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/models"
	"codeberg.org/oliverandrich/snippetshare/internal/services/credential"
	"codeberg.org/oliverandrich/snippetshare/internal/services/email"
	"codeberg.org/oliverandrich/snippetshare/internal/services/otp"
	"codeberg.org/oliverandrich/snippetshare/internal/services/session"
	"codeberg.org/oliverandrich/snippetshare/internal/throttle"
)

var ErrRateLimited = apperr.New(apperr.RateOrTTL, "rate_limited", "too many requests, please try again later")

type Service struct {
	accounts     *credential.Store
	issuer       *otp.Issuer
	sessions     *session.Manager
	mailer       email.Sender
	issueLimit   throttle.Limiter
	confirmLimit throttle.Limiter
}

type Option func(*Service)

// WithIssueLimiter limits how many passcodes are sent per email.
func WithIssueLimiter(l throttle.Limiter) Option {
	return func(s *Service) { s.issueLimit = l }
}

// WithConfirmLimiter limits passcode guesses per email.
func WithConfirmLimiter(l throttle.Limiter) Option {
	return func(s *Service) { s.confirmLimit = l }
}

func NewService(accounts *credential.Store, issuer *otp.Issuer, sessions *session.Manager, mailer email.Sender, opts ...Option) *Service {
	s := &Service{
		accounts:     accounts,
		issuer:       issuer,
		sessions:     sessions,
		mailer:       mailer,
		issueLimit:   throttle.Unlimited{},
		confirmLimit: throttle.Unlimited{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates an unverified account and sends its first passcode.
// If delivery fails the account stays and the user can request a new code.
func (s *Service) Signup(ctx context.Context, emailAddr, password string) (*models.Account, error) {
	emailAddr = credential.NormalizeEmail(emailAddr)
	if err := credential.ValidateEmail(emailAddr); err != nil {
		return nil, err
	}

	hash, err := s.accounts.HashPassword(password)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.CreateAccount(ctx, emailAddr, hash)
	if err != nil {
		return nil, err
	}
	slog.Info("signup_success", "email", emailAddr)

	if err := s.sendPasscode(ctx, emailAddr); err != nil {
		return nil, err
	}
	return account, nil
}

// RequestOTP sends a fresh passcode, superseding the previous one. It reports
// true without sending anything when the account is already verified.
func (s *Service) RequestOTP(ctx context.Context, emailAddr string) (bool, error) {
	account, err := s.accounts.Lookup(ctx, emailAddr)
	if err != nil {
		return false, err
	}
	if account.Verified {
		return true, nil
	}
	return false, s.sendPasscode(ctx, account.Email)
}

// VerifyOTP confirms the passcode, which verifies the account, and opens a session.
func (s *Service) VerifyOTP(ctx context.Context, emailAddr, code string) (*session.Issued, error) {
	emailAddr = credential.NormalizeEmail(emailAddr)

	if !s.allow(ctx, s.confirmLimit, "confirm", emailAddr) {
		return nil, ErrRateLimited
	}
	if err := s.issuer.Confirm(ctx, emailAddr, code); err != nil {
		return nil, err
	}
	return s.sessions.SessionFromOTP(ctx, emailAddr)
}

func (s *Service) Login(ctx context.Context, emailAddr, password string) (*session.Issued, error) {
	return s.sessions.Login(ctx, emailAddr, password)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Logout(ctx, token)
}

func (s *Service) sendPasscode(ctx context.Context, emailAddr string) error {
	if !s.allow(ctx, s.issueLimit, "issue", emailAddr) {
		return ErrRateLimited
	}

	code, _, err := s.issuer.Issue(ctx, emailAddr)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasscode(ctx, emailAddr, code, s.issuer.TTL()); err != nil {
		return fmt.Errorf("failed to send passcode email: %w", err)
	}
	return nil
}

// allow consults the limiter and lets the request through if it fails.
func (s *Service) allow(ctx context.Context, l throttle.Limiter, action, emailAddr string) bool {
	ok, err := l.Allow(ctx, emailAddr)
	if err != nil {
		slog.Warn("rate limiter unavailable", "action", action, "error", err)
		return true
	}
	if !ok {
		slog.Warn("rate_limited", "action", action, "email", emailAddr)
	}
	return ok
}
