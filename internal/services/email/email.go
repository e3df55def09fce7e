// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers one-time passcodes.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/config"
	"codeberg.org/oliverandrich/snippetshare/internal/i18n"
	"github.com/wneessen/go-mail"
)

const sendTimeout = 15 * time.Second

// Sender delivers a passcode to an address.
type Sender interface {
	SendPasscode(ctx context.Context, to, code string, ttl time.Duration) error
}

// New returns an SMTP sender when SMTP is configured and a LogSender otherwise.
func New(cfg *config.SMTPConfig) (Sender, error) {
	if !cfg.Enabled() {
		slog.Warn("SMTP not configured, passcodes are written to the debug log")
		return LogSender{}, nil
	}
	return NewSMTPSender(cfg)
}

// PasscodeText returns the localized subject and body of a passcode email.
func PasscodeText(ctx context.Context, code string, ttl time.Duration) (string, string) {
	subject := i18n.T(ctx, "email_otp_subject")
	body := i18n.TData(ctx, "email_otp_body", map[string]any{"Code": code}) + "\n\n" +
		i18n.TPlural(ctx, "email_otp_expiry", int(ttl.Minutes()))
	return subject, body
}

// SMTPSender sends passcodes through an SMTP server.
type SMTPSender struct {
	cfg *config.SMTPConfig
}

func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) SendPasscode(ctx context.Context, to, code string, ttl time.Duration) error {
	msg, err := s.message(ctx, to, code, ttl)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	slog.Info("otp_sent", "email", to)
	return nil
}

func (s *SMTPSender) message(ctx context.Context, to, code string, ttl time.Duration) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	subject, body := PasscodeText(ctx, code, ttl)
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(sendTimeout),
	}

	// Implicit TLS on 465, STARTTLS elsewhere
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// LogSender writes passcodes to the debug log. For development without SMTP.
type LogSender struct{}

func (LogSender) SendPasscode(ctx context.Context, to, code string, ttl time.Duration) error {
	slog.DebugContext(ctx, "otp_delivery", "email", to, "code", code, "ttl", ttl)
	return nil
}
