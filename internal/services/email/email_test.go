// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/config"
	"codeberg.org/oliverandrich/snippetshare/internal/i18n"
	"codeberg.org/oliverandrich/snippetshare/internal/services/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Test App",
		TLS:      true,
	}
}

func TestNewSMTPSender(t *testing.T) {
	svc, err := email.NewSMTPSender(validSMTPConfig())

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewSMTPSender_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := email.NewSMTPSender(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewSMTPSender_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := email.NewSMTPSender(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestNew_SelectsSender(t *testing.T) {
	sender, err := email.New(&config.SMTPConfig{})
	require.NoError(t, err)
	assert.IsType(t, email.LogSender{}, sender)

	sender, err = email.New(validSMTPConfig())
	require.NoError(t, err)
	assert.IsType(t, &email.SMTPSender{}, sender)
}

func TestPasscodeText(t *testing.T) {
	require.NoError(t, i18n.Init())

	en := i18n.WithLocale(context.Background(), language.English)
	subject, body := email.PasscodeText(en, "042917", 10*time.Minute)
	assert.Equal(t, "Your verification code", subject)
	assert.Contains(t, body, "042917")
	assert.Contains(t, body, "10 minutes")

	de := i18n.WithLocale(context.Background(), language.German)
	subject, body = email.PasscodeText(de, "042917", time.Minute)
	assert.Equal(t, "Dein Bestätigungscode", subject)
	assert.Contains(t, body, "042917")
	assert.Contains(t, body, "1 Minute")
}

func TestMessage(t *testing.T) {
	require.NoError(t, i18n.Init())
	svc, err := email.NewSMTPSender(validSMTPConfig())
	require.NoError(t, err)

	ctx := i18n.WithLocale(context.Background(), language.English)
	msg, err := svc.Message(ctx, "a@x.com", "042917", 10*time.Minute)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "a@x.com")
	assert.Contains(t, raw, "noreply@example.com")
	assert.Contains(t, raw, "Your verification code")
	assert.Contains(t, raw, "042917")
}

func TestMessage_InvalidRecipient(t *testing.T) {
	svc, err := email.NewSMTPSender(validSMTPConfig())
	require.NoError(t, err)

	_, err = svc.Message(context.Background(), "not an address", "042917", time.Minute)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting to address")
}

func TestSendPasscode_Unreachable(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.TLS = false
	svc, err := email.NewSMTPSender(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = svc.SendPasscode(ctx, "a@x.com", "042917", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending email")
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, email.LogSender{}.SendPasscode(context.Background(), "a@x.com", "042917", time.Minute))
}
