// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"time"

	"github.com/wneessen/go-mail"
)

func (s *SMTPSender) Message(ctx context.Context, to, code string, ttl time.Duration) (*mail.Msg, error) {
	return s.message(ctx, to, code, ttl)
}
