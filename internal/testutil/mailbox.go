// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"context"
	"errors"
	"sync"
	"time"
)

// SentPasscode is a passcode captured by Mailbox.
type SentPasscode struct {
	To   string
	Code string
	TTL  time.Duration
}

// Mailbox records passcodes instead of delivering them.
type Mailbox struct {
	mu   sync.Mutex
	sent []SentPasscode
	// Fail makes every send return an error when set.
	Fail bool
}

func (m *Mailbox) SendPasscode(_ context.Context, to, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, SentPasscode{To: to, Code: code, TTL: ttl})
	return nil
}

// Last returns the most recent passcode sent to the address, or "".
func (m *Mailbox) Last(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == to {
			return m.sent[i].Code
		}
	}
	return ""
}

// Count returns how many passcodes were sent to the address.
func (m *Mailbox) Count(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.To == to {
			n++
		}
	}
	return n
}
