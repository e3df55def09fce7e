// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package throttle

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Memory is an in-process fixed window limiter with the same semantics as
// Redis. Its state is lost on restart and not shared between instances.
type Memory struct {
	rule      Rule
	now       func() time.Time
	mu        sync.Mutex
	windows   map[string]*window
	lastPrune time.Time
}

// NewMemory creates an in-process limiter. now may be nil to use time.Now.
func NewMemory(rule Rule, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		rule:    rule,
		now:     now,
		windows: make(map[string]*window),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	if m.rule.Max <= 0 || m.rule.Window <= 0 {
		return true, nil
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune(now)

	w, ok := m.windows[key]
	if !ok || m.closed(w, now) {
		m.windows[key] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= m.rule.Max {
		return false, nil
	}
	w.count++
	return true, nil
}

func (m *Memory) closed(w *window, now time.Time) bool {
	return !now.Before(w.start.Add(m.rule.Window))
}

// prune drops windows that have closed.
func (m *Memory) prune(now time.Time) {
	if now.Sub(m.lastPrune) < m.rule.Window {
		return
	}
	m.lastPrune = now
	for key, w := range m.windows {
		if m.closed(w, now) {
			delete(m.windows, key)
		}
	}
}
