// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package throttle limits how often an action may be taken per key.
package throttle

import (
	"context"
	"time"
)

// Rule allows Max actions per key within Window. A Rule with Max <= 0 allows everything.
type Rule struct {
	Max    int
	Window time.Duration
}

// Limiter reports whether another action is allowed for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited is a Limiter that never refuses.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
