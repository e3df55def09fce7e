// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"
)

// PurgeStats reports how many rows a purge removed.
type PurgeStats struct {
	Passcodes  int64
	Sessions   int64
	ShareLinks int64
}

// Total returns the number of removed rows across all tables.
func (s PurgeStats) Total() int64 {
	return s.Passcodes + s.Sessions + s.ShareLinks
}

// PurgeExpired deletes records that can no longer be used at now.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (PurgeStats, error) {
	var stats PurgeStats
	var err error

	if stats.Passcodes, err = r.DeleteStalePasscodes(ctx, now); err != nil {
		return stats, fmt.Errorf("purging passcodes: %w", err)
	}
	if stats.Sessions, err = r.DeleteExpiredSessions(ctx, now); err != nil {
		return stats, fmt.Errorf("purging sessions: %w", err)
	}
	if stats.ShareLinks, err = r.DeleteExpiredShareLinks(ctx, now); err != nil {
		return stats, fmt.Errorf("purging share links: %w", err)
	}

	return stats, nil
}
