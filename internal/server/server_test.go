// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"path/filepath"
	"testing"

	"codeberg.org/oliverandrich/snippetshare/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_StartsFromCurrentVersion(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "app.db")
	ctx := context.Background()

	db, err := database.Open(dsn)
	require.NoError(t, err)
	require.NoError(t, database.MigrateDown(ctx, db.DB))
	require.NoError(t, db.Close())

	db, err = database.Connect(dsn)
	require.NoError(t, err)
	defer closeDatabase(db)

	version, err := migrate(ctx, db.DB, "down")
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	version, err = migrate(ctx, db.DB, "up")
	require.NoError(t, err)
	assert.Equal(t, int64(5), version)

	version, err = migrate(ctx, db.DB, "reset")
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestMigrate_UnknownDirection(t *testing.T) {
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	defer closeDatabase(db)

	_, err = migrate(context.Background(), db.DB, "sideways")
	assert.ErrorContains(t, err, "unknown migration direction")
}
