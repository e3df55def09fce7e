// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/snippetshare/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
	assert.NotNil(t, repo.DB())
}

func TestPing(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	assert.NoError(t, repo.Ping(context.Background()))
}
