// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package database_test

import (
	"context"
	"testing"

	"codeberg.org/paperdock/paperdock/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InMemory(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping())
}

func TestOpen_RunsMigrations(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	for _, table := range []string{"users", "session_tokens", "recovery_keys"} {
		var name string
		err := db.GetContext(ctx, &name,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrateDown(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, database.MigrateDown(db.DB))
}
