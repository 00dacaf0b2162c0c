// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/paperdock/paperdock/internal/models"
	"codeberg.org/paperdock/paperdock/internal/repository"
	"codeberg.org/paperdock/paperdock/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRecoveryKey_AssignsKey(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	key := &models.RecoveryKey{Username: "alice"}
	require.NoError(t, repo.CreateRecoveryKey(context.Background(), key))
	assert.NotEmpty(t, key.Key)
}

func TestGetActiveRecoveryKey(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	key := &models.RecoveryKey{Username: "alice"}
	require.NoError(t, repo.CreateRecoveryKey(ctx, key))

	cutoff := time.Now().UTC().Add(-time.Hour)
	found, err := repo.GetActiveRecoveryKey(ctx, key.Key, cutoff)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)
}

func TestGetActiveRecoveryKey_Expired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	key := &models.RecoveryKey{Username: "alice"}
	require.NoError(t, repo.CreateRecoveryKey(ctx, key))

	// A cutoff in the future makes every key stale.
	cutoff := time.Now().UTC().Add(time.Hour)
	_, err := repo.GetActiveRecoveryKey(ctx, key.Key, cutoff)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The expired key was removed lazily.
	count, err := repo.CountRecoveryKeysByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteRecoveryKeysByUsername(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateRecoveryKey(ctx, &models.RecoveryKey{Username: "alice"}))
	require.NoError(t, repo.CreateRecoveryKey(ctx, &models.RecoveryKey{Username: "alice"}))
	require.NoError(t, repo.CreateRecoveryKey(ctx, &models.RecoveryKey{Username: "bob"}))

	require.NoError(t, repo.DeleteRecoveryKeysByUsername(ctx, "alice"))

	count, err := repo.CountRecoveryKeysByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.CountRecoveryKeysByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
