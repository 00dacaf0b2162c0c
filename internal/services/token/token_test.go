// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package token_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"codeberg.org/paperdock/paperdock/internal/repository"
	"codeberg.org/paperdock/paperdock/internal/services/token"
	"codeberg.org/paperdock/paperdock/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndValidate(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "OldPass1!")

	value, err := svc.Create(ctx, user.ID, false, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	// 32 random bytes, hex encoded.
	assert.Len(t, value, 64)

	st, err := svc.Validate(ctx, value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, st.UserID)
	assert.False(t, st.LongLived)
}

func TestCreate_UniqueTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "OldPass1!")

	seen := make(map[string]bool)
	for range 10 {
		value, err := svc.Create(ctx, user.ID, false, "", "")
		require.NoError(t, err)
		assert.False(t, seen[value])
		seen[value] = true
	}
}

func TestCreate_TruncatesClientMetadata(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "OldPass1!")

	longIP := strings.Repeat("x", 100)
	longUA := strings.Repeat("y", 2000)
	value, err := svc.Create(ctx, user.ID, false, longIP, longUA)
	require.NoError(t, err)

	st, err := svc.Validate(ctx, value)
	require.NoError(t, err)
	assert.Len(t, st.IP, 45)
	assert.Len(t, st.UserAgent, 1000)
}

func TestValidate_UnknownToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)

	_, err := svc.Validate(context.Background(), "unknown")
	assert.True(t, token.IsNotFound(err))
}

func TestValidate_ExpiredLongLivedToken(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "OldPass1!")
	value, err := svc.Create(ctx, user.ID, true, "", "")
	require.NoError(t, err)

	// Age the token past the long-lived lifetime.
	stale := time.Now().UTC().Add(-token.LongLivedLifetime - time.Hour)
	_, err = db.ExecContext(ctx,
		`UPDATE session_tokens SET created_at = ? WHERE token = ?`, stale, value)
	require.NoError(t, err)

	_, err = svc.Validate(ctx, value)
	assert.True(t, token.IsNotFound(err))

	// Expired token was removed by the lookup.
	_, err = repo.GetToken(ctx, value)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRevoke_Idempotent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "OldPass1!")
	value, err := svc.Create(ctx, user.ID, false, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, value))
	require.NoError(t, svc.Revoke(ctx, value))

	_, err = svc.Validate(ctx, value)
	assert.True(t, token.IsNotFound(err))
}

func TestRevokeAllExcept(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "OldPass1!")

	var keep string
	for i := range 5 {
		value, err := svc.Create(ctx, user.ID, false, "", "")
		require.NoError(t, err)
		if i == 2 {
			keep = value
		}
	}

	require.NoError(t, svc.RevokeAllExcept(ctx, user.ID, keep))

	tokens, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, keep, tokens[0].Token)

	_, err = svc.Validate(ctx, keep)
	assert.NoError(t, err)
}

func TestPruneExpired(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "OldPass1!")

	idle, err := svc.Create(ctx, user.ID, false, "", "")
	require.NoError(t, err)
	remembered, err := svc.Create(ctx, user.ID, true, "", "")
	require.NoError(t, err)
	fresh, err := svc.Create(ctx, user.ID, false, "", "")
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-token.ShortLivedRetention - time.Hour)
	_, err = db.ExecContext(ctx,
		`UPDATE session_tokens SET created_at = ? WHERE token IN (?, ?)`, stale, idle, remembered)
	require.NoError(t, err)

	svc.PruneExpired(ctx, user.ID)

	// Only the idle short-lived token is gone.
	_, err = svc.Validate(ctx, idle)
	assert.True(t, token.IsNotFound(err))
	_, err = svc.Validate(ctx, remembered)
	assert.NoError(t, err)
	_, err = svc.Validate(ctx, fresh)
	assert.NoError(t, err)
}

func TestTouch_UpdatesLastUsed(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := token.NewService(repo)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "OldPass1!")
	value, err := svc.Create(ctx, user.ID, false, "", "")
	require.NoError(t, err)

	svc.Touch(ctx, value)

	st, err := svc.Validate(ctx, value)
	require.NoError(t, err)
	require.NotNil(t, st.LastUsedAt)
}
