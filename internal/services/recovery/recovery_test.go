// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package recovery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/paperdock/paperdock/internal/events"
	"codeberg.org/paperdock/paperdock/internal/repository"
	"codeberg.org/paperdock/paperdock/internal/services/auth"
	"codeberg.org/paperdock/paperdock/internal/services/recovery"
	"codeberg.org/paperdock/paperdock/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder captures published password-lost events.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.PasswordLostEvent
	done   chan struct{}
}

func newEventRecorder(bus *events.Bus) *eventRecorder {
	r := &eventRecorder{done: make(chan struct{}, 8)}
	bus.SubscribePasswordLost(func(_ context.Context, ev events.PasswordLostEvent) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
		r.done <- struct{}{}
	})
	return r
}

func (r *eventRecorder) wait(t *testing.T) events.PasswordLostEvent {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for password-lost event")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newRecoveryService(t *testing.T) (*recovery.Service, *repository.Repository, *auth.Service, *eventRecorder) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	authSvc := auth.NewService(repo)
	bus := events.NewBus()
	rec := newEventRecorder(bus)
	return recovery.NewService(repo, authSvc, bus), repo, authSvc, rec
}

func TestRequest_KnownUser(t *testing.T) {
	svc, repo, _, rec := newRecoveryService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "OldPass1!")

	require.NoError(t, svc.Request(ctx, "alice"))

	ev := rec.wait(t)
	assert.Equal(t, user.ID, ev.User.ID)
	assert.NotEmpty(t, ev.Key.Key)
	assert.Equal(t, "alice", ev.Key.Username)

	count, err := repo.CountRecoveryKeysByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRequest_UnknownUser_NoOracle(t *testing.T) {
	svc, repo, _, rec := newRecoveryService(t)
	ctx := context.Background()

	// Success is reported even though no such user exists.
	require.NoError(t, svc.Request(ctx, "nobody"))

	count, err := repo.CountRecoveryKeysByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, rec.count())
}

func TestReset_FullFlow(t *testing.T) {
	svc, repo, authSvc, rec := newRecoveryService(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "alice", "OldPass1!")
	require.NoError(t, svc.Request(ctx, "alice"))
	key := rec.wait(t).Key.Key

	require.NoError(t, svc.Reset(ctx, key, "NewPass2!"))

	// Old password no longer works, new one does.
	_, err := authSvc.Verify(ctx, "alice", "OldPass1!")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = authSvc.Verify(ctx, "alice", "NewPass2!")
	assert.NoError(t, err)

	// The key is consumed; a second reset fails.
	err = svc.Reset(ctx, key, "AnotherPass3!")
	assert.ErrorIs(t, err, recovery.ErrKeyNotFound)
}

func TestReset_InvalidatesSiblingKeys(t *testing.T) {
	svc, repo, _, rec := newRecoveryService(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "alice", "OldPass1!")

	require.NoError(t, svc.Request(ctx, "alice"))
	first := rec.wait(t).Key.Key
	require.NoError(t, svc.Request(ctx, "alice"))
	second := rec.wait(t).Key.Key

	require.NoError(t, svc.Reset(ctx, second, "NewPass2!"))

	err := svc.Reset(ctx, first, "AnotherPass3!")
	assert.ErrorIs(t, err, recovery.ErrKeyNotFound)

	count, err := repo.CountRecoveryKeysByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReset_UnknownKey(t *testing.T) {
	svc, _, _, _ := newRecoveryService(t)

	err := svc.Reset(context.Background(), "no-such-key", "NewPass2!")
	assert.ErrorIs(t, err, recovery.ErrKeyNotFound)
}

func TestReset_ExpiredKey(t *testing.T) {
	svc, repo, _, rec := newRecoveryService(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "alice", "OldPass1!")
	require.NoError(t, svc.Request(ctx, "alice"))
	key := rec.wait(t).Key.Key

	// Age the key past its TTL.
	stale := time.Now().UTC().Add(-recovery.KeyTTL - time.Hour)
	_, err := repo.DB().ExecContext(ctx,
		`UPDATE recovery_keys SET created_at = ? WHERE key = ?`, stale, key)
	require.NoError(t, err)

	err = svc.Reset(ctx, key, "NewPass2!")
	assert.ErrorIs(t, err, recovery.ErrKeyNotFound)
}

func TestReset_WeakPasswordLeavesKeyActive(t *testing.T) {
	svc, repo, _, rec := newRecoveryService(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "alice", "OldPass1!")
	require.NoError(t, svc.Request(ctx, "alice"))
	key := rec.wait(t).Key.Key

	var verr *auth.PasswordValidationError
	err := svc.Reset(ctx, key, "short")
	require.ErrorAs(t, err, &verr)

	// The failed reset did not consume the key.
	count, err := repo.CountRecoveryKeysByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
