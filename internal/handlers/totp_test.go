// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"codeberg.org/paperdock/paperdock/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableTotp(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "alice", "password123")

	c, rec := f.authedContext(t, http.MethodPost, "/api/user/enable_totp", url.Values{}, user)

	require.NoError(t, f.h.EnableTotp(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Secret string `json:"secret"`
		URI    string `json:"uri"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Secret, 32)
	assert.Contains(t, body.URI, "otpauth://totp/")
	assert.Contains(t, body.URI, "alice")

	stored, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TotpSecret)
	assert.Equal(t, body.Secret, *stored.TotpSecret)
}

func TestDisableTotp(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "alice", "password123")
	f.enableTotp(t, user)

	c, rec := f.authedContext(t, http.MethodPost, "/api/user/disable_totp",
		url.Values{"password": {"password123"}}, user)

	require.NoError(t, f.h.DisableTotp(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.TotpSecret)
}

func TestDisableTotp_WrongPassword(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "alice", "password123")
	f.enableTotp(t, user)

	c, rec := f.authedContext(t, http.MethodPost, "/api/user/disable_totp",
		url.Values{"password": {"wrong"}}, user)

	require.NoError(t, f.h.DisableTotp(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ValidationError")

	stored, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.TotpSecret)
}

func TestTestTotp(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "alice", "password123")
	secret := f.enableTotp(t, user)

	code, err := f.totps.CodeAt(secret, time.Now())
	require.NoError(t, err)

	c, rec := f.authedContext(t, http.MethodPost, "/api/user/test_totp",
		url.Values{"code": {code}}, user)
	require.NoError(t, f.h.TestTotp(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The code is consumed by the successful check
	c, rec = f.authedContext(t, http.MethodPost, "/api/user/test_totp",
		url.Values{"code": {code}}, user)
	require.NoError(t, f.h.TestTotp(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTestTotp_ReplayWithStaleUserSnapshot(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "alice", "password123")
	secret := f.enableTotp(t, user)

	code, err := f.totps.CodeAt(secret, time.Now())
	require.NoError(t, err)

	// Both requests resolved the user before either counter update landed,
	// so the in-memory counters cannot catch the replay on their own.
	stale := *user

	c, rec := f.authedContext(t, http.MethodPost, "/api/user/test_totp",
		url.Values{"code": {code}}, user)
	require.NoError(t, f.h.TestTotp(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = f.authedContext(t, http.MethodPost, "/api/user/test_totp",
		url.Values{"code": {code}}, &stale)
	require.NoError(t, f.h.TestTotp(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTestTotp_InvalidCode(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "alice", "password123")
	f.enableTotp(t, user)

	c, rec := f.authedContext(t, http.MethodPost, "/api/user/test_totp",
		url.Values{"code": {"000000"}}, user)

	require.NoError(t, f.h.TestTotp(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTestTotp_NotEnabled(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "alice", "password123")

	c, rec := f.authedContext(t, http.MethodPost, "/api/user/test_totp",
		url.Values{"code": {"123456"}}, user)

	require.NoError(t, f.h.TestTotp(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
