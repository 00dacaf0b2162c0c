// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package handlers_test

import (
	"net/http"
	"testing"

	"codeberg.org/paperdock/paperdock/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	f := newFixture(t)

	assert.NotNil(t, f.h)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	c, rec := testutil.NewEchoContext(f.e, http.MethodGet, "/health", nil)

	err := f.h.Health(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
