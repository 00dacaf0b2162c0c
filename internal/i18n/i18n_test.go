// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"testing"

	"codeberg.org/paperdock/paperdock/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestInit(t *testing.T) {
	require.NoError(t, i18n.Init())
}

func TestT_DefaultsToEnglish(t *testing.T) {
	require.NoError(t, i18n.Init())

	msg := i18n.T(context.Background(), "password_lost_subject")
	assert.Equal(t, "Reset your Paperdock password", msg)
}

func TestTData_German(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.German)
	msg := i18n.TData(ctx, "password_lost_body", map[string]any{
		"Username": "alice",
		"ResetURL": "https://example.com/reset",
	})
	assert.Contains(t, msg, "Hallo alice")
	assert.Contains(t, msg, "https://example.com/reset")
}

func TestT_UnknownMessageID(t *testing.T) {
	require.NoError(t, i18n.Init())

	msg := i18n.T(context.Background(), "does_not_exist")
	assert.Equal(t, "does_not_exist", msg)
}

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, language.German, i18n.MatchLanguage("de-DE,de;q=0.9"))
	assert.Equal(t, language.English, i18n.MatchLanguage("en-US,en;q=0.9"))
	assert.Equal(t, language.English, i18n.MatchLanguage(""))
	assert.Equal(t, language.English, i18n.MatchLanguage("garbage;;"))
}
