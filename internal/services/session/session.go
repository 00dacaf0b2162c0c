// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package session encodes the opaque auth token into the browser cookie.
// The cookie value is the token wrapped by securecookie, so a tampered
// cookie fails HMAC verification before the database is ever consulted.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codeberg.org/paperdock/paperdock/internal/config"
	"github.com/gorilla/securecookie"
)

const cookieValueName = "token"

// Manager encodes and decodes the auth token cookie.
type Manager struct {
	codec      *securecookie.SecureCookie
	cookieName string
	secure     bool
}

// NewManager creates a cookie manager from the session configuration.
// An empty hash key is replaced by a random one, which invalidates all
// cookies on restart.
func NewManager(cfg *config.SessionConfig, baseURL string) (*Manager, error) {
	hashKey, err := keyFromConfig(cfg.HashKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session hash key: %w", err)
	}
	if hashKey == nil {
		slog.Warn("no session hash key configured, cookies will not survive restarts")
		hashKey = randomKey()
	}

	var blockKey []byte
	if cfg.BlockKey != "" {
		blockKey, err = keyFromConfig(cfg.BlockKey)
		if err != nil {
			return nil, fmt.Errorf("invalid session block key: %w", err)
		}
	}

	return &Manager{
		codec:      securecookie.New(hashKey, blockKey),
		cookieName: cfg.CookieName,
		secure:     strings.HasPrefix(baseURL, "https://"),
	}, nil
}

// CookieName returns the configured name of the auth cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Cookie builds the auth cookie for the given token. A zero maxAge yields
// a session cookie that the browser drops on close.
func (m *Manager) Cookie(token string, maxAge time.Duration) (*http.Cookie, error) {
	encoded, err := m.codec.Encode(cookieValueName, token)
	if err != nil {
		return nil, fmt.Errorf("encoding auth cookie: %w", err)
	}

	cookie := &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
	}
	return cookie, nil
}

// Expired builds a cookie that instructs the browser to drop the auth cookie.
func (m *Manager) Expired() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Decode extracts the raw token from a request, or returns an error when
// the cookie is absent or fails verification.
func (m *Manager) Decode(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return "", fmt.Errorf("reading auth cookie: %w", err)
	}

	var token string
	if err := m.codec.Decode(cookieValueName, cookie.Value, &token); err != nil {
		return "", fmt.Errorf("decoding auth cookie: %w", err)
	}
	return token, nil
}

func keyFromConfig(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("expected 32 bytes, got %d", len(key))
	}
	return key, nil
}

func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}
