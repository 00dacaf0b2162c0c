// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package token issues, validates and revokes the bearer tokens backing
// authenticated sessions.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/paperdock/paperdock/internal/models"
	"codeberg.org/paperdock/paperdock/internal/repository"
)

const (
	// LongLivedLifetime is the validity of "remember me" tokens.
	LongLivedLifetime = 28 * 24 * time.Hour
	// ShortLivedRetention is how long an idle short-lived token survives
	// before the opportunistic cleanup removes it.
	ShortLivedRetention = 24 * time.Hour
	// tokenBytes is the raw token size; 32 bytes is double the required
	// 128 bits of entropy.
	tokenBytes = 32
)

// Service is the session token manager.
type Service struct {
	repo *repository.Repository
}

// NewService creates a session token manager over the given repository.
func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Create issues a new token for a user after successful verification.
// Client metadata is best-effort and truncated to the stored limits.
func (s *Service) Create(ctx context.Context, userID string, longLived bool, ip, userAgent string) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	value := hex.EncodeToString(raw)

	st := &models.SessionToken{
		Token:     value,
		UserID:    userID,
		LongLived: longLived,
		IP:        truncate(ip, models.TokenIPMaxLen),
		UserAgent: truncate(userAgent, models.TokenUserAgentMaxLen),
	}
	if err := s.repo.CreateToken(ctx, st); err != nil {
		return "", fmt.Errorf("failed to persist token: %w", err)
	}

	slog.Info("session_created", "user_id", userID, "long_lived", longLived)
	return value, nil
}

// Validate looks up a token and checks its lifetime. A missing and an
// expired token are indistinguishable to the caller.
func (s *Service) Validate(ctx context.Context, value string) (*models.SessionToken, error) {
	st, err := s.repo.GetToken(ctx, value)
	if err != nil {
		return nil, err
	}

	if st.LongLived && time.Since(st.CreatedAt) > LongLivedLifetime {
		// Expired long-lived token, remove it on the way out.
		_ = s.repo.DeleteToken(ctx, value)
		return nil, repository.ErrNotFound
	}

	return st, nil
}

// Touch updates the last-used timestamp. Failures are logged and swallowed;
// losing an update only delays the cleanup of an active token.
func (s *Service) Touch(ctx context.Context, value string) {
	if err := s.repo.TouchToken(ctx, value); err != nil {
		slog.Warn("session_touch_failed", "error", err)
	}
}

// Revoke deletes a single token. Revoking an unknown token is not an error.
func (s *Service) Revoke(ctx context.Context, value string) error {
	if err := s.repo.DeleteToken(ctx, value); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeAllExcept deletes every token owned by a user other than the one
// backing the current request.
func (s *Service) RevokeAllExcept(ctx context.Context, userID, keepToken string) error {
	if err := s.repo.DeleteTokensByUserID(ctx, userID, keepToken); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	slog.Info("sessions_revoked", "user_id", userID)
	return nil
}

// List returns all tokens owned by a user, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.SessionToken, error) {
	return s.repo.GetTokensByUserID(ctx, userID)
}

// PruneExpired opportunistically removes idle short-lived tokens for a user.
// It is a maintenance side effect of login; failures never block the caller.
func (s *Service) PruneExpired(ctx context.Context, userID string) {
	cutoff := time.Now().UTC().Add(-ShortLivedRetention)
	if err := s.repo.DeleteOldShortLivedTokens(ctx, userID, cutoff); err != nil {
		slog.Warn("session_prune_failed", "user_id", userID, "error", err)
	}
}

// IsNotFound reports whether an error from Validate means "not
// authenticated" rather than a store failure.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
