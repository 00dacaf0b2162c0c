// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package recovery issues and consumes single-use password recovery keys.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/paperdock/paperdock/internal/events"
	"codeberg.org/paperdock/paperdock/internal/models"
	"codeberg.org/paperdock/paperdock/internal/repository"
	"codeberg.org/paperdock/paperdock/internal/services/auth"
)

// KeyTTL is how long an unconsumed recovery key stays valid.
const KeyTTL = 24 * time.Hour

// ErrKeyNotFound is returned when a recovery key is unknown or expired. The
// two cases are deliberately indistinguishable.
var ErrKeyNotFound = errors.New("recovery key not found")

// Service is the password recovery manager.
type Service struct {
	repo *repository.Repository
	auth *auth.Service
	bus  *events.Bus
}

// NewService creates a recovery manager. The bus receives a notification for
// every issued key; mail delivery is a collaborator's concern.
func NewService(repo *repository.Repository, authSvc *auth.Service, bus *events.Bus) *Service {
	return &Service{repo: repo, auth: authSvc, bus: bus}
}

// Request issues a recovery key for a username and publishes a
// password-lost event. An unknown username reports success and does nothing,
// so the endpoint cannot be used as a user-existence oracle.
func (s *Service) Request(ctx context.Context, username string) error {
	user, err := s.repo.GetActiveUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("recovery_requested_unknown_user", "username", username)
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	key := &models.RecoveryKey{Username: user.Username}
	if err := s.repo.CreateRecoveryKey(ctx, key); err != nil {
		return fmt.Errorf("failed to create recovery key: %w", err)
	}

	s.bus.PublishPasswordLost(ctx, events.PasswordLostEvent{User: user, Key: key})

	slog.Info("recovery_requested", "user_id", user.ID)
	return nil
}

// Reset consumes a recovery key and sets a new password. On success every
// key bound to the username is invalidated, not just the one used. The
// credential update is sequenced before the key deletion, so an interrupted
// reset never leaves a changed key with an unchanged password; leftover keys
// merely expire.
func (s *Service) Reset(ctx context.Context, key, newPassword string) error {
	cutoff := time.Now().UTC().Add(-KeyTTL)
	rk, err := s.repo.GetActiveRecoveryKey(ctx, key, cutoff)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to get recovery key: %w", err)
	}

	user, err := s.repo.GetActiveUserByUsername(ctx, rk.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The bound user vanished or was disabled after the key was
			// issued; the key is useless.
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.auth.UpdatePassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	// Best effort: stale keys left behind expire on their own.
	if err := s.repo.DeleteRecoveryKeysByUsername(ctx, rk.Username); err != nil {
		slog.Warn("recovery_key_cleanup_failed", "username", rk.Username, "error", err)
	}

	slog.Info("password_reset", "user_id", user.ID)
	return nil
}
