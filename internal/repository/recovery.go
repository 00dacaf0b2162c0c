// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/paperdock/paperdock/internal/models"
	"github.com/google/uuid"
)

// CreateRecoveryKey inserts a new recovery key bound to a username.
func (r *Repository) CreateRecoveryKey(ctx context.Context, key *models.RecoveryKey) error {
	if key.Key == "" {
		key.Key = uuid.NewString()
	}
	key.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recovery_keys (key, username, created_at) VALUES (?, ?, ?)`,
		key.Key, key.Username, key.CreatedAt)
	return err
}

// GetActiveRecoveryKey retrieves a recovery key created after the cutoff.
// Keys older than the cutoff are deleted on the way out, so expiry needs no
// background sweep.
func (r *Repository) GetActiveRecoveryKey(ctx context.Context, key string, cutoff time.Time) (*models.RecoveryKey, error) {
	var rk models.RecoveryKey
	err := r.db.GetContext(ctx, &rk, `SELECT * FROM recovery_keys WHERE key = ?`, key)
	if err != nil {
		return nil, wrapError(err)
	}
	if rk.CreatedAt.Before(cutoff) {
		// Lazy removal of the expired key.
		_, _ = r.db.ExecContext(ctx, `DELETE FROM recovery_keys WHERE key = ?`, key)
		return nil, ErrNotFound
	}
	return &rk, nil
}

// DeleteRecoveryKeysByUsername removes every recovery key bound to a
// username, used and stale ones alike.
func (r *Repository) DeleteRecoveryKeysByUsername(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recovery_keys WHERE username = ?`, username)
	return err
}

// CountRecoveryKeysByUsername returns the number of keys bound to a username.
func (r *Repository) CountRecoveryKeysByUsername(ctx context.Context, username string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM recovery_keys WHERE username = ?`, username)
	return count, err
}
