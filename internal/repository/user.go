// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/paperdock/paperdock/internal/models"
	"github.com/google/uuid"
)

// CreateUser inserts a new credential record with a fresh id.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, totp_secret, totp_last_counter, disable_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.TotpSecret, user.TotpLastCounter, user.DisableDate, user.CreatedAt)
	return err
}

// GetUserByID retrieves a user by id.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetActiveUserByUsername retrieves a non-disabled user by username.
func (r *Repository) GetActiveUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT * FROM users WHERE username = ? AND disable_date IS NULL`, username)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UserExists checks if a username is taken, disabled accounts included.
func (r *Repository) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username)
	return exists, err
}

// UpdateUserPassword replaces the stored password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// UpdateUserTotpSecret sets or clears the second factor secret. Clearing also
// resets the replay counter so a later re-enrollment starts fresh.
func (r *Repository) UpdateUserTotpSecret(ctx context.Context, id string, secret *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, totp_last_counter = 0 WHERE id = ?`, secret, id)
	return err
}

// UpdateUserTotpLastCounter records the highest accepted time-step counter
// and reports whether it advanced. The counter only moves forward; a false
// return means another request already claimed this counter, which makes
// accepted codes single-use even across concurrent verifications.
func (r *Repository) UpdateUserTotpLastCounter(ctx context.Context, id string, counter int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_last_counter = ? WHERE id = ? AND totp_last_counter < ?`,
		counter, id, counter)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
