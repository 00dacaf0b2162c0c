// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/paperdock/paperdock/internal/models"
)

// CreateToken persists a new session token row.
func (r *Repository) CreateToken(ctx context.Context, token *models.SessionToken) error {
	token.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_tokens (token, user_id, long_lived, ip, user_agent, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token.Token, token.UserID, token.LongLived, token.IP, token.UserAgent,
		token.CreatedAt, token.LastUsedAt)
	return err
}

// GetToken retrieves a session token by value.
func (r *Repository) GetToken(ctx context.Context, token string) (*models.SessionToken, error) {
	var st models.SessionToken
	err := r.db.GetContext(ctx, &st, `SELECT * FROM session_tokens WHERE token = ?`, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &st, nil
}

// GetTokensByUserID lists all session tokens owned by a user, newest first.
func (r *Repository) GetTokensByUserID(ctx context.Context, userID string) ([]models.SessionToken, error) {
	var tokens []models.SessionToken
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT * FROM session_tokens WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// TouchToken updates the last-used timestamp of a token.
func (r *Repository) TouchToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE session_tokens SET last_used_at = ? WHERE token = ?`, time.Now().UTC(), token)
	return err
}

// DeleteToken removes a single token. Deleting a token that is already gone
// is not an error.
func (r *Repository) DeleteToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE token = ?`, token)
	return err
}

// DeleteTokensByUserID removes every token owned by a user except the one to
// keep.
func (r *Repository) DeleteTokensByUserID(ctx context.Context, userID, keepToken string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_tokens WHERE user_id = ? AND token != ?`, userID, keepToken)
	return err
}

// DeleteOldShortLivedTokens removes short-lived tokens for a user whose last
// use, or creation when never used, is before the cutoff.
func (r *Repository) DeleteOldShortLivedTokens(ctx context.Context, userID string, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_tokens
		 WHERE user_id = ? AND long_lived = 0
		   AND COALESCE(last_used_at, created_at) < ?`, userID, cutoff)
	return err
}
