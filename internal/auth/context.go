// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/paperdock/paperdock/internal/ctxkeys"
	"codeberg.org/paperdock/paperdock/internal/models"
)

// SetUser stores the authenticated user in the context.
func SetUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ctxkeys.User{}, user)
}

// GetUser returns the authenticated user from the context, or nil if not authenticated.
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(ctxkeys.User{}).(*models.User); ok {
		return user
	}
	return nil
}

// IsAuthenticated returns true if the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return GetUser(ctx) != nil
}

// SetToken stores the session token backing the current request in the context.
func SetToken(ctx context.Context, token *models.SessionToken) context.Context {
	return context.WithValue(ctx, ctxkeys.Token{}, token)
}

// GetToken returns the session token backing the current request, or nil.
func GetToken(ctx context.Context) *models.SessionToken {
	if token, ok := ctx.Value(ctxkeys.Token{}).(*models.SessionToken); ok {
		return token
	}
	return nil
}
