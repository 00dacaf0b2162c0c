// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package middleware provides Echo middleware for token authentication.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"codeberg.org/paperdock/paperdock/internal/auth"
	"codeberg.org/paperdock/paperdock/internal/models"
	"codeberg.org/paperdock/paperdock/internal/services/session"
	"codeberg.org/paperdock/paperdock/internal/services/token"
	"github.com/labstack/echo/v4"
)

// UserLoader loads full user data for an authenticated token.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// LoadUser resolves the auth cookie into a user and attaches both the user
// and the backing session token to the request context. Requests with a
// missing, tampered, or expired cookie pass through unauthenticated.
func LoadUser(sessions *session.Manager, tokens *token.Service, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := sessions.Decode(c.Request())
			if err != nil {
				return next(c)
			}

			ctx := c.Request().Context()

			sessionToken, err := tokens.Validate(ctx, raw)
			if err != nil {
				if !token.IsNotFound(err) {
					slog.Error("token_validation_failed", "error", err)
				}
				return next(c)
			}

			user, err := users.GetUserByID(ctx, sessionToken.UserID)
			if err != nil || user.IsDisabled() {
				return next(c)
			}

			tokens.Touch(ctx, sessionToken.Token)

			ctx = auth.SetUser(ctx, user)
			ctx = auth.SetToken(ctx, sessionToken)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireAuth rejects unauthenticated requests.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !auth.IsAuthenticated(c.Request().Context()) {
			return forbidden(c)
		}
		return next(c)
	}
}

// RequireNotGuest rejects unauthenticated and guest requests.
func RequireNotGuest(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := auth.GetUser(c.Request().Context())
		if user == nil || user.IsGuest() {
			return forbidden(c)
		}
		return next(c)
	}
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, map[string]string{
		"type":    "ForbiddenError",
		"message": "You don't have access to this resource",
	})
}
