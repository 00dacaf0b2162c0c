// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	authsvc "codeberg.org/paperdock/paperdock/internal/services/auth"
	"codeberg.org/paperdock/paperdock/internal/services/recovery"
	"github.com/labstack/echo/v4"
)

// PasswordLostRequest is the request body for starting password recovery.
type PasswordLostRequest struct {
	Username string `form:"username" json:"username"`
}

// PasswordLost starts a password recovery. The response is identical for
// known and unknown usernames.
func (h *Handlers) PasswordLost(c echo.Context) error {
	var req PasswordLostRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request")
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return ValidationError(c, "Username is required")
	}

	if err := h.recoveries.Request(c.Request().Context(), username); err != nil {
		slog.Error("password_lost_error", "error", err)
		return ServerError(c)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// PasswordResetRequest is the request body for completing password recovery.
type PasswordResetRequest struct {
	Key      string `form:"key"      json:"key"`
	Password string `form:"password" json:"password"`
}

// PasswordReset sets a new password using a recovery key.
func (h *Handlers) PasswordReset(c echo.Context) error {
	var req PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request")
	}

	if req.Key == "" {
		return ValidationError(c, "Recovery key is required")
	}

	err := h.recoveries.Reset(c.Request().Context(), req.Key, req.Password)
	if err != nil {
		if errors.Is(err, recovery.ErrKeyNotFound) {
			return KeyNotFound(c)
		}
		var validationErr *authsvc.PasswordValidationError
		if errors.As(err, &validationErr) {
			return ValidationError(c, strings.Join(validationErr.Messages(), "; "))
		}
		slog.Error("password_reset_error", "error", err)
		return ServerError(c)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
