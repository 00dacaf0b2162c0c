// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/paperdock/paperdock/internal/auth"
	"codeberg.org/paperdock/paperdock/internal/models"
	authsvc "codeberg.org/paperdock/paperdock/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// EnableTotp generates a fresh TOTP secret for the current user and returns
// it once. Any previously stored secret is replaced and its counter reset.
func (h *Handlers) EnableTotp(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUser(ctx)

	secret, err := h.totps.GenerateSecret()
	if err != nil {
		slog.Error("totp_secret_generation_failed", "error", err, "user_id", user.ID)
		return ServerError(c)
	}

	if err := h.repo.UpdateUserTotpSecret(ctx, user.ID, &secret); err != nil {
		slog.Error("totp_secret_store_failed", "error", err, "user_id", user.ID)
		return ServerError(c)
	}

	slog.Info("totp_enabled", "user_id", user.ID)

	return c.JSON(http.StatusOK, map[string]string{
		"secret": secret,
		"uri":    h.totps.ProvisionURI(secret, user.Username),
	})
}

// DisableTotpRequest is the request body for disabling TOTP.
type DisableTotpRequest struct {
	Password string `form:"password" json:"password"`
}

// DisableTotp removes the TOTP secret of the current user after re-verifying
// the password.
func (h *Handlers) DisableTotp(c echo.Context) error {
	var req DisableTotpRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request")
	}

	ctx := c.Request().Context()
	user := auth.GetUser(ctx)

	if _, err := h.auths.Verify(ctx, user.Username, req.Password); err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			return ValidationError(c, "Invalid password")
		}
		slog.Error("totp_disable_error", "error", err, "user_id", user.ID)
		return ServerError(c)
	}

	if err := h.repo.UpdateUserTotpSecret(ctx, user.ID, nil); err != nil {
		slog.Error("totp_disable_error", "error", err, "user_id", user.ID)
		return ServerError(c)
	}

	slog.Info("totp_disabled", "user_id", user.ID)

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// TestTotpRequest is the request body for checking a TOTP code.
type TestTotpRequest struct {
	Code string `form:"code" json:"code"`
}

// TestTotp validates a TOTP code for the current user. A successful check
// consumes the code, so it cannot be replayed on a later login.
func (h *Handlers) TestTotp(c echo.Context) error {
	var req TestTotpRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request")
	}

	ctx := c.Request().Context()
	user := auth.GetUser(ctx)

	if !user.TotpEnabled() {
		return ValidationError(c, "TOTP is not enabled for this user")
	}
	if req.Code == "" {
		return ValidationError(c, "Validation code is required")
	}

	ok, err := h.consumeTotpCode(c, user, req.Code)
	if err != nil {
		slog.Error("totp_verification_error", "error", err, "user_id", user.ID)
		return ServerError(c)
	}
	if !ok {
		return Forbidden(c, "Invalid validation code")
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// consumeTotpCode verifies a code against the user's secret and advances the
// replay counter. The forward-only counter update is the gate: when it does
// not advance, another request already consumed this time step and the code
// is rejected as a replay, even if both requests loaded the user before
// either update landed.
func (h *Handlers) consumeTotpCode(c echo.Context, user *models.User, code string) (bool, error) {
	ok, counter, err := h.totps.Verify(*user.TotpSecret, code, time.Now())
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	advanced, err := h.repo.UpdateUserTotpLastCounter(c.Request().Context(), user.ID, counter)
	if err != nil {
		return false, err
	}
	if !advanced {
		return false, nil
	}
	user.TotpLastCounter = counter
	return true, nil
}
