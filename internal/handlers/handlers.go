// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP handlers of the auth API.
package handlers

import (
	"net/http"

	"codeberg.org/paperdock/paperdock/internal/config"
	"codeberg.org/paperdock/paperdock/internal/repository"
	"codeberg.org/paperdock/paperdock/internal/services/auth"
	"codeberg.org/paperdock/paperdock/internal/services/recovery"
	"codeberg.org/paperdock/paperdock/internal/services/session"
	"codeberg.org/paperdock/paperdock/internal/services/token"
	"codeberg.org/paperdock/paperdock/internal/services/totp"
	"github.com/labstack/echo/v4"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	cfg        *config.Config
	repo       *repository.Repository
	auths      *auth.Service
	totps      *totp.Service
	tokens     *token.Service
	recoveries *recovery.Service
	sessions   *session.Manager
}

// New creates a new Handlers instance.
func New(
	cfg *config.Config,
	repo *repository.Repository,
	auths *auth.Service,
	totps *totp.Service,
	tokens *token.Service,
	recoveries *recovery.Service,
	sessions *session.Manager,
) *Handlers {
	return &Handlers{
		cfg:        cfg,
		repo:       repo,
		auths:      auths,
		totps:      totps,
		tokens:     tokens,
		recoveries: recoveries,
		sessions:   sessions,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
