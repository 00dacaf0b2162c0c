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
	"codeberg.org/paperdock/paperdock/internal/services/token"
	"github.com/labstack/echo/v4"
)

// LoginRequest is the request body for the login endpoint.
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Code     string `form:"code"     json:"code"`
	Remember bool   `form:"remember" json:"remember"`
}

// Login authenticates a user and sets the auth token cookie.
// An empty username and password resolves to the guest account when guest
// login is enabled.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request")
	}

	ctx := c.Request().Context()

	var (
		user *models.User
		err  error
	)
	if h.cfg.Auth.GuestLogin && isGuestLogin(&req) {
		user, err = h.auths.ResolveGuest(ctx)
	} else {
		user, err = h.auths.Verify(ctx, req.Username, req.Password)
	}
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			return Forbidden(c, "Invalid username or password")
		}
		slog.Error("login_error", "error", err)
		return ServerError(c)
	}

	if user.TotpEnabled() {
		if req.Code == "" {
			return ValidationCodeRequired(c)
		}
		ok, verifyErr := h.consumeTotpCode(c, user, req.Code)
		if verifyErr != nil {
			slog.Error("totp_verification_error", "error", verifyErr, "user_id", user.ID)
			return ServerError(c)
		}
		if !ok {
			slog.Warn("login_failed", "reason", "invalid_totp_code", "username", user.Username)
			return Forbidden(c, "Invalid validation code")
		}
	}

	value, err := h.tokens.Create(ctx, user.ID, req.Remember, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		slog.Error("token_creation_failed", "error", err, "user_id", user.ID)
		return ServerError(c)
	}

	// Opportunistic cleanup of this user's stale tokens
	h.tokens.PruneExpired(ctx, user.ID)

	var maxAge time.Duration
	if req.Remember {
		maxAge = token.LongLivedLifetime
	}
	cookie, err := h.sessions.Cookie(value, maxAge)
	if err != nil {
		return ServerError(c)
	}
	c.SetCookie(cookie)

	slog.Info("login_succeeded", "user_id", user.ID, "username", user.Username, "long_lived", req.Remember)

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// isGuestLogin reports whether a login request targets the guest account.
// The guest username with no password counts, as does a fully empty form.
func isGuestLogin(req *LoginRequest) bool {
	if req.Password != "" {
		return false
	}
	return req.Username == "" || req.Username == models.GuestUsername
}

// Logout revokes the current session token and expires the cookie.
func (h *Handlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	sessionToken := auth.GetToken(ctx)
	if sessionToken != nil {
		if err := h.tokens.Revoke(ctx, sessionToken.Token); err != nil {
			slog.Error("logout_revoke_failed", "error", err)
			return ServerError(c)
		}
	}

	c.SetCookie(h.sessions.Expired())

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Info returns information about the current user, or an anonymous marker
// when the request carries no valid session.
func (h *Handlers) Info(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusOK, map[string]any{"anonymous": true})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"anonymous":    false,
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"guest":        user.IsGuest(),
		"totp_enabled": user.TotpEnabled(),
	})
}

// sessionEntry describes one active session token in the session list.
type sessionEntry struct { //nolint:govet // fieldalignment: readability over optimization
	CreateDate         int64  `json:"create_date"`
	LastConnectionDate *int64 `json:"last_connection_date,omitempty"`
	IP                 string `json:"ip"`
	UserAgent          string `json:"user_agent"`
	LongLived          bool   `json:"long_lived"`
	Current            bool   `json:"current"`
}

// Sessions lists the active session tokens of the current user. The guest
// account is shared, so guests get an empty list instead of the tokens of
// other guest visitors.
func (h *Handlers) Sessions(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUser(ctx)
	current := auth.GetToken(ctx)

	if user.IsGuest() {
		return c.JSON(http.StatusOK, map[string]any{"sessions": []sessionEntry{}})
	}

	tokens, err := h.tokens.List(ctx, user.ID)
	if err != nil {
		slog.Error("session_list_failed", "error", err, "user_id", user.ID)
		return ServerError(c)
	}

	entries := make([]sessionEntry, 0, len(tokens))
	for _, tk := range tokens {
		entry := sessionEntry{
			CreateDate: tk.CreatedAt.UnixMilli(),
			IP:         tk.IP,
			UserAgent:  tk.UserAgent,
			LongLived:  tk.LongLived,
			Current:    current != nil && tk.Token == current.Token,
		}
		if tk.LastUsedAt != nil {
			ms := tk.LastUsedAt.UnixMilli()
			entry.LastConnectionDate = &ms
		}
		entries = append(entries, entry)
	}

	return c.JSON(http.StatusOK, map[string]any{"sessions": entries})
}

// DeleteSessions revokes all session tokens of the current user except the
// one backing this request.
func (h *Handlers) DeleteSessions(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.GetUser(ctx)
	current := auth.GetToken(ctx)

	if err := h.tokens.RevokeAllExcept(ctx, user.ID, current.Token); err != nil {
		slog.Error("session_revoke_failed", "error", err, "user_id", user.ID)
		return ServerError(c)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
