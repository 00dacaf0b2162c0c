// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package server wires the services together and runs the HTTP API.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/paperdock/paperdock/internal/config"
	"codeberg.org/paperdock/paperdock/internal/database"
	"codeberg.org/paperdock/paperdock/internal/events"
	"codeberg.org/paperdock/paperdock/internal/handlers"
	"codeberg.org/paperdock/paperdock/internal/i18n"
	mw "codeberg.org/paperdock/paperdock/internal/middleware"
	"codeberg.org/paperdock/paperdock/internal/models"
	"codeberg.org/paperdock/paperdock/internal/repository"
	authsvc "codeberg.org/paperdock/paperdock/internal/services/auth"
	"codeberg.org/paperdock/paperdock/internal/services/email"
	"codeberg.org/paperdock/paperdock/internal/services/recovery"
	"codeberg.org/paperdock/paperdock/internal/services/session"
	"codeberg.org/paperdock/paperdock/internal/services/token"
	"codeberg.org/paperdock/paperdock/internal/services/totp"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Repository and services
	repo := repository.New(db)
	auths := authsvc.NewService(repo)
	totps := totp.NewService(cfg.Auth.TotpIssuer)
	tokens := token.NewService(repo)
	bus := events.NewBus()
	recoveries := recovery.NewService(repo, auths, bus)

	sessions, err := session.NewManager(&cfg.Session, cfg.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	// Mail notifications
	if cfg.SMTP.Host != "" {
		mailer, mailErr := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
		if mailErr != nil {
			return fmt.Errorf("failed to create email service: %w", mailErr)
		}
		mailer.Subscribe(bus)
	} else {
		slog.Info("SMTP not configured, mail notifications disabled")
	}

	// Built-in accounts
	if seedErr := seedUsers(ctx, auths, cfg); seedErr != nil {
		return fmt.Errorf("failed to seed built-in users: %w", seedErr)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	e.Use(mw.LoadUser(sessions, tokens, repo))

	setupRoutes(e, handlers.New(cfg, repo, auths, totps, tokens, recoveries, sessions))

	return startWithGracefulShutdown(e, cfg)
}

// seedUsers creates the admin and guest accounts on first start. The guest
// password is random, so the account is only reachable through guest login.
func seedUsers(ctx context.Context, auths *authsvc.Service, cfg *config.Config) error {
	admin := &models.User{
		Username: "admin",
		Email:    "admin@localhost",
	}
	if err := auths.EnsureUser(ctx, admin, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	guest := &models.User{
		Username: models.GuestUsername,
		Email:    "guest@localhost",
	}
	return auths.EnsureUser(ctx, guest, uuid.NewString())
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers) {
	e.GET("/health", h.Health)

	user := e.Group("/api/user")
	user.POST("/login", h.Login)
	user.POST("/logout", h.Logout, mw.RequireAuth)
	user.GET("", h.Info)
	user.GET("/session", h.Sessions, mw.RequireAuth)
	user.DELETE("/session", h.DeleteSessions, mw.RequireAuth, mw.RequireNotGuest)
	user.POST("/enable_totp", h.EnableTotp, mw.RequireAuth, mw.RequireNotGuest)
	user.POST("/disable_totp", h.DisableTotp, mw.RequireAuth, mw.RequireNotGuest)
	user.POST("/test_totp", h.TestTotp, mw.RequireAuth, mw.RequireNotGuest)
	user.POST("/password_lost", h.PasswordLost)
	user.POST("/password_reset", h.PasswordReset)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP challenge/redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP to HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
