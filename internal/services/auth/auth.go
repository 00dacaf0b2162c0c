// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package auth verifies username/password credentials and owns password
// updates. Policy decisions such as guest login or second-factor gating live
// with the callers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/paperdock/paperdock/internal/models"
	"codeberg.org/paperdock/paperdock/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a bad username/password pair. The
// caller must not reveal which of the two was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is compared against when the username does not resolve, so a
// failed lookup costs the same as a failed password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Service is the credential verifier.
type Service struct {
	repo              *repository.Repository
	passwordValidator *PasswordValidator
}

// NewService creates a credential verifier over the given repository.
func NewService(repo *repository.Repository) *Service {
	return &Service{
		repo:              repo,
		passwordValidator: DefaultPasswordValidator(),
	}
}

// Verify checks a username/password pair against the stored hash and returns
// the resolved user on match. Disabled users never resolve.
func (s *Service) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.GetActiveUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "username", username, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "username", username, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ResolveGuest returns the guest account when it exists and is enabled.
// No password check is performed; the global guest-login toggle is the
// caller's responsibility.
func (s *Service) ResolveGuest(ctx context.Context) (*models.User, error) {
	user, err := s.repo.GetActiveUserByUsername(ctx, models.GuestUsername)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get guest user: %w", err)
	}
	return user, nil
}

// UpdatePassword validates and replaces the stored hash for a user. TOTP
// state is untouched.
func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	validation := s.passwordValidator.Validate(newPassword)
	if !validation.Valid {
		return &PasswordValidationError{Errors: validation.Errors}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password_updated", "user_id", userID)
	return nil
}

// PasswordValidator returns the validator for use at the HTTP boundary.
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// EnsureUser creates a user when the username is free. Used at startup to
// seed the admin and the disabled guest account.
func (s *Service) EnsureUser(ctx context.Context, user *models.User, password string) error {
	exists, err := s.repo.UserExists(ctx, user.Username)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user_seeded", "username", user.Username)
	return nil
}
