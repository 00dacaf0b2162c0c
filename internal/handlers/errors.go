// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// clientError is the JSON envelope for all API errors.
type clientError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func jsonError(c echo.Context, status int, errType, message string) error {
	return c.JSON(status, clientError{Type: errType, Message: message})
}

// Forbidden responds with a 403 ForbiddenError.
func Forbidden(c echo.Context, message string) error {
	return jsonError(c, http.StatusForbidden, "ForbiddenError", message)
}

// ValidationError responds with a 400 ValidationError.
func ValidationError(c echo.Context, message string) error {
	return jsonError(c, http.StatusBadRequest, "ValidationError", message)
}

// ValidationCodeRequired tells the client that a second factor is needed
// to complete the login.
func ValidationCodeRequired(c echo.Context) error {
	return jsonError(c, http.StatusBadRequest, "ValidationCodeRequired", "An OTP validation code is required")
}

// KeyNotFound responds with a 400 KeyNotFound for unknown or expired
// password recovery keys.
func KeyNotFound(c echo.Context) error {
	return jsonError(c, http.StatusBadRequest, "KeyNotFound", "Password recovery key not found")
}

// ServerError responds with a 500 ServerError without leaking details.
func ServerError(c echo.Context) error {
	return jsonError(c, http.StatusInternalServerError, "ServerError", "An internal error occurred")
}
