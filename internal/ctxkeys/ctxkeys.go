// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package ctxkeys defines typed context keys used across packages.
package ctxkeys

// User is the context key for the authenticated user.
type User struct{}

// Token is the context key for the session token backing the current request.
type Token struct{}
