// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package models

import "time"

// Field limits applied when recording client metadata on a token.
const (
	TokenIPMaxLen        = 45
	TokenUserAgentMaxLen = 1000
)

// SessionToken is a bearer credential proving an authenticated session. The
// token value doubles as identifier and secret, so it is generated from
// crypto/rand with at least 128 bits of entropy and only ever looked up by
// exact value.
type SessionToken struct { //nolint:govet // fieldalignment: readability over optimization
	Token      string     `db:"token" json:"-"`
	UserID     string     `db:"user_id" json:"user_id"`
	LongLived  bool       `db:"long_lived" json:"long_lived"`
	IP         string     `db:"ip" json:"ip"`
	UserAgent  string     `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}
