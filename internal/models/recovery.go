// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package models

import "time"

// RecoveryKey is a single-use, time-limited credential allowing a password
// reset without the old password. Keys are bound to a username, consumed on a
// successful reset and invalid once older than the recovery TTL.
type RecoveryKey struct { //nolint:govet // fieldalignment: readability over optimization
	Key       string    `db:"key" json:"-"`
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
