// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

package models

import "time"

// GuestUsername is the reserved username for the shared guest account.
const GuestUsername = "guest"

// User is a credential record. The password is stored as a bcrypt hash and
// never leaves the auth service as plaintext. A non-nil TotpSecret means the
// second factor is enabled for this account.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID              string     `db:"id" json:"id"`
	Username        string     `db:"username" json:"username"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	TotpSecret      *string    `db:"totp_secret" json:"-"`
	TotpLastCounter int64      `db:"totp_last_counter" json:"-"`
	DisableDate     *time.Time `db:"disable_date" json:"-"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// IsGuest returns true for the shared guest account.
func (u *User) IsGuest() bool {
	return u.Username == GuestUsername
}

// IsDisabled returns true if the account has been disabled.
func (u *User) IsDisabled() bool {
	return u.DisableDate != nil
}

// TotpEnabled returns true if a second factor secret is stored.
func (u *User) TotpEnabled() bool {
	return u.TotpSecret != nil && *u.TotpSecret != ""
}
