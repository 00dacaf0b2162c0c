// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package totp implements the RFC 6238 time-based one-time password
// algorithm used as the optional second authentication factor.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // RFC 6238 interoperability with authenticator apps
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// Period is the code validity window in seconds.
	Period = 30
	// Digits is the length of a generated code.
	Digits = 6
	// Skew is the tolerance in time steps on either side of now.
	Skew = 1
	// secretBytes is the raw secret size, 160 bits.
	secretBytes = 20
)

// Service generates and validates time-based one-time codes.
type Service struct {
	issuer string
}

// NewService creates a TOTP service. The issuer appears in provisioning URIs
// scanned by authenticator apps.
func NewService(issuer string) *Service {
	return &Service{issuer: issuer}
}

// GenerateSecret returns a fresh base32-encoded secret for enrollment. The
// caller shows it to the user once and persists it against the account.
func (s *Service) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate totp secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth:// string for the given secret and account.
func (s *Service) ProvisionURI(secret, account string) string {
	label := url.PathEscape(s.issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", s.issuer)
	v.Set("period", fmt.Sprint(Period))
	v.Set("digits", fmt.Sprint(Digits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify checks a submitted code against the secret for the current time
// step and a tolerance of ±Skew steps. It returns whether the code matched
// and the matched counter, which the caller records to reject replays.
func (s *Service) Verify(secret, code string, now time.Time) (bool, int64, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != Digits || !isNumeric(trimmed) {
		return false, 0, nil
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return false, 0, err
	}

	base := now.Unix() / Period
	for step := int64(-Skew); step <= Skew; step++ {
		counter := base + step
		if counter < 0 {
			continue
		}
		generated := hotpCode(key, counter)
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, counter, nil
		}
	}

	return false, 0, nil
}

// decodeSecret accepts base32 secrets with or without padding.
func decodeSecret(secret string) ([]byte, error) {
	normalized := strings.ToUpper(strings.TrimRight(secret, "="))
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("malformed totp secret: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty totp secret")
	}
	return key, nil
}

// hotpCode computes the RFC 4226 dynamic-truncation code for one counter.
func hotpCode(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < Digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", Digits, bin%mod)
}

// CodeAt returns the valid code for a secret at a given time. Exported for
// enrollment verification and tests.
func (s *Service) CodeAt(secret string, now time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotpCode(key, now.Unix()/Period), nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
