package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// NewOpaqueToken returns 256 random bits, base64url encoded.
func NewOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the at-rest form of session ids and reset tokens.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewResetToken returns a password reset token and the instant it stops being valid.
func NewResetToken(now time.Time, ttl time.Duration) (string, time.Time, error) {
	tok, err := NewOpaqueToken()
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, now.Add(ttl).UTC(), nil
}
