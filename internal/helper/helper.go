// Package helper holds small formatting utilities shared by the transport
// layer.
package helper

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EmailTag is a short stable tag for an email address. Logs carry it instead
// of the address so repeated attempts on one account can be correlated.
func EmailTag(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:8])
}
