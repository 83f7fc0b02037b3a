package oauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// State signs and checks the OAuth state parameter (CSRF protection).
type State struct {
	key []byte
}

func NewState(secret string) *State {
	return &State{key: []byte(secret)}
}

// Make returns raw.signature.
func (s *State) Make(raw string) string {
	return raw + "." + base64.RawURLEncoding.EncodeToString(s.sign(raw))
}

// Verify checks the signature and returns the raw part.
func (s *State) Verify(got string) (string, bool) {
	i := strings.LastIndexByte(got, '.')
	if i <= 0 {
		return "", false
	}
	raw := got[:i]
	sig, err := base64.RawURLEncoding.DecodeString(got[i+1:])
	if err != nil {
		return "", false
	}
	if !hmac.Equal(s.sign(raw), sig) {
		return "", false
	}
	return raw, true
}

func (s *State) sign(raw string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(raw))
	return mac.Sum(nil)
}
