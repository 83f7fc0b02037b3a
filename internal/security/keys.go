package security

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// MinRSABits is the smallest modulus accepted for a signing key.
const MinRSABits = 2048

var ErrNoNextKey = errors.New("no next signing key configured")

type SigningKey struct {
	Kid     string
	Private *rsa.PrivateKey
}

func (k *SigningKey) Public() *rsa.PublicKey { return &k.Private.PublicKey }

// KeyManager owns the RS256 signing keys. Tokens are signed with the active
// key. The next key is published ahead of Rotate; the key Rotate replaces
// stays verify-only and published.
type KeyManager struct {
	mu      sync.RWMutex
	active  *SigningKey
	next    *SigningKey
	retired *SigningKey
}

// ParsePrivateKeyPEM accepts PKCS#1 and PKCS#8 RSA keys of at least MinRSABits.
func ParsePrivateKeyPEM(b []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(b)
	if err != nil {
		return nil, err
	}
	if bits := key.N.BitLen(); bits < MinRSABits {
		return nil, fmt.Errorf("rsa key is %d bits, need at least %d", bits, MinRSABits)
	}
	return key, nil
}

func LoadPrivateKeyPEM(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	k, err := ParsePrivateKeyPEM(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return k, nil
}

// NewKeyManager loads the active key and, when nextPath is set, the next key.
// An empty kid defaults to the key's RFC 7638 thumbprint.
func NewKeyManager(activeKid, activePath, nextKid, nextPath string) (*KeyManager, error) {
	priv, err := LoadPrivateKeyPEM(activePath)
	if err != nil {
		return nil, err
	}
	active := &SigningKey{Kid: activeKid, Private: priv}

	var next *SigningKey
	if nextPath != "" {
		p, err := LoadPrivateKeyPEM(nextPath)
		if err != nil {
			return nil, err
		}
		next = &SigningKey{Kid: nextKid, Private: p}
	}
	return NewKeyManagerFromKeys(active, next)
}

func NewKeyManagerFromKeys(active, next *SigningKey) (*KeyManager, error) {
	if active == nil || active.Private == nil {
		return nil, errors.New("active signing key required")
	}
	for _, k := range []*SigningKey{active, next} {
		if k == nil {
			continue
		}
		if bits := k.Private.N.BitLen(); bits < MinRSABits {
			return nil, fmt.Errorf("rsa key is %d bits, need at least %d", bits, MinRSABits)
		}
		if k.Kid == "" {
			k.Kid = Thumbprint(k.Public())
		}
	}
	if next != nil && next.Kid == active.Kid {
		return nil, fmt.Errorf("active and next keys share kid %q", active.Kid)
	}
	return &KeyManager{active: active, next: next}, nil
}

// Active returns the key new tokens are signed with.
func (km *KeyManager) Active() *SigningKey {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.active
}

// Rotate promotes the next key to active and returns its kid.
func (km *KeyManager) Rotate() (string, error) {
	km.mu.Lock()
	defer km.mu.Unlock()
	if km.next == nil {
		return "", ErrNoNextKey
	}
	km.retired, km.active, km.next = km.active, km.next, nil
	return km.active.Kid, nil
}

// Verifier returns the public key for kid among the active, next and retired keys.
func (km *KeyManager) Verifier(kid string) (*rsa.PublicKey, bool) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	for _, k := range []*SigningKey{km.active, km.next, km.retired} {
		if k != nil && k.Kid == kid {
			return k.Public(), true
		}
	}
	return nil, false
}

type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKSet struct {
	Keys []JWK `json:"keys"`
}

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func exponent(pk *rsa.PublicKey) string { return b64(big.NewInt(int64(pk.E)).Bytes()) }

// Thumbprint is the RFC 7638 SHA-256 thumbprint of an RSA public key.
func Thumbprint(pk *rsa.PublicKey) string {
	canon := fmt.Sprintf(`{"e":"%s","kty":"RSA","n":"%s"}`, exponent(pk), b64(pk.N.Bytes()))
	sum := sha256.Sum256([]byte(canon))
	return b64(sum[:])
}

// JWKS lists every key a token in circulation may carry: active first, then
// next, then retired.
func (km *KeyManager) JWKS() JWKSet {
	km.mu.RLock()
	defer km.mu.RUnlock()
	set := JWKSet{Keys: []JWK{}}
	for _, k := range []*SigningKey{km.active, km.next, km.retired} {
		if k == nil {
			continue
		}
		pk := k.Public()
		set.Keys = append(set.Keys, JWK{Kty: "RSA", Kid: k.Kid, Use: "sig", Alg: "RS256", N: b64(pk.N.Bytes()), E: exponent(pk)})
	}
	return set
}
