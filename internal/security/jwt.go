package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies bearer tokens. With a KeyManager it signs RS256
// and sets the kid header; otherwise it signs HS256 with the shared secret.
type Issuer struct {
	secret []byte
	keys   *KeyManager
	ttl    time.Duration
	now    func() time.Time
}

func NewHS256Issuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func NewRS256Issuer(km *KeyManager, ttl time.Duration) *Issuer {
	return &Issuer{keys: km, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

func (i *Issuer) Keys() *KeyManager { return i.keys }

func (i *Issuer) Issue(uid, email string) (string, *Claims, error) {
	now := i.now()
	c := &Claims{
		UID: uid, Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			Subject:   uid,
		},
	}
	if i.keys != nil {
		k := i.keys.Active()
		t := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
		t.Header["kid"] = k.Kid
		s, err := t.SignedString(k.Private)
		return s, c, err
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	return s, c, err
}

func (i *Issuer) Parse(token string) (*Claims, error) {
	methods := []string{jwt.SigningMethodHS256.Alg()}
	if i.keys != nil {
		methods = []string{jwt.SigningMethodRS256.Alg()}
	}
	parser := jwt.NewParser(jwt.WithValidMethods(methods), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	t, err := parser.ParseWithClaims(token, &Claims{}, i.keyFunc)
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func (i *Issuer) keyFunc(t *jwt.Token) (interface{}, error) {
	if i.keys == nil {
		return i.secret, nil
	}
	kid, _ := t.Header["kid"].(string)
	if pk, ok := i.keys.Verifier(kid); ok {
		return pk, nil
	}
	return nil, errors.New("no key by kid")
}
