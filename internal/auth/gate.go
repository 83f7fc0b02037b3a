package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tazhibayda/identity-service/internal/domain"
)

const (
	SourceSession = "session"
	SourceBearer  = "bearer"
)

// Principal is the identity attached to a request.
type Principal struct {
	User   *domain.User
	Source string

	// session presented with the request, whatever the source
	SessionID string

	// set when resolved from a bearer token
	TokenID      string
	TokenExpires time.Time
}

func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID.Hex()
}

// ResolvePrincipal turns a session id and/or bearer token into a Principal.
// A valid bearer token wins; an invalid, expired or revoked one falls back to
// the session. When both resolve to the same user the principal carries both,
// so Logout ends the session and revokes the token. Only store failures are
// errors.
func (s *Service) ResolvePrincipal(ctx context.Context, sessionID, bearer string) (*Principal, error) {
	var fromTok *Principal
	if bearer != "" {
		p, err := s.fromBearer(ctx, bearer)
		if err != nil {
			return nil, err
		}
		fromTok = p
	}
	if sessionID == "" {
		return fromTok, nil
	}

	fromSess, err := s.fromSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case fromTok == nil:
		return fromSess, nil
	case fromSess != nil && fromSess.UserID() == fromTok.UserID():
		fromTok.SessionID = sessionID
	}
	return fromTok, nil
}

func (s *Service) fromBearer(ctx context.Context, bearer string) (*Principal, error) {
	claims, err := s.issuer.Parse(bearer)
	if err != nil {
		return nil, nil
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, s.storeErr(ctx, "check revocation", err)
		}
		if revoked {
			return nil, nil
		}
	}
	u, err := s.store.FindByID(ctx, claims.UID)
	if err != nil {
		return nil, s.storeErr(ctx, "find user by id", err)
	}
	if u == nil {
		return nil, nil
	}
	p := &Principal{User: u, Source: SourceBearer, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		p.TokenExpires = claims.ExpiresAt.Time
	}
	return p, nil
}

func (s *Service) fromSession(ctx context.Context, sid string) (*Principal, error) {
	uid, err := s.sessions.Lookup(ctx, sid)
	if err != nil {
		return nil, s.storeErr(ctx, "lookup session", err)
	}
	if uid == "" {
		return nil, nil
	}
	u, err := s.store.FindByID(ctx, uid)
	if err != nil {
		return nil, s.storeErr(ctx, "find user by id", err)
	}
	if u == nil {
		return nil, nil
	}
	return &Principal{User: u, Source: SourceSession, SessionID: sid}, nil
}

// Decision is the outcome of a gate check. Redirect or status handling is
// left to the transport.
type Decision struct {
	Allowed  bool
	Kind     domain.Kind
	Reason   string
	Provider string
	// where the client can re-run the provider's OAuth flow
	ReauthPath string
}

func CheckAuthenticated(p *Principal) Decision {
	if p == nil || p.User == nil {
		return Decision{Kind: domain.KindUnauthenticated, Reason: "login required"}
	}
	return Decision{Allowed: true}
}

func CheckProvider(p *Principal, provider string) Decision {
	if d := CheckAuthenticated(p); !d.Allowed {
		return d
	}
	provider = strings.ToLower(provider)
	if tok, ok := p.User.ProviderTokens()[provider]; ok && tok != "" {
		return Decision{Allowed: true, Provider: provider}
	}
	return Reauthorize(provider)
}

// Reauthorize is the denial for a missing or rejected provider token.
func Reauthorize(provider string) Decision {
	return Decision{
		Kind:       domain.KindProviderUnauthorized,
		Reason:     fmt.Sprintf("needs re-authorization for provider %s", provider),
		Provider:   provider,
		ReauthPath: "/auth/" + provider,
	}
}

// ProviderFromPath returns the last non-empty segment of a request path.
func ProviderFromPath(path string) string {
	parts := strings.Split(strings.TrimRight(path, "/"), "/")
	return parts[len(parts)-1]
}
