// Package oauth runs the Facebook login handshake and talks to the Graph API.
package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/tazhibayda/identity-service/internal/auth"
)

type Facebook struct {
	cfg   *oauth2.Config
	state *State
	graph *Graph
}

type Option func(*Facebook)

// WithEndpoint overrides the authorize/token endpoints.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(f *Facebook) { f.cfg.Endpoint = e }
}

func NewFacebook(clientID, clientSecret, redirectURL, stateSecret string, graph *Graph, opts ...Option) *Facebook {
	f := &Facebook{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "user_photos"},
			Endpoint:     facebook.Endpoint,
		},
		state: NewState(stateSecret),
		graph: graph,
	}
	if f.graph == nil {
		f.graph = NewGraph("")
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Facebook) Graph() *Graph { return f.graph }

func (f *Facebook) MakeState(raw string) string { return f.state.Make(raw) }

func (f *Facebook) VerifyState(got string) (string, bool) { return f.state.Verify(got) }

func (f *Facebook) AuthURL(state string) string {
	return f.cfg.AuthCodeURL(state)
}

// Exchange trades the callback code for an access token and loads the
// profile behind it.
func (f *Facebook) Exchange(ctx context.Context, code string) (auth.OAuthProfile, string, error) {
	tok, err := f.cfg.Exchange(ctx, code)
	if err != nil {
		return auth.OAuthProfile{}, "", fmt.Errorf("exchange code: %w", err)
	}
	p, err := f.graph.Me(ctx, tok.AccessToken)
	if err != nil {
		return auth.OAuthProfile{}, "", err
	}
	return p, tok.AccessToken, nil
}
