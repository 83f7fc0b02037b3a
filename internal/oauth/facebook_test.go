package oauth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tazhibayda/identity-service/internal/oauth"
)

func fakeFacebook(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fb-access","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fb-access" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "1001", "email": "ann@x.com", "first_name": "Ann", "last_name": "Lee", "gender": "female",
			"picture": map[string]any{"data": map[string]any{"url": "https://cdn/ann.jpg"}},
		})
	})
	mux.HandleFunc("/1001/albums", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"a1","name":"Trip"}]}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","code":1}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFacebook(srv *httptest.Server) *oauth.Facebook {
	return oauth.NewFacebook("app", "secret", "http://localhost/auth/facebook/callback", "state-key",
		oauth.NewGraph(srv.URL),
		oauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:   srv.URL + "/dialog/oauth",
			TokenURL:  srv.URL + "/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
	)
}

func TestFacebook_Exchange(t *testing.T) {
	fb := newFacebook(fakeFacebook(t))

	p, tok, err := fb.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "fb-access", tok)
	assert.Equal(t, "1001", p.ProviderID)
	assert.Equal(t, "ann@x.com", p.Email)
	assert.Equal(t, "Ann", p.FirstName)
	assert.Equal(t, "https://cdn/ann.jpg", p.AvatarURL)

	_, _, err = fb.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestFacebook_AuthURL(t *testing.T) {
	fb := newFacebook(fakeFacebook(t))
	u, err := url.Parse(fb.AuthURL(fb.MakeState("nonce")))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "app", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "email")
	raw, ok := fb.VerifyState(q.Get("state"))
	assert.True(t, ok)
	assert.Equal(t, "nonce", raw)
}

func TestState(t *testing.T) {
	s := oauth.NewState("k1")
	signed := s.Make("abc")

	raw, ok := s.Verify(signed)
	assert.True(t, ok)
	assert.Equal(t, "abc", raw)

	_, ok = oauth.NewState("k2").Verify(signed)
	assert.False(t, ok)
	_, ok = s.Verify("abc")
	assert.False(t, ok)
	_, ok = s.Verify(strings.Replace(signed, "abc", "abd", 1))
	assert.False(t, ok)
}

func TestGraph(t *testing.T) {
	srv := fakeFacebook(t)
	g := oauth.NewGraph(srv.URL)
	ctx := context.Background()

	body, err := g.Albums(ctx, "fb-access", "1001")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"id":"a1","name":"Trip"}]}`, string(body))

	_, err = g.Me(ctx, "stale")
	assert.ErrorIs(t, err, oauth.ErrTokenRejected)

	_, err = g.Raw(ctx, "fb-access", "broken", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, oauth.ErrTokenRejected)
}
