package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/tazhibayda/identity-service/internal/auth"
	"github.com/tazhibayda/identity-service/internal/domain"
	api "github.com/tazhibayda/identity-service/internal/http"
	"github.com/tazhibayda/identity-service/internal/oauth"
	"github.com/tazhibayda/identity-service/internal/queue"
	"github.com/tazhibayda/identity-service/internal/repo/memory"
	"github.com/tazhibayda/identity-service/internal/security"
)

type captured struct {
	key   string
	event any
}

type capturePub struct{ ch chan captured }

func (p *capturePub) Publish(_ context.Context, _, key string, event any) error {
	p.ch <- captured{key, event}
	return nil
}
func (p *capturePub) Close() error { return nil }

// resetToken waits for the password reset event and returns its token.
func (p *capturePub) resetToken(t *testing.T) string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-p.ch:
			if ev, ok := c.event.(queue.PasswordResetRequested); ok {
				return ev.Token
			}
		case <-deadline:
			t.Fatal("no password reset event")
		}
	}
}

type testEnv struct {
	Router *gin.Engine
	Users  *memory.Users
	Events *capturePub
	FB     *httptest.Server
}

type envOpts struct {
	limiter api.Limiter
}

func newTestEnv(t *testing.T, opts ...func(*envOpts)) *testEnv {
	t.Helper()
	o := envOpts{}
	for _, f := range opts {
		f(&o)
	}
	fbSrv := fakeFacebook(t)
	graph := oauth.NewGraph(fbSrv.URL)
	fb := oauth.NewFacebook("app", "secret", "http://localhost/auth/facebook/callback", "state-key", graph,
		oauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:   fbSrv.URL + "/dialog/oauth",
			TokenURL:  fbSrv.URL + "/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		}))

	users := memory.NewUsers()
	pub := &capturePub{ch: make(chan captured, 64)}
	svc := auth.NewService(auth.Deps{
		Store:    users,
		Sessions: memory.NewSessions(),
		Revoked:  memory.NewDenylist(),
		Hasher:   security.NewHasher(bcrypt.MinCost, 4),
		Issuer:   security.NewHS256Issuer("test-secret", time.Hour),
		Events:   pub,
		Logger:   zap.NewNop(),
	})

	gin.SetMode(gin.TestMode)
	h := &api.Handler{
		Auth:     svc,
		Facebook: fb,
		Graph:    graph,
		Cookie:   api.CookieConfig{Name: "sid", TTL: time.Hour},
		Log:      zap.NewNop(),
		Checks:   map[string]func(context.Context) error{"store": func(context.Context) error { return nil }},
	}
	return &testEnv{Router: api.NewRouter(h, o.limiter), Users: users, Events: pub, FB: fbSrv}
}

type envelope struct {
	Error   *string          `json:"error"`
	Message string           `json:"message"`
	User    *domain.UserView `json:"user"`
	Token   *string          `json:"token"`
	Reauth  string           `json:"reauth"`
}

type call struct {
	method, path, body string
	bearer             string
	cookies            []*http.Cookie
}

func (e *testEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if c.body != "" {
		req = httptest.NewRequest(c.method, c.path, bytes.NewBufferString(c.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(c.method, c.path, nil)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body=%s", w.Body.String())
	return env
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

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
		_, _ = w.Write([]byte(`{"access_token":"fb-access","token_type":"bearer"}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fb-access" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","code":190}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"1001","email":"ann@x.com","first_name":"Ann","last_name":"Lee"}`))
	})
	mux.HandleFunc("/1001/albums", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"a1","name":"Trip"}]}`))
	})
	mux.HandleFunc("/a1/photos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"p1"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(resp *http.Response, out any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}
