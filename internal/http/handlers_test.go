package http_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/tazhibayda/identity-service/internal/http"
	"github.com/tazhibayda/identity-service/internal/repo/memory"
)

func signup(t *testing.T, env *testEnv, email, password string) envelope {
	t.Helper()
	w := env.do(t, call{method: "POST", path: "/api/signup", body: `{"email":"` + email + `","password":"` + password + `"}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func Test_Signup_Login_Scenario(t *testing.T) {
	env := newTestEnv(t)

	// 1) SIGNUP
	w := env.do(t, call{method: "POST", path: "/api/signup", body: `{"email":"a@x.com","password":"secret"}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Nil(t, res.Error)
	require.NotNil(t, res.User)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.NotNil(t, cookie(w, "sid"))

	// 2) DUPLICATE
	w = env.do(t, call{method: "POST", path: "/api/signup", body: `{"email":"a@x.com","password":"other"}`})
	assert.Equal(t, http.StatusConflict, w.Code)
	res = decode(t, w)
	require.NotNil(t, res.Error)
	assert.Equal(t, "DuplicateAccount", *res.Error)
	assert.Nil(t, res.User)
	assert.Nil(t, res.Token)

	// 3) WRONG PASSWORD
	w = env.do(t, call{method: "POST", path: "/api/login", body: `{"email":"a@x.com","password":"wrong"}`})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	res = decode(t, w)
	require.NotNil(t, res.Error)
	assert.Equal(t, "InvalidCredentials", *res.Error)

	// 4) LOGIN
	w = env.do(t, call{method: "POST", path: "/api/login", body: `{"email":"a@x.com","password":"secret"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = decode(t, w)
	require.NotNil(t, res.Token)
	assert.NotEmpty(t, *res.Token)
	assert.Equal(t, 1, env.Users.Len())
}

func Test_Login_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, call{method: "POST", path: "/api/login", body: `{"email":"ghost@x.com","password":"secret"}`})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UserNotFound", *decode(t, w).Error)
}

func Test_Signup_Validation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name, body, kind string
	}{
		{"bad email", `{"email":"nope","password":"secret"}`, "ValidationError"},
		{"short password", `{"email":"a@x.com","password":"abc"}`, "ValidationError"},
		{"missing password", `{"email":"a@x.com"}`, "ValidationError"},
		{"malformed", `{"email":`, "ValidationError"},
		{"mismatch", `{"email":"a@x.com","password":"secret","confirmPassword":"secreT"}`, "PasswordMismatch"},
		{"mismatch legacy field", `{"email":"a@x.com","password":"secret","confirmation_password":"secreT"}`, "PasswordMismatch"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := env.do(t, call{method: "POST", path: "/api/signup", body: c.body})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			res := decode(t, w)
			require.NotNil(t, res.Error)
			assert.Equal(t, c.kind, *res.Error)
			assert.NotEmpty(t, res.Message)
		})
	}
	assert.Zero(t, env.Users.Len())
}

func Test_Me_BearerAndSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, call{method: "POST", path: "/api/signup", body: `{"email":"a@x.com","password":"secret"}`})
	require.Equal(t, http.StatusCreated, w.Code)
	res := decode(t, w)
	sid := cookie(w, "sid")
	require.NotNil(t, sid)

	w = env.do(t, call{method: "GET", path: "/api/me", bearer: *res.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, res.User.ID, decode(t, w).User.ID)

	w = env.do(t, call{method: "GET", path: "/api/me", cookies: []*http.Cookie{sid}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "a@x.com", decode(t, w).User.Email)

	w = env.do(t, call{method: "GET", path: "/api/me"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	anon := decode(t, w)
	assert.Equal(t, "Unauthenticated", *anon.Error)
	assert.Nil(t, anon.User)
	assert.Nil(t, anon.Token)

	w = env.do(t, call{method: "GET", path: "/api/me", bearer: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_Logout_RevokesToken(t *testing.T) {
	env := newTestEnv(t)
	res := signup(t, env, "a@x.com", "secret")

	w := env.do(t, call{method: "POST", path: "/api/logout", bearer: *res.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, call{method: "GET", path: "/api/me", bearer: *res.Token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// anonymous logout is harmless
	w = env.do(t, call{method: "GET", path: "/api/logout"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_SessionWithStaleBearer(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, call{method: "POST", path: "/api/signup", body: `{"email":"a@x.com","password":"secret"}`})
	require.Equal(t, http.StatusCreated, w.Code)
	res := decode(t, w)
	sid := cookie(w, "sid")
	require.NotNil(t, sid)

	w = env.do(t, call{method: "GET", path: "/api/me", bearer: "stale.garbage.token", cookies: []*http.Cookie{sid}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, res.User.ID, decode(t, w).User.ID)

	w = env.do(t, call{method: "POST", path: "/api/logout", bearer: *res.Token, cookies: []*http.Cookie{sid}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, call{method: "GET", path: "/api/me", cookies: []*http.Cookie{sid}})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "session must not outlive logout")
	w = env.do(t, call{method: "GET", path: "/api/me", bearer: *res.Token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_ProviderGate(t *testing.T) {
	env := newTestEnv(t)
	res := signup(t, env, "a@x.com", "secret")

	w := env.do(t, call{method: "GET", path: "/api/facebook", bearer: *res.Token})
	assert.Equal(t, http.StatusForbidden, w.Code)
	denied := decode(t, w)
	require.NotNil(t, denied.Error)
	assert.Equal(t, "ProviderUnauthorized", *denied.Error)
	assert.Equal(t, "needs re-authorization for provider facebook", denied.Message)
	assert.Equal(t, "/auth/facebook", denied.Reauth)

	w = env.do(t, call{method: "GET", path: "/api/albums/" + res.User.ID, bearer: *res.Token})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, call{method: "GET", path: "/api/facebook"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// facebookLogin walks /auth/facebook and its callback.
func facebookLogin(t *testing.T, env *testEnv, code string) *http.Response {
	t.Helper()
	w := env.do(t, call{method: "GET", path: "/auth/facebook"})
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	st := cookie(w, "oauth_state")
	require.NotNil(t, st)

	q := url.Values{"code": {code}, "state": {state}}
	w = env.do(t, call{method: "GET", path: "/auth/facebook/callback?" + q.Encode(), cookies: []*http.Cookie{st}})
	return w.Result()
}

func Test_FacebookLink_Flow(t *testing.T) {
	env := newTestEnv(t)
	local := signup(t, env, "ann@x.com", "secret")

	resp := facebookLogin(t, env, "good-code")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var linked envelope
	require.NoError(t, decodeBody(resp, &linked))
	require.NotNil(t, linked.User)
	assert.Equal(t, local.User.ID, linked.User.ID)
	assert.Equal(t, "1001", linked.User.Facebook)
	assert.True(t, linked.User.Linked)
	require.NotNil(t, linked.Token)

	w := env.do(t, call{method: "GET", path: "/api/facebook", bearer: *linked.Token})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, call{method: "GET", path: "/api/albums/" + local.User.ID, bearer: *linked.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"data":[{"id":"a1","name":"Trip"}]}`, w.Body.String())

	w = env.do(t, call{method: "GET", path: "/api/album/" + local.User.ID + "/a1", bearer: *linked.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"data":[{"id":"p1"}]}`, w.Body.String())

	// another user's id is refused, even for a linked caller
	other := signup(t, env, "bob@x.com", "secret")
	for _, path := range []string{
		"/api/albums/" + other.User.ID,
		"/api/album/" + other.User.ID + "/a1",
		"/api/photo/" + other.User.ID + "/p1",
	} {
		w = env.do(t, call{method: "GET", path: path, bearer: *linked.Token})
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		assert.Equal(t, "Forbidden", *decode(t, w).Error)
	}

	// the local password still works after linking
	w = env.do(t, call{method: "POST", path: "/api/login", body: `{"email":"ann@x.com","password":"secret"}`})
	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_FacebookLink_NoLocalAccount(t *testing.T) {
	env := newTestEnv(t)

	resp := facebookLogin(t, env, "good-code")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var res envelope
	require.NoError(t, decodeBody(resp, &res))
	assert.Equal(t, "AccountNotFound", *res.Error)
	assert.Zero(t, env.Users.Len())
}

func Test_FacebookCallback_BadState(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, call{method: "GET", path: "/auth/facebook/callback?code=good-code&state=forged.sig"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := facebookLogin(t, env, "bad-code")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func Test_PasswordReset_Flow(t *testing.T) {
	env := newTestEnv(t)
	signup(t, env, "a@x.com", "secret")

	w := env.do(t, call{method: "POST", path: "/api/forgot", body: `{"email":"a@x.com"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w).Message, "a@x.com")
	token := env.Events.resetToken(t)

	w = env.do(t, call{method: "POST", path: "/api/reset/" + token, body: `{"password":"newsecret","confirm":"newsecret"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotNil(t, decode(t, w).Token)

	w = env.do(t, call{method: "POST", path: "/api/reset/" + token, body: `{"password":"again1"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ResetTokenInvalid", *decode(t, w).Error)

	w = env.do(t, call{method: "POST", path: "/api/login", body: `{"email":"a@x.com","password":"newsecret"}`})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, call{method: "POST", path: "/api/forgot", body: `{"email":"ghost@x.com"}`})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	res := signup(t, env, "a@x.com", "secret")

	w := env.do(t, call{method: "POST", path: "/api/account/password", body: `{"password":"fresh1","confirm":"fresh1"}`})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, call{method: "POST", path: "/api/account/password", bearer: *res.Token, body: `{"password":"fresh1","confirm":"fresh1"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, call{method: "POST", path: "/api/login", body: `{"email":"a@x.com","password":"fresh1"}`})
	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_Users(t *testing.T) {
	env := newTestEnv(t)
	a := signup(t, env, "a@x.com", "secret")
	signup(t, env, "b@x.com", "secret")

	w := env.do(t, call{method: "GET", path: "/api/users?limit=1", bearer: *a.Token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"users"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(t, call{method: "GET", path: "/api/user/" + a.User.ID, bearer: *a.Token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@x.com", decode(t, w).User.Email)

	w = env.do(t, call{method: "GET", path: "/api/user/000000000000000000000000", bearer: *a.Token})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_RateLimit(t *testing.T) {
	env := newTestEnv(t, func(o *envOpts) { o.limiter = memory.NewRateLimiter(2, time.Minute) })

	body := `{"email":"a@x.com","password":"secret"}`
	for i := 0; i < 2; i++ {
		w := env.do(t, call{method: "POST", path: "/api/login", body: body})
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	w := env.do(t, call{method: "POST", path: "/api/login", body: body})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RateLimited", *decode(t, w).Error)
}

func Test_Ops(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, call{method: "GET", path: "/healthz"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = env.do(t, call{method: "GET", path: "/.well-known/jwks.json"})
	assert.Equal(t, http.StatusNotFound, w.Code, "HS256 mode publishes no keys")
}

var _ api.Limiter = (*memory.RateLimiter)(nil)
