package echoweb_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/user"
	"github.com/trezcool/zenacademy/tests"
)

func TestAuthViews_Login(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.Backend, "Awe", "awe@zen.test", "secret", user.RoleUser)
	testutil.CreateIdentity(t, app.Backend, "ghost@zen.test", "secret")

	tests := []struct {
		name     string
		email    string
		password string
		wantCode int
		wantPath string
		wantBody string
	}{
		{name: "missing fields", wantCode: http.StatusBadRequest, wantPath: "/login", wantBody: "Email and password are required"},
		{name: "missing password", email: "awe@zen.test", wantCode: http.StatusBadRequest, wantPath: "/login", wantBody: "Email and password are required"},
		{name: "unknown email", email: "lol@zen.test", password: "secret", wantCode: http.StatusUnauthorized, wantPath: "/login", wantBody: "invalid login credentials"},
		{name: "wrong password", email: "awe@zen.test", password: "lol", wantCode: http.StatusUnauthorized, wantPath: "/login", wantBody: "invalid login credentials"},
		{name: "no profile", email: "ghost@zen.test", password: "secret", wantCode: http.StatusForbidden, wantPath: "/login", wantBody: "user profile not found, please contact an administrator"},
		{name: "success", email: "awe@zen.test", password: "secret", wantCode: http.StatusOK, wantPath: "/learn", wantBody: "Awe"},
		{name: "success, email is case insensitive", email: " AWE@zen.test ", password: "secret", wantCode: http.StatusOK, wantPath: "/learn", wantBody: "awe@zen.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := app.newBrowser(t)
			res := app.post(t, c, "/login", url.Values{"email": {tt.email}, "password": {tt.password}})
			assert.Equal(t, tt.wantCode, res.code)
			assert.Equal(t, tt.wantPath, res.path)
			assert.Contains(t, res.body, tt.wantBody)
		})
	}
}

func TestAuthViews_LoginWithoutProfileSignsOut(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateIdentity(t, app.Backend, "ghost@zen.test", "secret")

	c := app.newBrowser(t)
	app.post(t, c, "/login", url.Values{"email": {"ghost@zen.test"}, "password": {"secret"}})

	assert.Nil(t, app.cookie(c, "zen_token"), "no token kept for a profile-less identity")
	res := app.get(t, c, "/learn")
	assert.Equal(t, "/login", res.path)
}

func TestAuthViews_Logout(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)
	require.NotNil(t, app.cookie(c, "zen_token"))

	require.NotNil(t, app.cookie(c, "zen_client"))
	require.Equal(t, 1, app.sessions.Len())

	res := app.post(t, c, "/logout", nil)
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "/login", res.path)
	assert.Nil(t, app.cookie(c, "zen_token"))
	assert.Nil(t, app.cookie(c, "zen_client"))
	assert.Zero(t, app.sessions.Len())

	res = app.get(t, c, "/learn")
	assert.Equal(t, "/login", res.path)
}

func TestAuthViews_SessionRestoredFromToken(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)
	token := app.cookie(c, "zen_token")
	require.NotNil(t, token)

	// a new browser (e.g. after the server forgot the old one) carrying only the token
	other := app.newBrowser(t)
	u, _ := url.Parse(app.url)
	other.Jar.SetCookies(u, []*http.Cookie{{Name: "zen_token", Value: token.Value, Path: "/"}})

	res := app.get(t, other, "/settings")
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "/settings", res.path)
	assert.Contains(t, res.body, "awe@zen.test")
}

func TestAuthViews_DeadTokenIsDropped(t *testing.T) {
	app := newTestApp(t)

	c := app.newBrowser(t)
	u, _ := url.Parse(app.url)
	c.Jar.SetCookies(u, []*http.Cookie{{Name: "zen_token", Value: "lol", Path: "/"}})

	res := app.get(t, c, "/learn")
	assert.Equal(t, "/login", res.path)
	assert.Nil(t, app.cookie(c, "zen_token"))
}

func TestAuthViews_LoginRateLimit(t *testing.T) {
	app := newTestApp(t, func(conf *core.Config) {
		conf.Server.LoginRateLimit = 0.001
		conf.Server.LoginBurst = 1
	})
	testutil.CreateUser(t, app.Backend, "Awe", "awe@zen.test", "secret", user.RoleUser)

	form := url.Values{"email": {"awe@zen.test"}, "password": {"lol"}}
	res := app.post(t, app.newBrowser(t), "/login", form)
	assert.Equal(t, http.StatusUnauthorized, res.code)

	res = app.post(t, app.newBrowser(t), "/login", form)
	assert.Equal(t, http.StatusTooManyRequests, res.code)
	assert.Contains(t, res.body, "Too many login attempts, please try again later")
}

func TestAuthViews_LoginRateLimitIgnoresForwardedFor(t *testing.T) {
	app := newTestApp(t, func(conf *core.Config) {
		conf.Server.LoginRateLimit = 0.001
		conf.Server.LoginBurst = 1
	})
	testutil.CreateUser(t, app.Backend, "Awe", "awe@zen.test", "secret", user.RoleUser)

	attempt := func(ip string) int {
		req, err := http.NewRequest(http.MethodPost, app.url+"/login",
			strings.NewReader(url.Values{"email": {"awe@zen.test"}, "password": {"lol"}}.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", ip)
		req.Header.Set("X-Real-IP", ip)
		return app.do(t, app.newBrowser(t), req).code
	}

	assert.Equal(t, http.StatusUnauthorized, attempt("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, attempt("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, attempt("203.0.113.3"))
}

func TestAuthViews_LoginRateLimitBehindProxy(t *testing.T) {
	app := newTestApp(t, func(conf *core.Config) {
		conf.Server.LoginRateLimit = 0.001
		conf.Server.LoginBurst = 1
		conf.Server.BehindProxy = true
	})
	testutil.CreateUser(t, app.Backend, "Awe", "awe@zen.test", "secret", user.RoleUser)

	attempt := func(ip string) int {
		req, err := http.NewRequest(http.MethodPost, app.url+"/login",
			strings.NewReader(url.Values{"email": {"awe@zen.test"}, "password": {"lol"}}.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", ip)
		return app.do(t, app.newBrowser(t), req).code
	}

	// the test server is reached over loopback, a trusted proxy
	assert.Equal(t, http.StatusUnauthorized, attempt("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, attempt("203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, attempt("203.0.113.2"))
}

func TestAuthViews_ClientKeyIssuedAtSignIn(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.Backend, "Admin", "admin@zen.test", "secret", user.RoleAdmin)
	u, _ := url.Parse(app.url)

	// the same key planted in two browsers
	planted := &http.Cookie{Name: "zen_client", Value: uuid.NewString(), Path: "/"}
	other := app.newBrowser(t)
	other.Jar.SetCookies(u, []*http.Cookie{planted})
	admin := app.newBrowser(t)
	admin.Jar.SetCookies(u, []*http.Cookie{planted})

	res := app.post(t, admin, "/login", url.Values{"email": {"admin@zen.test"}, "password": {"secret"}})
	require.Equal(t, "/learn", res.path)
	key := app.cookie(admin, "zen_client")
	require.NotNil(t, key)
	assert.NotEqual(t, planted.Value, key.Value, "a fresh key is issued at sign-in")

	res = app.get(t, other, "/manage-users")
	assert.Equal(t, "/login", res.path)
	assert.Nil(t, app.cookie(other, "zen_token"))

	// the issued key alone is not enough either
	thief := app.newBrowser(t)
	thief.Jar.SetCookies(u, []*http.Cookie{{Name: "zen_client", Value: key.Value, Path: "/"}})
	res = app.get(t, thief, "/manage-users")
	assert.Equal(t, "/login", res.path)
	assert.Nil(t, app.cookie(thief, "zen_token"))
	assert.Nil(t, app.cookie(thief, "zen_client"), "unknown keys are cleared")

	// the signed-in browser is unaffected
	res = app.get(t, admin, "/manage-users")
	assert.Equal(t, "/manage-users", res.path)
}

func TestAuthViews_AnonymousRequestsAreNotKept(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.Backend, "Awe", "awe@zen.test", "secret", user.RoleUser)

	for i := 0; i < 10; i++ {
		res := app.get(t, http.DefaultClient, "/login")
		require.Equal(t, http.StatusOK, res.code)
	}
	app.get(t, app.newBrowser(t), "/learn")
	app.post(t, app.newBrowser(t), "/login", url.Values{"email": {"awe@zen.test"}, "password": {"lol"}})
	assert.Zero(t, app.sessions.Len())

	c, _ := app.loggedIn(t, "Other", "other@zen.test", user.RoleUser)
	assert.Equal(t, 1, app.sessions.Len())
	app.get(t, c, "/learn")
	assert.Equal(t, 1, app.sessions.Len())
}
