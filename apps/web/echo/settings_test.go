package echoweb_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/user"
	"github.com/trezcool/zenacademy/tests"
)

func TestSettingsViews_PasswordsMismatch(t *testing.T) {
	app := newTestApp(t)
	c, prof := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)

	res := app.post(t, c, "/settings", url.Values{
		"name":             {"Renamed"},
		"email":            {"awe@zen.test"},
		"password":         {"new-secret"},
		"confirm_password": {"other"},
	})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Contains(t, res.body, "Passwords do not match")

	// nothing changed
	got, err := app.Users.GetProfile(context.Background(), prof.ID)
	require.NoError(t, err)
	assert.Equal(t, "Awe", got.Name)
	res = app.post(t, app.newBrowser(t), "/login", url.Values{"email": {"awe@zen.test"}, "password": {"secret"}})
	assert.Equal(t, "/learn", res.path)
}

func TestSettingsViews_Update(t *testing.T) {
	app := newTestApp(t)
	c, prof := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)

	res := app.get(t, c, "/settings")
	assert.Contains(t, res.body, `value="Awe"`)

	res = app.post(t, c, "/settings", url.Values{"name": {""}, "email": {"awe@zen.test"}})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Contains(t, res.body, "Name and email are required")

	res = app.post(t, c, "/settings", url.Values{
		"name":             {"Awesome"},
		"email":            {"awesome@zen.test"},
		"password":         {"new-secret"},
		"confirm_password": {"new-secret"},
	})
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "/settings", res.path)
	assert.Contains(t, res.body, "Profile updated successfully")
	assert.Contains(t, res.body, `value="Awesome"`)
	assert.Contains(t, res.body, "awesome@zen.test")

	got, err := app.Users.GetProfile(context.Background(), prof.ID)
	require.NoError(t, err)
	assert.Equal(t, "Awesome", got.Name)
	assert.Equal(t, "awesome@zen.test", got.Email, "email mirrored into the profile")

	res = app.post(t, app.newBrowser(t), "/login", url.Values{"email": {"awesome@zen.test"}, "password": {"new-secret"}})
	assert.Equal(t, "/learn", res.path)

	// the session survives its own update
	res = app.get(t, c, "/settings")
	assert.Equal(t, "/settings", res.path)
}

func TestSettingsViews_NameOnly(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)

	res := app.post(t, c, "/settings", url.Values{"name": {"Zen Master"}, "email": {"awe@zen.test"}})
	assert.Contains(t, res.body, "Profile updated successfully")
	assert.Contains(t, res.body, "Zen Master")

	res = app.post(t, app.newBrowser(t), "/login", url.Values{"email": {"awe@zen.test"}, "password": {"secret"}})
	assert.Equal(t, "/learn", res.path)
}

func TestSettingsViews_EmailTaken(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	c, prof := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)
	testutil.CreateUser(t, app.Backend, "Other", "other@zen.test", "secret", user.RoleUser)

	res := app.post(t, c, "/settings", url.Values{
		"name":             {"Renamed"},
		"email":            {"other@zen.test"},
		"password":         {"new-secret"},
		"confirm_password": {"new-secret"},
	})
	assert.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, auth.ErrEmailTaken.Error())

	got, err := app.Users.GetProfile(ctx, prof.ID)
	require.NoError(t, err)
	assert.Equal(t, "Awe", got.Name)
	assert.Equal(t, "awe@zen.test", got.Email)

	ident, err := app.Provider.LookupEmail(ctx, "awe@zen.test")
	require.NoError(t, err)
	assert.Equal(t, prof.ID, ident.ID)

	// password untouched
	res = app.post(t, app.newBrowser(t), "/login", url.Values{"email": {"awe@zen.test"}, "password": {"secret"}})
	assert.Equal(t, "/learn", res.path)

	// the session still shows the old email
	res = app.get(t, c, "/settings")
	assert.Contains(t, res.body, `value="awe@zen.test"`)
}

func TestSettingsViews_ConfirmationWithoutPassword(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)

	res := app.post(t, c, "/settings", url.Values{
		"name":             {"Zen Master"},
		"email":            {"awe@zen.test"},
		"confirm_password": {"leftover"},
	})
	assert.Contains(t, res.body, "Profile updated successfully")

	res = app.post(t, app.newBrowser(t), "/login", url.Values{"email": {"awe@zen.test"}, "password": {"secret"}})
	assert.Equal(t, "/learn", res.path)
}
