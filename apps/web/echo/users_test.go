package echoweb_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/user"
	"github.com/trezcool/zenacademy/tests"
)

func TestUserViews_Create(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.loggedIn(t, "Admin", "admin@zen.test", user.RoleAdmin)
	testutil.CreateUser(t, app.Backend, "Taken", "taken@zen.test", "secret", "")

	tests := []struct {
		name     string
		form     url.Values
		wantBody string
	}{
		{name: "missing name", form: url.Values{"email": {"a@zen.test"}, "password": {"pwd"}}, wantBody: "Name and email are required"},
		{name: "missing email", form: url.Values{"name": {"A"}, "password": {"pwd"}}, wantBody: "Name and email are required"},
		{name: "missing password", form: url.Values{"name": {"A"}, "email": {"a@zen.test"}}, wantBody: "Password is required for new users"},
		{name: "email taken", form: url.Values{"name": {"A"}, "email": {"taken@zen.test"}, "password": {"pwd"}}, wantBody: "a user with this email address has already been registered"},
		{name: "created", form: url.Values{"name": {"Bob"}, "email": {"Bob@Zen.test"}, "password": {"pwd"}}, wantBody: "User created"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := app.post(t, c, "/manage-users", tt.form)
			assert.Equal(t, "/manage-users", res.path)
			assert.Contains(t, res.body, tt.wantBody)
		})
	}

	profs, err := app.Users.Query(context.Background())
	require.NoError(t, err)
	require.Len(t, profs, 3)
	bob := profs[1]
	assert.Equal(t, "Bob", bob.Name)
	assert.Equal(t, "bob@zen.test", bob.Email)
	assert.Equal(t, user.RoleUser, bob.Role)

	var welcomed bool
	for _, msg := range app.Mail.SentMessages() {
		if len(msg.To) > 0 && msg.To[0].Address == "bob@zen.test" {
			welcomed = true
		}
	}
	assert.True(t, welcomed, "welcome email sent")

	// the new user can sign in
	res := app.post(t, app.newBrowser(t), "/login", url.Values{"email": {"bob@zen.test"}, "password": {"pwd"}})
	assert.Equal(t, "/learn", res.path)
}

func TestUserViews_Update(t *testing.T) {
	app := newTestApp(t)
	c, _ := app.loggedIn(t, "Admin", "admin@zen.test", user.RoleAdmin)
	usr := testutil.CreateUser(t, app.Backend, "Awe", "awe@zen.test", "secret", "")

	res := app.post(t, c, "/manage-users/"+usr.ID, url.Values{"name": {""}, "email": {"awe@zen.test"}})
	assert.Contains(t, res.body, "Name and email are required")

	res = app.post(t, c, "/manage-users/"+usr.ID, url.Values{
		"name":     {"Awesome"},
		"email":    {"awesome@zen.test"},
		"password": {"new-secret"},
		"role":     {user.RoleAdmin},
	})
	assert.Contains(t, res.body, "User updated")

	prof, err := app.Users.GetProfile(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Awesome", prof.Name)
	assert.Equal(t, "awesome@zen.test", prof.Email)
	assert.Equal(t, user.RoleAdmin, prof.Role)

	// auth email and password changed too
	res = app.post(t, app.newBrowser(t), "/login", url.Values{"email": {"awesome@zen.test"}, "password": {"new-secret"}})
	assert.Equal(t, "/learn", res.path)
	assert.Contains(t, res.body, `href="/manage-users"`)

	// a taken email changes nothing
	res = app.post(t, c, "/manage-users/"+usr.ID, url.Values{"name": {"Renamed"}, "email": {"admin@zen.test"}, "role": {user.RoleAdmin}})
	assert.Contains(t, res.body, auth.ErrEmailTaken.Error())
	prof, err = app.Users.GetProfile(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Awesome", prof.Name)
	assert.Equal(t, "awesome@zen.test", prof.Email)

	res = app.post(t, c, "/manage-users/lol", url.Values{"name": {"Lol"}, "email": {"lol@zen.test"}})
	assert.Contains(t, res.body, user.ErrNotFound.Error())
}

func TestUserViews_Delete(t *testing.T) {
	app := newTestApp(t)
	c, admin := app.loggedIn(t, "Admin", "admin@zen.test", user.RoleAdmin)
	usr := testutil.CreateUser(t, app.Backend, "Awe", "awe@zen.test", "secret", "")

	res := app.post(t, c, "/manage-users/"+admin.ID+"/delete", nil)
	assert.Contains(t, res.body, user.ErrSelfDelete.Error())

	res = app.post(t, c, "/manage-users/"+usr.ID+"/delete", nil)
	assert.Contains(t, res.body, "User deleted")

	_, err := app.Users.GetProfile(context.Background(), usr.ID)
	assert.Equal(t, user.ErrNotFound, err)

	res = app.post(t, app.newBrowser(t), "/login", url.Values{"email": {"awe@zen.test"}, "password": {"secret"}})
	assert.Contains(t, res.body, "invalid login credentials")
}

func TestUserViews_DeletedUserIsSignedOut(t *testing.T) {
	app := newTestApp(t)
	admin, _ := app.loggedIn(t, "Admin", "admin@zen.test", user.RoleAdmin)
	victim, prof := app.loggedIn(t, "Awe", "awe@zen.test", user.RoleUser)

	res := app.post(t, admin, "/manage-users/"+prof.ID+"/delete", nil)
	require.Contains(t, res.body, "User deleted")

	assert.Eventually(t, func() bool {
		return app.get(t, victim, "/learn").path == "/login"
	}, time.Second, 10*time.Millisecond)
}
