package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/route"
	"github.com/trezcool/zenacademy/core/user"
)

const (
	msgPasswordsMismatch = "Passwords do not match"
	msgProfileUpdated    = "Profile updated successfully"
)

type settingsForm struct {
	Name            string `form:"name"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

type settingsViews struct {
	srv *Server
}

func registerSettingsViews(g *echo.Group, srv *Server) {
	v := settingsViews{srv: srv}

	g.GET(route.SettingsPath, v.settings)
	g.POST(route.SettingsPath, v.update)
}

func (v settingsViews) settings(ctx echo.Context) error {
	usr, err := currentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting current user")
	}
	return render(ctx, http.StatusOK, "settings", "Settings", settingsForm{Name: usr.Name, Email: usr.Email})
}

// update pushes a changed email to the auth provider, writes the profile, then sets a new password.
// The auth email is restored if the profile cannot be written.
// A password that differs from its confirmation changes nothing.
func (v settingsViews) update(ctx echo.Context) error {
	usr, err := currentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting current user")
	}
	mgr, err := managerFrom(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session manager")
	}

	var form settingsForm
	if err = ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to settingsForm")
	}
	form.Name = core.CleanString(form.Name)
	form.Email = core.CleanString(form.Email, true /* lower */)
	data := settingsForm{Name: form.Name, Email: form.Email}

	if form.Password != "" && form.Password != form.ConfirmPassword {
		return renderError(ctx, http.StatusBadRequest, "settings", "Settings", data, msgPasswordsMismatch)
	}
	if form.Name == "" || form.Email == "" {
		return renderError(ctx, http.StatusBadRequest, "settings", "Settings", data, user.ErrNameEmailRequired.Error())
	}

	reqCtx := ctx.Request().Context()
	client := mgr.Client()
	upd := user.ProfileUpdate{Name: &form.Name}

	if form.Email != usr.Email {
		if _, err = client.UpdateUser(reqCtx, auth.UserAttributes{Email: form.Email}); err != nil {
			return renderError(ctx, http.StatusOK, "settings", "Settings", data, v.srv.failureMessage(err, "updating email"))
		}
		upd.Email = &form.Email
	}

	if err = mgr.UpdateProfile(reqCtx, upd); err != nil {
		if upd.Email != nil {
			if _, rbErr := client.UpdateUser(reqCtx, auth.UserAttributes{Email: usr.Email}); rbErr != nil {
				v.srv.deps.Logger.Error("settings: restoring auth email", errors.Wrap(rbErr, "restoring auth email"))
			}
		}
		return renderError(ctx, http.StatusOK, "settings", "Settings", data, v.srv.failureMessage(err, "updating profile"))
	}

	if form.Password != "" {
		if _, err = client.UpdateUser(reqCtx, auth.UserAttributes{Password: form.Password}); err != nil {
			return renderError(ctx, http.StatusOK, "settings", "Settings", data, v.srv.failureMessage(err, "updating password"))
		}
	}

	return redirectWithFlash(ctx, route.SettingsPath, flashSuccess, msgProfileUpdated)
}
