package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core/route"
	"github.com/trezcool/zenacademy/core/user"
)

type userViews struct {
	srv *Server
}

func registerUserViews(g *echo.Group, srv *Server) {
	v := userViews{srv: srv}

	ug := g.Group(route.ManageUsersPath)
	ug.GET("", v.manage)
	ug.POST("", v.create)
	ug.POST("/:id", v.update)
	ug.POST("/:id/delete", v.destroy)
}

type manageUsersData struct {
	Users []user.Profile
	Roles []user.Role
}

func (v userViews) manage(ctx echo.Context) error {
	data := manageUsersData{Roles: user.Roles}

	var err error
	if data.Users, err = v.srv.deps.Users.Query(ctx.Request().Context()); err != nil {
		return renderError(ctx, http.StatusOK, "manage_users", "Manage Users", data, v.srv.failureMessage(err, "loading users"))
	}
	return render(ctx, http.StatusOK, "manage_users", "Manage Users", data)
}

func (v userViews) done(ctx echo.Context, err error, doing, success string) error {
	if err != nil {
		return redirectWithFlash(ctx, route.ManageUsersPath, flashError, v.srv.failureMessage(err, doing))
	}
	return redirectWithFlash(ctx, route.ManageUsersPath, flashSuccess, success)
}

func (v userViews) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(v.srv.deps.Validate); err != nil {
		return v.done(ctx, err, "validating user", "")
	}

	_, err := v.srv.deps.Users.Create(ctx.Request().Context(), data)
	return v.done(ctx, err, "creating user", "User created")
}

func (v userViews) update(ctx echo.Context) error {
	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(v.srv.deps.Validate); err != nil {
		return v.done(ctx, err, "validating user", "")
	}

	_, err := v.srv.deps.Users.Update(ctx.Request().Context(), ctx.Param("id"), data)
	return v.done(ctx, err, "updating user", "User updated")
}

func (v userViews) destroy(ctx echo.Context) error {
	actor, err := currentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting current user")
	}
	err = v.srv.deps.Users.Delete(ctx.Request().Context(), actor.ID, ctx.Param("id"))
	return v.done(ctx, err, "deleting user", "User deleted")
}
