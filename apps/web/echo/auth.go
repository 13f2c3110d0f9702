package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/route"
	"github.com/trezcool/zenacademy/core/session"
)

const (
	msgCredentialsRequired = "Email and password are required"
	msgTooManyAttempts     = "Too many login attempts, please try again later"
)

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

type authViews struct {
	srv *Server
}

func registerAuthViews(g *echo.Group, srv *Server) {
	v := authViews{srv: srv}

	g.GET(route.LoginPath, v.loginPage)
	g.POST(route.LoginPath, v.login)
	g.POST(route.LogoutPath, v.logout)
}

func (v authViews) loginPage(ctx echo.Context) error {
	return render(ctx, http.StatusOK, "login", "Login", loginForm{})
}

func (v authViews) login(ctx echo.Context) error {
	var form loginForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to loginForm")
	}
	form.Email = core.CleanString(form.Email, true /* lower */)
	data := loginForm{Email: form.Email}

	if form.Email == "" || form.Password == "" {
		return renderError(ctx, http.StatusBadRequest, "login", "Login", data, msgCredentialsRequired)
	}

	metrics := v.srv.deps.Metrics
	if !v.srv.limiter.Allow(ctx.RealIP()) {
		metrics.RecordLogin("throttled")
		ctx.Response().Header().Set("Retry-After", v.srv.limiter.RetryAfter())
		return renderError(ctx, http.StatusTooManyRequests, "login", "Login", data, msgTooManyAttempts)
	}

	mgr, err := managerFrom(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session manager")
	}

	err = mgr.Login(ctx.Request().Context(), form.Email, form.Password)
	switch errors.Cause(err) {
	case nil:
		metrics.RecordLogin("success")
		return ctx.Redirect(http.StatusSeeOther, route.HomePath)
	case auth.ErrInvalidCredentials:
		metrics.RecordLogin("invalid")
		return renderError(ctx, http.StatusUnauthorized, "login", "Login", data, auth.ErrInvalidCredentials.Error())
	case session.ErrProfileNotFound:
		metrics.RecordLogin("no_profile")
		return renderError(ctx, http.StatusForbidden, "login", "Login", data, session.ErrProfileNotFound.Error())
	default:
		metrics.RecordLogin("error")
		return renderError(ctx, http.StatusBadGateway, "login", "Login", data, v.srv.failureMessage(err, "logging in"))
	}
}

func (v authViews) logout(ctx echo.Context) error {
	mgr, err := managerFrom(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session manager")
	}
	if err = mgr.Logout(ctx.Request().Context()); err != nil {
		return redirectWithFlash(ctx, route.LearnPath, flashError, v.srv.failureMessage(err, "logging out"))
	}
	return ctx.Redirect(http.StatusSeeOther, route.LoginPath)
}
