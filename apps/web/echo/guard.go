package echoweb

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core/route"
)

// guardMiddleware applies route.Decide to every page request.
// A browser whose first auth check is still running gets up to InitWait for it to finish,
// then the loading page, which reloads itself.
func (s *Server) guardMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		mgr, err := managerFrom(ctx)
		if err != nil {
			return errors.Wrap(err, "getting session manager")
		}

		if !mgr.State().Initialized {
			timer := time.NewTimer(s.deps.Conf.Server.InitWait)
			select {
			case <-mgr.Ready():
			case <-timer.C:
			case <-ctx.Request().Context().Done():
			}
			timer.Stop()
		}

		st := mgr.State()
		path := ctx.Request().URL.Path
		d := route.Decide(st, path)
		s.deps.Metrics.RecordDecision(d.Kind.String(), route.AccessFor(path).String())

		switch d.Kind {
		case route.Loading:
			return render(ctx, http.StatusOK, "loading", "Loading", ctx.Request().URL.RequestURI())
		case route.Redirect:
			return ctx.Redirect(http.StatusSeeOther, d.Location)
		}

		ctx.Set(contextStateKey, st)
		return next(ctx)
	}
}
