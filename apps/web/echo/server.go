package echoweb

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/course"
	"github.com/trezcool/zenacademy/core/route"
	"github.com/trezcool/zenacademy/core/session"
	"github.com/trezcool/zenacademy/core/user"
	metricsvc "github.com/trezcool/zenacademy/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Sessions   *session.Registry
		Users      *user.Service
		Courses    *course.Service
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metricsvc.Collector
		Gatherer   prometheus.Gatherer
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		limiter  *loginLimiter
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) (*Server, error) {
	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		limiter:  newLoginLimiter(deps.Conf.Server.LoginRateLimit, deps.Conf.Server.LoginBurst),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.app.HideBanner = true
	s.app.Renderer = renderer
	s.app.Server.ReadTimeout = deps.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = deps.Conf.Server.WriteTimeout
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	if conf.Server.BehindProxy {
		s.app.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		s.app.IPExtractor = echo.ExtractIPDirect()
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/healthz", healthz)
	s.app.GET("/metrics", echo.WrapHandler(metricsvc.Handler(s.deps.Gatherer)))

	pages := s.app.Group("", s.sessionMiddleware)
	if !conf.TestMode {
		pages.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "form:" + csrfField,
			CookieName:     "zen_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSameSite: http.SameSiteLaxMode,
		}))
	}
	pages.Use(s.guardMiddleware)

	pages.GET(route.HomePath, home)
	registerAuthViews(pages, s)
	registerLearnViews(pages, s)
	registerSettingsViews(pages, s)
	registerCourseViews(pages, s)
	registerUserViews(pages, s)
}

// Start serves until Shutdown or Close is called. Any other failure is sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Janitor tears down idle browser sessions and forgets idle login limiters every SweepInterval until ctx is done.
func (s *Server) Janitor(ctx context.Context) {
	conf := s.deps.Conf.Server
	go s.deps.Sessions.Run(ctx, conf.SweepInterval)

	ticker := time.NewTicker(conf.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Cleanup(conf.ClientIdleTTL)
		}
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.Redirect(http.StatusFound, route.LearnPath)
}

func healthz(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}
