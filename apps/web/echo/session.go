package echoweb

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/session"
)

const (
	clientCookie = "zen_client"
	tokenCookie  = "zen_token"

	contextManagerKey = "session.manager"
	contextStateKey   = "session.state"
)

var errManagerNotFoundInCtx = errors.New("session manager not found in echo.Context")

// sessionMiddleware binds the request to a session.Manager.
// A signed-in browser is remembered under a random client key, issued when it signs in and
// only honoured together with the access token the Manager holds. Any other request gets a
// Manager of its own, dropped at the end of the request unless it signed in.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b := &binding{registry: s.deps.Sessions, logger: s.deps.Logger}
		if c, err := ctx.Cookie(clientCookie); err == nil {
			b.presentedKey = c.Value
		}
		if c, err := ctx.Cookie(tokenCookie); err == nil {
			b.token = c.Value
		}

		if mgr, ok := b.registry.Lookup(b.presentedKey, b.token); ok {
			b.mgr, b.key = mgr, b.presentedKey
		} else {
			mgr, err := b.registry.Open(b.token)
			if errors.Cause(err) == session.ErrRegistryClosed {
				return core.NewShutdownError("sessions closed, app is going down")
			}
			if err != nil {
				return errors.Wrap(err, "opening session")
			}
			b.mgr = mgr
		}
		ctx.Set(contextManagerKey, b.mgr)

		ctx.Response().Before(func() { b.settle(ctx) })
		err := next(ctx)
		if !ctx.Response().Committed {
			b.settle(ctx)
		}
		b.finish()
		return err
	}
}

// binding tracks one request's Manager and the cookies it ends with.
type binding struct {
	registry *session.Registry
	logger   core.Logger

	presentedKey string
	token        string
	mgr          *session.Manager
	key          string // registry key, empty while unregistered
	settled      bool
	release      bool
}

// settle registers a Manager that signed in under a fresh key, forgets one that signed out,
// and writes the cookies accordingly. It runs once, before the response starts.
func (b *binding) settle(ctx echo.Context) {
	if b.settled {
		return
	}
	b.settled = true

	current := b.mgr.Client().AccessToken()
	switch {
	case b.key == "" && current != "":
		key := uuid.NewString()
		if err := b.registry.Register(key, b.mgr); err != nil {
			b.logger.Error("session: registering client", errors.Wrap(err, "registering client"))
			break
		}
		b.key = key
		ctx.SetCookie(clientCookieFor(key))
	case b.key != "" && current == "":
		b.release = true
		ctx.SetCookie(clientCookieFor(""))
	case b.key == "" && b.presentedKey != "":
		ctx.SetCookie(clientCookieFor(""))
	}

	if current != b.token {
		ctx.SetCookie(tokenCookieFor(current))
	}
}

func (b *binding) finish() {
	switch {
	case b.key == "":
		b.registry.Discard(b.mgr)
	case b.release:
		b.registry.Release(b.key)
	}
}

func clientCookieFor(key string) *http.Cookie {
	c := &http.Cookie{
		Name:     clientCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if key == "" {
		c.MaxAge = -1
	}
	return c
}

func tokenCookieFor(token string) *http.Cookie {
	c := &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	}
	return c
}

func managerFrom(ctx echo.Context) (*session.Manager, error) {
	mgr, ok := ctx.Get(contextManagerKey).(*session.Manager)
	if !ok {
		return nil, errManagerNotFoundInCtx
	}
	return mgr, nil
}

// stateFrom returns the session state the guard let the request through with.
func stateFrom(ctx echo.Context) (session.State, bool) {
	st, ok := ctx.Get(contextStateKey).(session.State)
	return st, ok
}

// currentUser returns the signed-in user the guard admitted.
func currentUser(ctx echo.Context) (*session.User, error) {
	st, ok := stateFrom(ctx)
	if !ok || st.User == nil {
		return nil, session.ErrNoSession
	}
	return st.User, nil
}
