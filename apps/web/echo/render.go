package echoweb

import (
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/course"
	"github.com/trezcool/zenacademy/core/session"
	"github.com/trezcool/zenacademy/core/user"
	appfs "github.com/trezcool/zenacademy/fs"
)

const (
	flashCookie = "zen_flash"
	csrfField   = "_csrf"

	flashError   = "error"
	flashSuccess = "success"
)

var templateFuncs = template.FuncMap{
	"embedURL": course.EmbedURL,
	"videoID": func(ch course.Chapter) string {
		id, _ := ch.VideoID()
		return id
	},
}

// templateRenderer holds one template set per page, each made of the shared layout plus the page itself.
type templateRenderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*templateRenderer, error) {
	dir := appfs.WebTemplatesDir
	layout, err := template.New("").Funcs(templateFuncs).ParseFS(appfs.FS, path.Join(dir, "_*.gohtml"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing layout templates")
	}

	files, err := fs.Glob(appfs.FS, path.Join(dir, "[^_]*.gohtml"))
	if err != nil {
		return nil, errors.Wrap(err, "listing page templates")
	}

	r := &templateRenderer{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		tmpl, err := layout.Clone()
		if err != nil {
			return nil, errors.Wrap(err, "cloning layout")
		}
		if tmpl, err = tmpl.ParseFS(appfs.FS, f); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", f)
		}
		r.pages[strings.TrimSuffix(path.Base(f), ".gohtml")] = tmpl
	}
	return r, nil
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

type flash struct {
	Kind    string
	Message string
}

// page is what every template receives.
type page struct {
	Title string
	Path  string
	User  *session.User
	CSRF  string
	Flash *flash
	Data  interface{}
}

func (p page) IsAdmin() bool { return p.User != nil && p.User.IsAdmin() }

func newPage(ctx echo.Context, title string, data interface{}) page {
	p := page{
		Title: title,
		Path:  ctx.Request().URL.Path,
		Flash: popFlash(ctx),
		Data:  data,
	}
	if st, ok := stateFrom(ctx); ok {
		p.User = st.User
	}
	if tok, ok := ctx.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
		p.CSRF = tok
	}
	return p
}

func render(ctx echo.Context, code int, name, title string, data interface{}) error {
	return ctx.Render(code, name, newPage(ctx, title, data))
}

// renderError renders the page with a one-line error in place of the flash.
func renderError(ctx echo.Context, code int, name, title string, data interface{}, msg string) error {
	p := newPage(ctx, title, data)
	p.Flash = &flash{Kind: flashError, Message: msg}
	return ctx.Render(code, name, p)
}

func setFlash(ctx echo.Context, kind, msg string) {
	ctx.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    kind + ":" + url.QueryEscape(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectWithFlash answers a form post: the message shows once on the page at loc.
func redirectWithFlash(ctx echo.Context, loc, kind, msg string) error {
	setFlash(ctx, kind, msg)
	return ctx.Redirect(http.StatusSeeOther, loc)
}

func popFlash(ctx echo.Context) *flash {
	c, err := ctx.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	ctx.SetCookie(&http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	kind, raw, ok := strings.Cut(c.Value, ":")
	if !ok {
		return nil
	}
	msg, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	return &flash{Kind: kind, Message: msg}
}

// failureMessage is the one-line flash for a failed view action: the message of the underlying error.
// Errors the user can act on are expected; anything else is logged too.
func (s *Server) failureMessage(err error, doing string) string {
	cause := errors.Cause(err)
	switch cause {
	case course.ErrModuleNotFound, course.ErrChapterNotFound, course.ErrModuleTitleRequired, course.ErrChapterFieldsRequired,
		user.ErrNotFound, user.ErrSelfDelete, user.ErrNameEmailRequired, user.ErrPasswordRequired,
		auth.ErrEmailTaken, auth.ErrUserNotFound, auth.ErrSessionMissing, auth.ErrSessionExpired, session.ErrNoSession:
		return cause.Error()
	}
	if !core.IsValidationError(err) {
		s.deps.Logger.Error(doing+" failed", errors.Wrap(err, doing))
	}
	return cause.Error()
}
