package echoweb

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/zenacademy/core/course"
	"github.com/trezcool/zenacademy/core/route"
)

type learnViews struct {
	srv *Server
}

func registerLearnViews(g *echo.Group, srv *Server) {
	v := learnViews{srv: srv}

	g.GET(route.LearnPath, v.learn)
}

type learnData struct {
	course.Outline
	VideoID string
}

// learn shows the selected module's live chapters and plays the selected chapter.
// Without a selection, the first module and its first chapter are selected.
func (v learnViews) learn(ctx echo.Context) error {
	moduleID := queryID(ctx, "module")
	chapterID := queryID(ctx, "chapter")
	reqCtx := ctx.Request().Context()
	courses := v.srv.deps.Courses

	out, err := courses.Outline(reqCtx, moduleID, chapterID)
	if err == nil && out.Module == nil && moduleID == 0 && len(out.Modules) > 0 {
		out, err = courses.Outline(reqCtx, out.Modules[0].ID, chapterID)
	}
	if err != nil {
		return renderError(ctx, http.StatusOK, "learn", "Learn", learnData{Outline: out}, v.srv.failureMessage(err, "loading outline"))
	}
	if out.Chapter == nil && chapterID == 0 && len(out.Chapters) > 0 {
		out.Chapter = &out.Chapters[0]
	}

	data := learnData{Outline: out}
	if out.Chapter != nil {
		data.VideoID, _ = out.Chapter.VideoID()
	}
	return render(ctx, http.StatusOK, "learn", "Learn", data)
}

// queryID parses a numeric id query param; anything else is 0.
func queryID(ctx echo.Context, name string) int64 {
	id, err := strconv.ParseInt(ctx.QueryParam(name), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func paramID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
