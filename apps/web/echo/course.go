package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core/course"
	"github.com/trezcool/zenacademy/core/route"
)

type courseViews struct {
	srv *Server
}

func registerCourseViews(g *echo.Group, srv *Server) {
	v := courseViews{srv: srv}

	cg := g.Group(route.ManageCoursePath)
	cg.GET("", v.manage)

	cg.POST("/modules", v.createModule)
	cg.POST("/modules/:id", v.updateModule)
	cg.POST("/modules/:id/delete", v.deleteModule)

	cg.POST("/chapters", v.createChapter)
	cg.POST("/chapters/:id", v.updateChapter)
	cg.POST("/chapters/:id/delete", v.deleteChapter)
}

type manageCourseData struct {
	Modules  []course.Module
	Chapters []course.Chapter
	Statuses []string
}

// ModuleTitle looks up the title of a chapter's module.
func (d manageCourseData) ModuleTitle(id int64) string {
	for _, m := range d.Modules {
		if m.ID == id {
			return m.Title
		}
	}
	return ""
}

func (v courseViews) manage(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	data := manageCourseData{Statuses: course.Statuses}

	var err error
	if data.Modules, err = v.srv.deps.Courses.QueryModules(reqCtx); err == nil {
		data.Chapters, err = v.srv.deps.Courses.QueryChapters(reqCtx, course.ChapterFilter{})
	}
	if err != nil {
		return renderError(ctx, http.StatusOK, "manage_course", "Manage Course", data, v.srv.failureMessage(err, "loading course"))
	}
	return render(ctx, http.StatusOK, "manage_course", "Manage Course", data)
}

func (v courseViews) done(ctx echo.Context, err error, doing, success string) error {
	if err != nil {
		return redirectWithFlash(ctx, route.ManageCoursePath, flashError, v.srv.failureMessage(err, doing))
	}
	return redirectWithFlash(ctx, route.ManageCoursePath, flashSuccess, success)
}

func (v courseViews) createModule(ctx echo.Context) error {
	var form course.ModuleForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to ModuleForm")
	}
	if err := form.Validate(v.srv.deps.Validate); err != nil {
		return v.done(ctx, err, "validating module", "")
	}

	_, err := v.srv.deps.Courses.CreateModule(ctx.Request().Context(), form)
	return v.done(ctx, err, "creating module", "Module created")
}

func (v courseViews) updateModule(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var form course.ModuleForm
	if err = ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to ModuleForm")
	}
	if err = form.Validate(v.srv.deps.Validate); err != nil {
		return v.done(ctx, err, "validating module", "")
	}

	err = v.srv.deps.Courses.UpdateModule(ctx.Request().Context(), id, form)
	return v.done(ctx, err, "updating module", "Module updated")
}

func (v courseViews) deleteModule(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	err = v.srv.deps.Courses.DeleteModule(ctx.Request().Context(), id)
	return v.done(ctx, err, "deleting module", "Module deleted")
}

func (v courseViews) createChapter(ctx echo.Context) error {
	var form course.ChapterForm
	if err := ctx.Bind(&form); err != nil {
		return v.done(ctx, course.ErrChapterFieldsRequired, "binding chapter", "")
	}
	if err := form.Validate(v.srv.deps.Validate); err != nil {
		return v.done(ctx, err, "validating chapter", "")
	}

	_, err := v.srv.deps.Courses.CreateChapter(ctx.Request().Context(), form)
	return v.done(ctx, err, "creating chapter", "Chapter created")
}

func (v courseViews) updateChapter(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var form course.ChapterForm
	if err = ctx.Bind(&form); err != nil {
		return v.done(ctx, course.ErrChapterFieldsRequired, "binding chapter", "")
	}
	if err = form.Validate(v.srv.deps.Validate); err != nil {
		return v.done(ctx, err, "validating chapter", "")
	}

	err = v.srv.deps.Courses.UpdateChapter(ctx.Request().Context(), id, form)
	return v.done(ctx, err, "updating chapter", "Chapter updated")
}

func (v courseViews) deleteChapter(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	err = v.srv.deps.Courses.DeleteChapter(ctx.Request().Context(), id)
	return v.done(ctx, err, "deleting chapter", "Chapter deleted")
}
