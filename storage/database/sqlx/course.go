package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/course"
)

const chapterColumns = "id, title, youtube_link, status, module_id, created_at"

type courseRepository struct {
	db core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DBExecutor) *courseRepository {
	return &courseRepository{db: db}
}

// trapNoRows maps psql "no rows" err to notFound
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) QueryModules(ctx context.Context) ([]course.Module, error) {
	mods := make([]course.Module, 0)
	err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &mods, "SELECT id, title, created_at FROM modules ORDER BY title ASC")
	if err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	return mods, nil
}

func (repo courseRepository) GetModule(ctx context.Context, id int64) (course.Module, error) {
	var mod course.Module
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &mod, "SELECT id, title, created_at FROM modules WHERE id = $1", id)
	if err != nil {
		return course.Module{}, trapNoRows(err, course.ErrModuleNotFound, "getting module")
	}
	return mod, nil
}

func (repo courseRepository) CreateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &mod.ID,
		"INSERT INTO modules (title, created_at) VALUES ($1, $2) RETURNING id", mod.Title, mod.CreatedAt)
	if err != nil {
		return course.Module{}, errors.Wrap(err, "inserting module")
	}
	return mod, nil
}

func (repo courseRepository) UpdateModule(ctx context.Context, id int64, title string) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, "UPDATE modules SET title = $1 WHERE id = $2", title, id)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return rowsAffected(res, course.ErrModuleNotFound)
}

func (repo courseRepository) DeleteModule(ctx context.Context, id int64) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, "DELETE FROM modules WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return rowsAffected(res, course.ErrModuleNotFound)
}

func (repo courseRepository) QueryChapters(ctx context.Context, filter course.ChapterFilter) ([]course.Chapter, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.ModuleID != 0 {
		args = append(args, filter.ModuleID)
		where = append(where, "module_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	q := "SELECT " + chapterColumns + " FROM chapters"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY title ASC"

	chapters := make([]course.Chapter, 0)
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &chapters, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	return chapters, nil
}

func (repo courseRepository) GetChapter(ctx context.Context, id int64) (course.Chapter, error) {
	var ch course.Chapter
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &ch, "SELECT "+chapterColumns+" FROM chapters WHERE id = $1", id)
	if err != nil {
		return course.Chapter{}, trapNoRows(err, course.ErrChapterNotFound, "getting chapter")
	}
	return ch, nil
}

func (repo courseRepository) CreateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &ch.ID,
		"INSERT INTO chapters (title, youtube_link, status, module_id, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		ch.Title, ch.YoutubeLink, ch.Status, ch.ModuleID, ch.CreatedAt)
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "inserting chapter")
	}
	return ch, nil
}

func (repo courseRepository) UpdateChapter(ctx context.Context, ch course.Chapter) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx,
		"UPDATE chapters SET title = $1, youtube_link = $2, status = $3, module_id = $4 WHERE id = $5",
		ch.Title, ch.YoutubeLink, ch.Status, ch.ModuleID, ch.ID)
	if err != nil {
		return errors.Wrap(err, "updating chapter")
	}
	return rowsAffected(res, course.ErrChapterNotFound)
}

func (repo courseRepository) DeleteChapter(ctx context.Context, id int64) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, "DELETE FROM chapters WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting chapter")
	}
	return rowsAffected(res, course.ErrChapterNotFound)
}

func (repo courseRepository) DeleteChaptersByModule(ctx context.Context, moduleID int64) (int64, error) {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, "DELETE FROM chapters WHERE module_id = $1", moduleID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting module chapters")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "reading affected rows")
}
