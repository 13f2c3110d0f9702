package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
)

var (
	// errors
	ErrModuleNotFound        = errors.New("module not found")
	ErrChapterNotFound       = errors.New("chapter not found")
	ErrModuleTitleRequired   = errors.New("Module title is required")
	ErrChapterFieldsRequired = errors.New("All fields are required")
)

type (
	Repository interface {
		QueryModules(ctx context.Context) ([]Module, error) // ordered by title
		GetModule(ctx context.Context, id int64) (Module, error)
		CreateModule(ctx context.Context, m Module) (Module, error)
		UpdateModule(ctx context.Context, id int64, title string) error
		DeleteModule(ctx context.Context, id int64) error

		QueryChapters(ctx context.Context, filter ChapterFilter) ([]Chapter, error) // ordered by title
		GetChapter(ctx context.Context, id int64) (Chapter, error)
		CreateChapter(ctx context.Context, c Chapter) (Chapter, error)
		UpdateChapter(ctx context.Context, c Chapter) error
		DeleteChapter(ctx context.Context, id int64) error
		DeleteChaptersByModule(ctx context.Context, moduleID int64) (int64, error)
	}

	Service struct {
		repo Repository
		tx   core.Transactor
	}
)

func NewService(repo Repository, tx core.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

func (svc *Service) QueryModules(ctx context.Context) ([]Module, error) {
	return svc.repo.QueryModules(ctx)
}

func (svc *Service) CreateModule(ctx context.Context, form ModuleForm) (Module, error) {
	return svc.repo.CreateModule(ctx, Module{Title: form.Title, CreatedAt: time.Now().UTC()})
}

func (svc *Service) UpdateModule(ctx context.Context, id int64, form ModuleForm) error {
	return svc.repo.UpdateModule(ctx, id, form.Title)
}

// DeleteModule removes the module's chapters, then the module, in one transaction.
func (svc *Service) DeleteModule(ctx context.Context, id int64) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.DeleteChaptersByModule(ctx, id); err != nil {
			return errors.Wrap(err, "deleting module chapters")
		}
		return errors.Wrap(svc.repo.DeleteModule(ctx, id), "deleting module")
	})
}

// QueryChapters lists chapters matching filter, ordered by title.
func (svc *Service) QueryChapters(ctx context.Context, filter ChapterFilter) ([]Chapter, error) {
	return svc.repo.QueryChapters(ctx, filter)
}

// LiveChapters lists the live chapters of a module.
func (svc *Service) LiveChapters(ctx context.Context, moduleID int64) ([]Chapter, error) {
	return svc.repo.QueryChapters(ctx, ChapterFilter{ModuleID: moduleID, Status: StatusLive})
}

func (svc *Service) CreateChapter(ctx context.Context, form ChapterForm) (Chapter, error) {
	if _, err := svc.repo.GetModule(ctx, form.ModuleID); err != nil {
		return Chapter{}, err
	}
	return svc.repo.CreateChapter(ctx, Chapter{
		Title:       form.Title,
		YoutubeLink: form.YoutubeLink,
		Status:      form.Status,
		ModuleID:    form.ModuleID,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) UpdateChapter(ctx context.Context, id int64, form ChapterForm) error {
	if _, err := svc.repo.GetModule(ctx, form.ModuleID); err != nil {
		return err
	}
	return svc.repo.UpdateChapter(ctx, Chapter{
		ID:          id,
		Title:       form.Title,
		YoutubeLink: form.YoutubeLink,
		Status:      form.Status,
		ModuleID:    form.ModuleID,
	})
}

func (svc *Service) DeleteChapter(ctx context.Context, id int64) error {
	return svc.repo.DeleteChapter(ctx, id)
}

// Outline is what a learner sees: modules, the selected module's live chapters, and the selected chapter.
type Outline struct {
	Modules  []Module
	Module   *Module
	Chapters []Chapter
	Chapter  *Chapter
}

// Outline resolves the learner's selection. Unknown or zero ids select nothing.
// A chapter is only selected if it is live and belongs to the selected module.
func (svc *Service) Outline(ctx context.Context, moduleID, chapterID int64) (Outline, error) {
	var out Outline
	mods, err := svc.repo.QueryModules(ctx)
	if err != nil {
		return out, errors.Wrap(err, "querying modules")
	}
	out.Modules = mods

	for i := range mods {
		if mods[i].ID == moduleID {
			out.Module = &mods[i]
			break
		}
	}
	if out.Module == nil {
		return out, nil
	}

	if out.Chapters, err = svc.LiveChapters(ctx, out.Module.ID); err != nil {
		return out, errors.Wrap(err, "querying chapters")
	}
	for i := range out.Chapters {
		if out.Chapters[i].ID == chapterID {
			out.Chapter = &out.Chapters[i]
			break
		}
	}
	return out, nil
}
