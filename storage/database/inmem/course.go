package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) QueryModules(context.Context) ([]course.Module, error) {
	repo.db.mu.RLock()
	mods := make([]course.Module, 0, len(repo.db.modules))
	for _, m := range repo.db.modules {
		mods = append(mods, m)
	}
	repo.db.mu.RUnlock()

	sort.Slice(mods, func(i, j int) bool {
		if mods[i].Title == mods[j].Title {
			return mods[i].ID < mods[j].ID
		}
		return mods[i].Title < mods[j].Title
	})
	return mods, nil
}

func (repo *courseRepository) GetModule(_ context.Context, id int64) (course.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.modules[id]; ok {
		return m, nil
	}
	return course.Module{}, course.ErrModuleNotFound
}

func (repo *courseRepository) CreateModule(_ context.Context, m course.Module) (course.Module, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.modulePK++
	m.ID = repo.db.modulePK
	repo.db.modules[m.ID] = m
	return m, nil
}

func (repo *courseRepository) UpdateModule(_ context.Context, id int64, title string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m, ok := repo.db.modules[id]
	if !ok {
		return course.ErrModuleNotFound
	}
	m.Title = title
	repo.db.modules[id] = m
	return nil
}

// DeleteModule enforces the chapters foreign key: a module with chapters cannot go.
func (repo *courseRepository) DeleteModule(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.modules[id]; !ok {
		return course.ErrModuleNotFound
	}
	for _, ch := range repo.db.chapters {
		if ch.ModuleID == id {
			return errors.Errorf("module %d still has chapters", id)
		}
	}
	delete(repo.db.modules, id)
	return nil
}

func (repo *courseRepository) QueryChapters(_ context.Context, filter course.ChapterFilter) ([]course.Chapter, error) {
	repo.db.mu.RLock()
	chapters := make([]course.Chapter, 0)
	for _, ch := range repo.db.chapters {
		if filter.ModuleID != 0 && ch.ModuleID != filter.ModuleID {
			continue
		}
		if filter.Status != "" && ch.Status != filter.Status {
			continue
		}
		chapters = append(chapters, ch)
	}
	repo.db.mu.RUnlock()

	sort.Slice(chapters, func(i, j int) bool {
		if chapters[i].Title == chapters[j].Title {
			return chapters[i].ID < chapters[j].ID
		}
		return chapters[i].Title < chapters[j].Title
	})
	return chapters, nil
}

func (repo *courseRepository) GetChapter(_ context.Context, id int64) (course.Chapter, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ch, ok := repo.db.chapters[id]; ok {
		return ch, nil
	}
	return course.Chapter{}, course.ErrChapterNotFound
}

func (repo *courseRepository) CreateChapter(_ context.Context, ch course.Chapter) (course.Chapter, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.modules[ch.ModuleID]; !ok {
		return course.Chapter{}, course.ErrModuleNotFound
	}
	repo.db.chapterPK++
	ch.ID = repo.db.chapterPK
	repo.db.chapters[ch.ID] = ch
	return ch, nil
}

func (repo *courseRepository) UpdateChapter(_ context.Context, ch course.Chapter) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.chapters[ch.ID]
	if !ok {
		return course.ErrChapterNotFound
	}
	if _, ok = repo.db.modules[ch.ModuleID]; !ok {
		return course.ErrModuleNotFound
	}
	ch.CreatedAt = orig.CreatedAt
	repo.db.chapters[ch.ID] = ch
	return nil
}

func (repo *courseRepository) DeleteChapter(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.chapters[id]; !ok {
		return course.ErrChapterNotFound
	}
	delete(repo.db.chapters, id)
	return nil
}

func (repo *courseRepository) DeleteChaptersByModule(_ context.Context, moduleID int64) (int64, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int64
	for id, ch := range repo.db.chapters {
		if ch.ModuleID == moduleID {
			delete(repo.db.chapters, id)
			n++
		}
	}
	return n, nil
}
