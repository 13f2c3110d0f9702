package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/zenacademy/core"
)

// Chapter statuses
const (
	StatusDraft = "draft"
	StatusLive  = "live"
)

var Statuses = []string{StatusDraft, StatusLive}

type Module struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Chapter struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	YoutubeLink string    `json:"youtube_link" db:"youtube_link"`
	Status      string    `json:"status" db:"status"`
	ModuleID    int64     `json:"module_id" db:"module_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (c Chapter) IsLive() bool { return c.Status == StatusLive }

// VideoID returns the YouTube video id of the chapter's link.
func (c Chapter) VideoID() (string, bool) {
	return VideoID(c.YoutubeLink)
}

// ChapterFilter narrows QueryChapters; zero fields match everything.
type ChapterFilter struct {
	ModuleID int64
	Status   string
}

type ModuleForm struct {
	Title string `json:"title" form:"title" validate:"notblank"`
}

func (f *ModuleForm) Validate(validate *validator.Validate) error {
	f.Title = core.CleanString(f.Title)
	if err := validate.Struct(f); err != nil {
		return core.NewValidationError(ErrModuleTitleRequired, core.FieldError{Field: "title", Error: ErrModuleTitleRequired.Error()})
	}
	return nil
}

type ChapterForm struct {
	Title       string `json:"title" form:"title" validate:"notblank"`
	YoutubeLink string `json:"youtube_link" form:"youtube_link" validate:"notblank"`
	Status      string `json:"status" form:"status" validate:"oneof=draft live"`
	ModuleID    int64  `json:"module_id" form:"module_id" validate:"required"`
}

func (f *ChapterForm) Validate(validate *validator.Validate) error {
	f.Title = core.CleanString(f.Title)
	f.YoutubeLink = core.CleanString(f.YoutubeLink)
	if f.Status = core.CleanString(f.Status, true /* lower */); f.Status == "" {
		f.Status = StatusDraft
	}
	if err := validate.Struct(f); err != nil {
		return core.NewValidationError(ErrChapterFieldsRequired, core.FieldErrorsOf(err)...)
	}
	return nil
}
