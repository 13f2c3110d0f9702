// Package inmemdb keeps every table in process memory. Data is lost on restart.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/course"
	"github.com/trezcool/zenacademy/core/user"
	authsvc "github.com/trezcool/zenacademy/services/auth"
)

type DB struct {
	mu sync.RWMutex

	accounts map[string]authsvc.Account
	sessions map[string]authsvc.SessionRecord
	profiles map[string]user.Profile
	modules  map[int64]course.Module
	chapters map[int64]course.Chapter

	modulePK  int64
	chapterPK int64
}

func New() *DB {
	return &DB{
		accounts: make(map[string]authsvc.Account),
		sessions: make(map[string]authsvc.SessionRecord),
		profiles: make(map[string]user.Profile),
		modules:  make(map[int64]course.Module),
		chapters: make(map[int64]course.Chapter),
	}
}

// Transactor serializes units of work. Nothing is rolled back on failure.
type Transactor struct {
	mu sync.Mutex
}

var _ core.Transactor = (*Transactor)(nil) // interface compliance check

type txKey struct{}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}
