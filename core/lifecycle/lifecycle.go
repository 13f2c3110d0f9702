// Package lifecycle guards state owned by a component that can be torn down
// while its asynchronous work is still in flight.
package lifecycle

import (
	"context"
	"sync"
)

// Token is valid until revoked. Continuations check it before writing owned state.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Context is cancelled once the token is revoked.
func (t *Token) Context() context.Context { return t.ctx }

func (t *Token) Valid() bool { return t.ctx.Err() == nil }

// Revoke is idempotent.
func (t *Token) Revoke() { t.cancel() }

// Ticket orders observations of the outside world. A larger ticket is a more recent observation.
type Ticket uint64

// Sequencer issues tickets and admits only writes newer than the last one admitted.
// The zero value is ready to use.
type Sequencer struct {
	mu        sync.Mutex
	issued    Ticket
	committed Ticket
}

func (s *Sequencer) Next() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit records t and reports true if it is newer than every ticket committed so far.
// A false result means a more recent observation already won and t's write must be dropped.
func (s *Sequencer) Commit(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t <= s.committed {
		return false
	}
	s.committed = t
	return true
}
