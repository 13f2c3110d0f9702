package authsvc

import (
	"context"
	"sync"

	"github.com/trezcool/zenacademy/core/auth"
)

// Notice tells clients that something happened to a user or one of their sessions.
type Notice struct {
	Type      auth.EventType `json:"type"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id,omitempty"`
}

// Bus fans notices out to every subscriber, including those in other processes for distributed buses.
type Bus interface {
	Publish(ctx context.Context, n Notice) error
	Subscribe(handler func(Notice)) (cancel func())
}

// MemoryBus delivers notices synchronously, in publish order, within the process.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[int]func(Notice)
	nextID   int
}

var _ Bus = (*MemoryBus)(nil) // interface compliance check

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[int]func(Notice))}
}

func (b *MemoryBus) Publish(_ context.Context, n Notice) error {
	b.mu.RLock()
	handlers := make([]func(Notice), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(n)
	}
	return nil
}

func (b *MemoryBus) Subscribe(handler func(Notice)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}
