package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
)

// ClientFactory builds an auth client restoring the session held by token (empty for none).
type ClientFactory func(token string) (auth.Client, error)

type entry struct {
	manager  *Manager
	lastSeen time.Time
}

// Registry keeps the Managers of signed-in browsers, keyed by an opaque client key.
// Anonymous Managers are opened per request and never stored.
// Managers idle for longer than the TTL are torn down by Sweep.
type Registry struct {
	newClient ClientFactory
	profiles  ProfileStore
	logger    core.Logger
	ttl       time.Duration
	nowFunc   func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

var (
	// errors
	ErrRegistryClosed = errors.New("session registry closed")
	ErrKeyTaken       = errors.New("client key already registered")
)

func NewRegistry(newClient ClientFactory, profiles ProfileStore, logger core.Logger, ttl time.Duration) *Registry {
	return &Registry{
		newClient: newClient,
		profiles:  profiles,
		logger:    logger,
		ttl:       ttl,
		nowFunc:   time.Now,
		entries:   make(map[string]*entry),
	}
}

// Open starts an unregistered Manager restoring the session held by token (empty for none).
// The caller either registers it or hands it back to Discard.
func (r *Registry) Open(token string) (*Manager, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrRegistryClosed
	}

	client, err := r.newClient(token)
	if err != nil {
		return nil, errors.Wrap(err, "creating auth client")
	}
	mgr := NewManager(client, r.profiles, r.logger)
	mgr.Start()
	return mgr, nil
}

// Register stores mgr under key.
func (r *Registry) Register(key string, mgr *Manager) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, ok := r.entries[key]; ok {
		return ErrKeyTaken
	}
	r.entries[key] = &entry{manager: mgr, lastSeen: r.nowFunc()}
	return nil
}

// Lookup returns the Manager stored under key, provided its auth client still holds token.
// An empty token never matches.
func (r *Registry) Lookup(key, token string) (*Manager, bool) {
	if key == "" || token == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok || e.manager.Client().AccessToken() != token {
		return nil, false
	}
	e.lastSeen = r.nowFunc()
	return e.manager, true
}

// Release tears down the Manager for key, if any.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	e, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok {
		r.teardown(e.manager)
	}
}

// Discard tears down a Manager that was opened but never registered.
func (r *Registry) Discard(mgr *Manager) {
	r.teardown(mgr)
}

// Sweep tears down every Manager idle for longer than the TTL and returns how many went.
func (r *Registry) Sweep() int {
	cutoff := r.nowFunc().Add(-r.ttl)

	r.mu.Lock()
	var stale []*Manager
	for key, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.manager)
			delete(r.entries, key)
		}
	}
	r.mu.Unlock()

	for _, mgr := range stale {
		r.teardown(mgr)
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("session: swept idle clients", map[string]interface{}{"count": n})
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close tears down every registered Manager. Open and Register fail afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.closed = true
	r.mu.Unlock()

	for _, e := range entries {
		r.teardown(e.manager)
	}
}

func (r *Registry) teardown(mgr *Manager) {
	mgr.Close()
	if c, ok := mgr.Client().(io.Closer); ok {
		if err := c.Close(); err != nil {
			r.logger.Warn("session: closing auth client", err)
		}
	}
}
