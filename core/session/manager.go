package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/lifecycle"
	"github.com/trezcool/zenacademy/core/user"
)

// Manager owns the State of one browser client.
//
// Every write to the state carries a ticket taken when the remote observation it is based on
// was made; a write older than the last applied one is dropped. Once closed, no write is applied.
type Manager struct {
	client   auth.Client
	profiles ProfileStore
	logger   core.Logger

	life *lifecycle.Token
	seq  lifecycle.Sequencer

	mu          sync.RWMutex
	usr         *User
	pending     int
	initialized bool
	sub         auth.Subscription

	ready     chan struct{}
	readyOnce sync.Once // guards the end of the initial check
	startOnce sync.Once
}

func NewManager(client auth.Client, profiles ProfileStore, logger core.Logger) *Manager {
	return &Manager{
		client:   client,
		profiles: profiles,
		logger:   logger,
		life:     lifecycle.NewToken(context.Background()),
		pending:  1, // initial session check
		ready:    make(chan struct{}),
	}
}

// Start subscribes to auth events and runs the initial session check in the background.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		if !m.life.Valid() {
			m.finishInit()
			return
		}
		sub := m.client.OnAuthStateChange(m.handleEvent)
		m.mu.Lock()
		m.sub = sub
		m.mu.Unlock()

		go m.Initialize(m.life.Context())
	})
}

// Ready is closed once the initial session check has completed.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// Initialize restores the user from the current auth session.
// A session without a profile is signed out.
func (m *Manager) Initialize(ctx context.Context) {
	defer m.finishInit()

	ticket := m.seq.Next()
	sess, err := m.client.GetSession(ctx)
	if err != nil {
		m.logger.Error("session: getting auth session", err)
		m.commit(ticket, nil)
		return
	}
	if sess == nil {
		m.commit(ticket, nil)
		return
	}

	usr, err := m.resolve(ctx, sess.User)
	switch {
	case err == nil:
		m.commit(ticket, usr)
	case errors.Cause(err) == user.ErrNotFound:
		if m.life.Valid() {
			if err = m.client.SignOut(ctx); err != nil {
				m.logger.Error("session: signing out user without profile", err)
			}
		}
		m.commit(ticket, nil)
	default:
		m.logger.Error("session: fetching profile", err)
		m.commit(ticket, nil)
	}
}

// Login signs in with the auth provider and loads the user's profile.
// A user without a profile is signed out again and ErrProfileNotFound is returned.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.begin()
	defer m.end()

	sess, err := m.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return errors.Wrap(err, "signing in")
	}

	ticket := m.seq.Next()
	usr, err := m.resolve(ctx, sess.User)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "fetching profile")
		}
		if err = m.client.SignOut(ctx); err != nil {
			m.logger.Error("session: signing out user without profile", err)
		}
		m.commit(ticket, nil)
		return ErrProfileNotFound
	}
	m.commit(ticket, usr)
	return nil
}

func (m *Manager) Logout(ctx context.Context) error {
	m.begin()
	defer m.end()

	if err := m.client.SignOut(ctx); err != nil {
		return errors.Wrap(err, "signing out")
	}
	m.commit(m.seq.Next(), nil)
	return nil
}

// UpdateProfile writes upd to the current user's profile, then patches the state with it.
func (m *Manager) UpdateProfile(ctx context.Context, upd user.ProfileUpdate) error {
	m.mu.RLock()
	cur := m.usr
	m.mu.RUnlock()
	if cur == nil {
		return ErrNoSession
	}

	m.begin()
	defer m.end()

	if err := m.profiles.UpdateProfile(ctx, cur.ID, upd); err != nil {
		return errors.Wrap(err, "updating profile")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.life.Valid() && m.usr != nil && m.usr.ID == cur.ID {
		usr := *m.usr
		usr.apply(upd)
		m.usr = &usr
	}
	return nil
}

// Client is the auth client the manager listens to.
func (m *Manager) Client() auth.Client { return m.client }

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := State{Loading: m.pending > 0, Initialized: m.initialized}
	if m.usr != nil {
		usr := *m.usr
		st.User = &usr
	}
	return st
}

// Close unsubscribes from auth events. Work still in flight finishes without touching the state.
func (m *Manager) Close() {
	m.life.Revoke()
	m.startOnce.Do(m.finishInit) // never started

	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (m *Manager) handleEvent(ev auth.Event) {
	if !m.life.Valid() {
		return
	}
	ticket := m.seq.Next()

	switch ev.Type {
	case auth.SignedIn:
		if ev.Session == nil {
			return
		}
		usr, err := m.resolve(m.life.Context(), ev.Session.User)
		switch {
		case err == nil:
			m.commit(ticket, usr)
		case errors.Cause(err) == user.ErrNotFound:
			m.commit(ticket, nil)
		default:
			m.logger.Error("session: fetching profile", err)
		}
	case auth.SignedOut, auth.UserDeleted:
		m.commit(ticket, nil)
	}
}

func (m *Manager) resolve(ctx context.Context, ident auth.Identity) (*User, error) {
	prof, err := m.profiles.GetProfile(ctx, ident.ID)
	if err != nil {
		return nil, err
	}
	return merge(ident, prof), nil
}

// commit applies usr if the manager is open and ticket is the most recent observation.
func (m *Manager) commit(ticket lifecycle.Ticket, usr *User) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.life.Valid() || !m.seq.Commit(ticket) {
		return false
	}
	m.usr = usr
	return true
}

func (m *Manager) finishInit() {
	m.readyOnce.Do(func() {
		m.mu.Lock()
		if m.life.Valid() {
			m.initialized = true
			m.pending--
		}
		m.mu.Unlock()
		close(m.ready)
	})
}

// begin and end track in-flight operations for State.Loading.
func (m *Manager) begin() {
	m.mu.Lock()
	if m.life.Valid() {
		m.pending++
	}
	m.mu.Unlock()
}

func (m *Manager) end() {
	m.mu.Lock()
	if m.life.Valid() {
		m.pending--
	}
	m.mu.Unlock()
}
