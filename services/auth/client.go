package authsvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core/auth"
)

const listenerQueueSize = 16

// Client is one browser's handle on the Provider. It keeps the access token and turns bus notices
// about its own session or user into auth events.
type Client struct {
	p *Provider

	mu        sync.Mutex
	token     string
	sessionID string
	userID    string
	listeners map[int]*subscription
	nextID    int
	closed    bool

	cancelBus func()
}

var _ auth.Client = (*Client)(nil) // interface compliance check

func newClient(p *Provider, token string) *Client {
	c := &Client{p: p, token: token, listeners: make(map[int]*subscription)}
	c.cancelBus = p.bus.Subscribe(c.handleNotice)
	return c
}

func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// GetSession verifies the stored token. An invalid or expired token is dropped and yields no session.
func (c *Client) GetSession(ctx context.Context) (*auth.Session, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return nil, nil
	}

	sess, err := c.p.Verify(ctx, token)
	if err != nil {
		switch errors.Cause(err) {
		case auth.ErrSessionExpired, auth.ErrSessionMissing:
			c.mu.Lock()
			if c.token == token {
				c.setToken("", "", "")
			}
			c.mu.Unlock()
			return nil, nil
		}
		return nil, err
	}

	c.mu.Lock()
	if c.token == token {
		c.setToken(token, sess.ID, sess.User.ID)
	}
	c.mu.Unlock()
	return sess, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	sess, err := c.p.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.setToken(sess.AccessToken, sess.ID, sess.User.ID)
	c.mu.Unlock()

	c.emit(auth.Event{Type: auth.SignedIn, Session: sess, UserID: sess.User.ID})
	return sess, nil
}

// SignOut revokes the current session. It is a no-op without one.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token, userID := c.token, c.userID
	c.mu.Unlock()
	if token == "" {
		return nil
	}

	if err := c.p.SignOut(ctx, token); err != nil {
		switch errors.Cause(err) {
		case auth.ErrSessionExpired, auth.ErrSessionMissing:
		default:
			return err
		}
	}

	c.mu.Lock()
	cleared := c.token == token
	if cleared {
		c.setToken("", "", "")
	}
	c.mu.Unlock()

	if cleared {
		c.emit(auth.Event{Type: auth.SignedOut, UserID: userID})
	}
	return nil
}

func (c *Client) UpdateUser(ctx context.Context, attrs auth.UserAttributes) (auth.Identity, error) {
	token := c.AccessToken()
	if token == "" {
		return auth.Identity{}, auth.ErrSessionMissing
	}
	return c.p.UpdateUser(ctx, token, attrs)
}

// OnAuthStateChange registers l. Each listener receives events one at a time, in order,
// on its own goroutine, until unsubscribed.
func (c *Client) OnAuthStateChange(l auth.Listener) auth.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &subscription{
		c:        c,
		id:       c.nextID,
		listener: l,
		queue:    make(chan auth.Event, listenerQueueSize),
		done:     make(chan struct{}),
	}
	c.nextID++
	if c.closed {
		s.once.Do(func() { close(s.done) })
		return s
	}
	c.listeners[s.id] = s
	go s.loop()
	return s
}

// Close detaches from the bus and drops every listener.
func (c *Client) Close() error {
	c.cancelBus()

	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.listeners))
	for _, s := range c.listeners {
		subs = append(subs, s)
	}
	c.closed = true
	c.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	return nil
}

// setToken must be called with c.mu held.
func (c *Client) setToken(token, sessionID, userID string) {
	c.token, c.sessionID, c.userID = token, sessionID, userID
}

func (c *Client) handleNotice(n Notice) {
	c.mu.Lock()
	var ev *auth.Event
	switch n.Type {
	case auth.SignedOut:
		if n.SessionID != "" && n.SessionID == c.sessionID {
			c.setToken("", "", "")
			ev = &auth.Event{Type: auth.SignedOut, UserID: n.UserID}
		}
	case auth.UserDeleted:
		if n.UserID != "" && n.UserID == c.userID {
			c.setToken("", "", "")
			ev = &auth.Event{Type: auth.UserDeleted, UserID: n.UserID}
		}
	case auth.UserUpdated:
		if n.UserID != "" && n.UserID == c.userID {
			ev = &auth.Event{Type: auth.UserUpdated, UserID: n.UserID}
		}
	}
	c.mu.Unlock()

	if ev != nil {
		c.emit(*ev)
	}
}

func (c *Client) emit(ev auth.Event) {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.listeners))
	for _, s := range c.listeners {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.deliver(ev)
	}
}

func (c *Client) removeListener(id int) {
	c.mu.Lock()
	delete(c.listeners, id)
	c.mu.Unlock()
}

type subscription struct {
	c        *Client
	id       int
	listener auth.Listener
	queue    chan auth.Event
	done     chan struct{}
	once     sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.c.removeListener(s.id)
		close(s.done)
	})
}

func (s *subscription) deliver(ev auth.Event) {
	select {
	case s.queue <- ev:
	case <-s.done:
	}
}

func (s *subscription) loop() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.queue:
			s.listener(ev)
		}
	}
}
