package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/zenacademy/core/auth"
	authsvc "github.com/trezcool/zenacademy/services/auth"
)

type authStore struct {
	db *DB
}

var _ authsvc.Store = (*authStore)(nil) // interface compliance check

func NewAuthStore(db *DB) *authStore {
	return &authStore{db: db}
}

// emailTaken must be called with the lock held.
func (s *authStore) emailTaken(email, exceptID string) bool {
	for id, a := range s.db.accounts {
		if a.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func (s *authStore) CreateAccount(_ context.Context, acct authsvc.Account) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.emailTaken(acct.Email, "") {
		return auth.ErrEmailTaken
	}
	s.db.accounts[acct.ID] = acct
	return nil
}

func (s *authStore) GetAccountByID(_ context.Context, id string) (authsvc.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if a, ok := s.db.accounts[id]; ok {
		return a, nil
	}
	return authsvc.Account{}, auth.ErrUserNotFound
}

func (s *authStore) GetAccountByEmail(_ context.Context, email string) (authsvc.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, a := range s.db.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return authsvc.Account{}, auth.ErrUserNotFound
}

func (s *authStore) UpdateAccount(_ context.Context, acct authsvc.Account) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.accounts[acct.ID]; !ok {
		return auth.ErrUserNotFound
	}
	if s.emailTaken(acct.Email, acct.ID) {
		return auth.ErrEmailTaken
	}
	s.db.accounts[acct.ID] = acct
	return nil
}

// DeleteAccount also drops the account's sessions.
func (s *authStore) DeleteAccount(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.accounts[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(s.db.accounts, id)
	for sid, sess := range s.db.sessions {
		if sess.UserID == id {
			delete(s.db.sessions, sid)
		}
	}
	return nil
}

func (s *authStore) CreateSession(_ context.Context, sess authsvc.SessionRecord) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.accounts[sess.UserID]; !ok {
		return auth.ErrUserNotFound
	}
	s.db.sessions[sess.ID] = sess
	return nil
}

func (s *authStore) GetSession(_ context.Context, id string) (authsvc.SessionRecord, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if sess, ok := s.db.sessions[id]; ok {
		return sess, nil
	}
	return authsvc.SessionRecord{}, auth.ErrSessionMissing
}

func (s *authStore) RevokeSession(_ context.Context, id string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sess, ok := s.db.sessions[id]
	if !ok || sess.RevokedAt.Valid {
		return auth.ErrSessionMissing
	}
	sess.RevokedAt = null.TimeFrom(at)
	s.db.sessions[id] = sess
	return nil
}

func (s *authStore) RevokeUserSessions(_ context.Context, userID string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for id, sess := range s.db.sessions {
		if sess.UserID == userID && !sess.RevokedAt.Valid {
			sess.RevokedAt = null.TimeFrom(at)
			s.db.sessions[id] = sess
		}
	}
	return nil
}
