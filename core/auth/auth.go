// Package auth describes the hosted authentication provider the application talks to.
// The provider owns credentials and sessions; user profiles live elsewhere.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("a user with this email address has already been registered")
	ErrSessionMissing     = errors.New("auth session missing")
	ErrSessionExpired     = errors.New("auth session expired")
	ErrMissingPassword    = errors.New("password is required")
)

type EventType string

const (
	SignedIn       EventType = "SIGNED_IN"
	SignedOut      EventType = "SIGNED_OUT"
	UserUpdated    EventType = "USER_UPDATED"
	UserDeleted    EventType = "USER_DELETED"
	TokenRefreshed EventType = "TOKEN_REFRESHED"
)

type (
	// Identity is the provider's view of a user.
	Identity struct {
		ID           string
		Email        string
		CreatedAt    time.Time
		LastSignInAt time.Time
	}

	Session struct {
		ID          string
		AccessToken string
		ExpiresAt   time.Time
		User        Identity
	}

	Event struct {
		Type    EventType
		Session *Session // nil unless Type is SignedIn or TokenRefreshed
		UserID  string
	}

	Listener func(Event)

	Subscription interface {
		Unsubscribe()
	}

	// UserAttributes holds the identity fields to change; empty fields are left untouched.
	UserAttributes struct {
		Email    string
		Password string
	}

	// Client is one browser's handle on the provider.
	// Events for a Client are delivered to its listeners one at a time, in order.
	Client interface {
		GetSession(ctx context.Context) (*Session, error)
		SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
		SignOut(ctx context.Context) error
		UpdateUser(ctx context.Context, attrs UserAttributes) (Identity, error)
		OnAuthStateChange(listener Listener) Subscription
		AccessToken() string
	}

	// Admin is the privileged side of the provider, used for user management.
	Admin interface {
		SignUp(ctx context.Context, email, password string) (Identity, error)
		UpdateUserByID(ctx context.Context, id string, attrs UserAttributes) (Identity, error)
		DeleteUser(ctx context.Context, id string) error
	}
)
