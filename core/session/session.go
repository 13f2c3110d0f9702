// Package session holds the authentication state of one browser client and keeps it
// in sync with the auth provider and the user's profile.
package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/user"
)

var (
	ErrNoSession       = errors.New("no user is logged in")
	ErrProfileNotFound = errors.New("user profile not found, please contact an administrator")
)

// ProfileStore is where profiles are read from and written to.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (user.Profile, error)
	UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) error
}

// User is an auth identity merged with its profile.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	CreatedAt    time.Time
	LastSignInAt time.Time
}

func (u User) IsAdmin() bool { return u.Role == user.RoleAdmin }

func (u *User) apply(upd user.ProfileUpdate) {
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
}

// merge combines identity and profile. Profile fields win except for the timestamps the provider tracks.
func merge(ident auth.Identity, prof user.Profile) *User {
	usr := &User{
		ID:           ident.ID,
		Email:        ident.Email,
		Name:         prof.Name,
		Role:         prof.Role,
		CreatedAt:    ident.CreatedAt,
		LastSignInAt: ident.LastSignInAt,
	}
	if prof.Email != "" {
		usr.Email = prof.Email
	}
	return usr
}

// State is a snapshot of a Manager.
type State struct {
	User        *User
	Loading     bool
	Initialized bool
}

func (s State) Authenticated() bool { return s.User != nil }

func (s State) IsAdmin() bool { return s.User != nil && s.User.IsAdmin() }
