package authsvc

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/zenacademy/core/auth"
)

type (
	Account struct {
		ID           string    `db:"id"`
		Email        string    `db:"email"`
		PasswordHash []byte    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
		LastSignInAt null.Time `db:"last_sign_in_at"`
	}

	SessionRecord struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		CreatedAt time.Time `db:"created_at"`
		ExpiresAt time.Time `db:"expires_at"`
		RevokedAt null.Time `db:"revoked_at"`
	}

	// Store persists accounts and their sessions.
	// Lookups of missing rows return auth.ErrUserNotFound or auth.ErrSessionMissing,
	// and CreateAccount/UpdateAccount return auth.ErrEmailTaken on a duplicate email.
	Store interface {
		CreateAccount(ctx context.Context, acct Account) error
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		UpdateAccount(ctx context.Context, acct Account) error
		DeleteAccount(ctx context.Context, id string) error

		CreateSession(ctx context.Context, sess SessionRecord) error
		GetSession(ctx context.Context, id string) (SessionRecord, error)
		RevokeSession(ctx context.Context, id string, at time.Time) error
		// RevokeUserSessions revokes every active session of a user.
		RevokeUserSessions(ctx context.Context, userID string, at time.Time) error
	}
)

func (a Account) Identity() auth.Identity {
	return auth.Identity{
		ID:           a.ID,
		Email:        a.Email,
		CreatedAt:    a.CreatedAt,
		LastSignInAt: a.LastSignInAt.Time,
	}
}

func (s SessionRecord) Active(now time.Time) bool {
	return !s.RevokedAt.Valid && now.Before(s.ExpiresAt)
}
