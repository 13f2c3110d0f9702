package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
	authsvc "github.com/trezcool/zenacademy/services/auth"
)

const (
	accountColumns     = "id, email, password_hash, created_at, updated_at, last_sign_in_at"
	sessionColumns     = "id, user_id, created_at, expires_at, revoked_at"
	uniqueViolationErr = "23505"
)

type authStore struct {
	db core.DBExecutor
}

var _ authsvc.Store = (*authStore)(nil) // interface compliance check

func NewAuthStore(db core.DBExecutor) *authStore {
	return &authStore{db: db}
}

// trapUniqueErr maps a unique violation to auth.ErrEmailTaken
func trapUniqueErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolationErr {
		return auth.ErrEmailTaken
	}
	return errors.Wrap(err, msg)
}

func (s authStore) CreateAccount(ctx context.Context, acct authsvc.Account) error {
	_, err := sqlx.NamedExecContext(ctx, getExec(ctx, s.db),
		"INSERT INTO auth_users ("+accountColumns+") VALUES (:id, :email, :password_hash, :created_at, :updated_at, :last_sign_in_at)",
		acct,
	)
	if err != nil {
		return trapUniqueErr(err, "inserting account")
	}
	return nil
}

func (s authStore) GetAccountByID(ctx context.Context, id string) (authsvc.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return authsvc.Account{}, auth.ErrUserNotFound
	}

	var acct authsvc.Account
	err := sqlx.GetContext(ctx, getExec(ctx, s.db), &acct, "SELECT "+accountColumns+" FROM auth_users WHERE id = $1", id)
	if err != nil {
		return authsvc.Account{}, trapNoRows(err, auth.ErrUserNotFound, "getting account")
	}
	return acct, nil
}

func (s authStore) GetAccountByEmail(ctx context.Context, email string) (authsvc.Account, error) {
	var acct authsvc.Account
	err := sqlx.GetContext(ctx, getExec(ctx, s.db), &acct, "SELECT "+accountColumns+" FROM auth_users WHERE email = $1", email)
	if err != nil {
		return authsvc.Account{}, trapNoRows(err, auth.ErrUserNotFound, "getting account")
	}
	return acct, nil
}

func (s authStore) UpdateAccount(ctx context.Context, acct authsvc.Account) error {
	res, err := sqlx.NamedExecContext(ctx, getExec(ctx, s.db),
		`UPDATE auth_users
		SET email = :email, password_hash = :password_hash, updated_at = :updated_at, last_sign_in_at = :last_sign_in_at
		WHERE id = :id`,
		acct,
	)
	if err != nil {
		return trapUniqueErr(err, "updating account")
	}
	return rowsAffected(res, auth.ErrUserNotFound)
}

func (s authStore) DeleteAccount(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return auth.ErrUserNotFound
	}

	res, err := getExec(ctx, s.db).ExecContext(ctx, "DELETE FROM auth_users WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return rowsAffected(res, auth.ErrUserNotFound)
}

func (s authStore) CreateSession(ctx context.Context, sess authsvc.SessionRecord) error {
	_, err := sqlx.NamedExecContext(ctx, getExec(ctx, s.db),
		"INSERT INTO auth_sessions ("+sessionColumns+") VALUES (:id, :user_id, :created_at, :expires_at, :revoked_at)",
		sess,
	)
	return errors.Wrap(err, "inserting session")
}

func (s authStore) GetSession(ctx context.Context, id string) (authsvc.SessionRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return authsvc.SessionRecord{}, auth.ErrSessionMissing
	}

	var sess authsvc.SessionRecord
	err := sqlx.GetContext(ctx, getExec(ctx, s.db), &sess, "SELECT "+sessionColumns+" FROM auth_sessions WHERE id = $1", id)
	if err != nil {
		return authsvc.SessionRecord{}, trapNoRows(err, auth.ErrSessionMissing, "getting session")
	}
	return sess, nil
}

func (s authStore) RevokeSession(ctx context.Context, id string, at time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return auth.ErrSessionMissing
	}

	res, err := getExec(ctx, s.db).ExecContext(ctx,
		"UPDATE auth_sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL", at, id)
	if err != nil {
		return errors.Wrap(err, "revoking session")
	}
	return rowsAffected(res, auth.ErrSessionMissing)
}

func (s authStore) RevokeUserSessions(ctx context.Context, userID string, at time.Time) error {
	if _, err := uuid.Parse(userID); err != nil {
		return nil
	}

	_, err := getExec(ctx, s.db).ExecContext(ctx,
		"UPDATE auth_sessions SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL", at, userID)
	return errors.Wrap(err, "revoking user sessions")
}
