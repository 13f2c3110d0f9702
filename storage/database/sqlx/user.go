package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/user"
)

const profileColumns = "id, name, email, role, created_at, updated_at"

var profileOrderFields = map[string]bool{"name": true, "email": true, "role": true, "created_at": true}

type userRepository struct {
	db core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DBExecutor) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) QueryProfiles(ctx context.Context, ordering ...core.DBOrdering) ([]user.Profile, error) {
	q := "SELECT " + profileColumns + " FROM users"
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			if !profileOrderFields[ord.Field] {
				return nil, fmt.Errorf("cannot order users by %q", ord.Field)
			}
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	}

	profiles := make([]user.Profile, 0)
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &profiles, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return profiles, nil
}

func (repo userRepository) GetProfile(ctx context.Context, id string) (user.Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.Profile{}, user.ErrNotFound
	}

	var prof user.Profile
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &prof, "SELECT "+profileColumns+" FROM users WHERE id = $1", id)
	if err != nil {
		return user.Profile{}, trapNoRows(err, user.ErrNotFound, "getting user")
	}
	return prof, nil
}

func (repo userRepository) CreateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	_, err := sqlx.NamedExecContext(ctx, getExec(ctx, repo.db),
		"INSERT INTO users ("+profileColumns+") VALUES (:id, :name, :email, :role, :created_at, :updated_at)",
		prof,
	)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "inserting user")
	}
	return prof, nil
}

func (repo userRepository) UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate, updatedAt time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return user.ErrNotFound
	}

	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Email != nil {
		set("email", *upd.Email)
	}
	if upd.Role != nil {
		set("role", *upd.Role)
	}
	set("updated_at", updatedAt)
	args = append(args, id)

	q := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := getExec(ctx, repo.db).ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return rowsAffected(res, user.ErrNotFound)
}

func (repo userRepository) DeleteProfile(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return user.ErrNotFound
	}

	res, err := getExec(ctx, repo.db).ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return rowsAffected(res, user.ErrNotFound)
}
