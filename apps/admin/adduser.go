package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/user"
)

// addUser updates or creates a user: the auth identity first, then its profile.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role := user.RoleUser
	if isAdmin {
		role = user.RoleAdmin
	}

	ident, err := cli.accounts.LookupEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		if _, err = cli.accounts.UpdateUserByID(ctx, ident.ID, auth.UserAttributes{Password: pwd}); err != nil {
			return errors.Wrap(err, "updating password")
		}
	case auth.ErrUserNotFound:
		if ident, err = cli.accounts.SignUp(ctx, email, pwd); err != nil {
			return errors.Wrap(err, "signing up")
		}
	default:
		return errors.Wrap(err, "looking up email")
	}

	now := time.Now().UTC()
	_, err = cli.profiles.GetProfile(ctx, ident.ID)
	switch errors.Cause(err) {
	case nil:
		upd := user.ProfileUpdate{Name: &name, Email: &email, Role: &role}
		return errors.Wrap(cli.profiles.UpdateProfile(ctx, ident.ID, upd, now), "updating profile")
	case user.ErrNotFound:
		_, err = cli.profiles.CreateProfile(ctx, user.Profile{
			ID:        ident.ID,
			Name:      name,
			Email:     email,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return errors.Wrap(err, "creating profile")
	default:
		return errors.Wrap(err, "getting profile")
	}
}
