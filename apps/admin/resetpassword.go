package main

import (
	"context"

	"github.com/trezcool/zenacademy/core/auth"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	ident, err := cli.accounts.LookupEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.accounts.UpdateUserByID(ctx, ident.ID, auth.UserAttributes{Password: pwd})
	return err
}
