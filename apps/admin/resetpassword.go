package main

import (
	"context"

	"github.com/trezcool/mahudhurio/core/user"
)

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	return cli.usrSvc.ResetPassword(ctx, email, user.ResetPassword{Password: pwd, PasswordConfirm: pwd})
}
