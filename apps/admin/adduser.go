package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/user"
)

// addUser creates a user.User; the password policy applies.
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	fmt.Printf("%s %q created (id %d)\n", usr.Role, usr.Email, usr.ID)
	return nil
}
