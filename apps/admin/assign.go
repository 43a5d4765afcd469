package main

import "context"

// assign replaces the classes of a teacher.
func (cli *commandLine) assign(ctx context.Context, email string, classIDs []int64) error {
	return cli.usrSvc.AssignClasses(ctx, email, classIDs)
}
