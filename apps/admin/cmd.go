package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword       // mockable
	migrateFunc      = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sql.DB
	usrSvc *user.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                            - run a goose command (up, down, status, ...)")
	fmt.Println("  adduser -name NAME -email EMAIL -role ROLE        - create a user; the password is prompted")
	fmt.Println("  resetpassword -email EMAIL                        - reset a user's password; the password is prompted")
	fmt.Println("  assign -email EMAIL -classes ID[,ID...]           - replace the classes assigned to a teacher")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email, used to log in.")
	addUserRole := addUserCmd.String("role", string(user.RoleTeacher), "admin|teacher")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	assignCmd := flag.NewFlagSet("assign", flag.ContinueOnError)
	assignEmail := assignCmd.String("email", "", "The teacher's email.")
	assignClasses := assignCmd.String("classes", "", "Comma separated class ids; empty to unassign every class.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, user.NewUser{
			Name:            *addUserName,
			Email:           *addUserEmail,
			Role:            user.Role(*addUserRole),
			Password:        pwd,
			PasswordConfirm: pwd,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)

	case "assign":
		if err := assignCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assignEmail == "" {
			assignCmd.Usage()
			return errHelp
		}
		classIDs, err := parseIDs(*assignClasses)
		if err != nil {
			return err
		}
		return cli.assign(ctx, *assignEmail, classIDs)

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id < 1 {
			return nil, errors.Errorf("invalid class id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
