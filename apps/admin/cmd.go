package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/gigamonkey/help/core/class"
	"github.com/gigamonkey/help/core/help"
	"github.com/gigamonkey/help/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sqlx.DB
	usrRepo  user.Repository
	usrSvc   user.Service
	classSvc *class.Service
	helpSvc  *help.Service
	out      io.Writer
	loc      *time.Location
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                          - run a goose command (up, down, status, redo, ...)")
	fmt.Println("  adduser -email EMAIL [-name NAME] [-admin]       - create or update a user; the password is prompted")
	fmt.Println("  resetpassword -email EMAIL                      - reset user's password")
	fmt.Println("  createclass -name NAME [-id ID] -teacher EMAIL  - create a class")
	fmt.Println("  loadclass -class ID -file ROSTER.json           - add the students of a roster file to a class")
	fmt.Println("  queue -class ID [-status STATUS]                - print the help requests of a class")
	fmt.Println("  stats -class ID [-ordering FIELDS]              - print the student stats of a class")
}

// promptPassword reads a password from the terminal, returning errHelp when none is typed.
func promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's preferred name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Make the user an admin.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	createClassCmd := flag.NewFlagSet("createclass", flag.ContinueOnError)
	createClassID := createClassCmd.String("id", "", "The class id. Derived from the name when empty.")
	createClassName := createClassCmd.String("name", "", "The class name.")
	createClassTeacher := createClassCmd.String("teacher", "", "The teacher's email.")

	loadClassCmd := flag.NewFlagSet("loadclass", flag.ContinueOnError)
	loadClassID := loadClassCmd.String("class", "", "The class id.")
	loadClassFile := loadClassCmd.String("file", "", "A JSON file of Classroom student resources.")

	queueCmd := flag.NewFlagSet("queue", flag.ContinueOnError)
	queueClassID := queueCmd.String("class", "", "The class id.")
	queueStatus := queueCmd.String("status", string(help.StatusQueued), "One of queued, in_progress, done or discarded.")

	statsCmd := flag.NewFlagSet("stats", flag.ContinueOnError)
	statsClassID := statsCmd.String("class", "", "The class id.")
	statsOrdering := statsCmd.String("ordering", "", "Comma separated fields, prefixed with - for descending order.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserEmail, *addUserName, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "createclass":
		if err := createClassCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createClassName == "" || *createClassTeacher == "" {
			createClassCmd.Usage()
			return errHelp
		}
		return cli.createClass(*createClassID, *createClassName, *createClassTeacher)

	case "loadclass":
		if err := loadClassCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loadClassID == "" || *loadClassFile == "" {
			loadClassCmd.Usage()
			return errHelp
		}
		return cli.loadClass(*loadClassID, *loadClassFile)

	case "queue":
		if err := queueCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *queueClassID == "" {
			queueCmd.Usage()
			return errHelp
		}
		return cli.printQueue(*queueClassID, help.Status(*queueStatus))

	case "stats":
		if err := statsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *statsClassID == "" {
			statsCmd.Usage()
			return errHelp
		}
		return cli.printStats(*statsClassID, *statsOrdering)

	default:
		cli.printUsage()
		return errHelp
	}
}
