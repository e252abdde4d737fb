package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/analytics"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
	"github.com/trezcool/tasktrack/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	repos   *database.Repositories
	usrSvc  *user.Service
	taskSvc *task.Service
	mailSvc core.EmailService
	out     io.Writer
}

func newCommandLine(conf *core.Config, logger core.Logger, repos *database.Repositories, mailSvc core.EmailService, out io.Writer) *commandLine {
	notifSvc := notification.NewService(repos.Notifications)
	return &commandLine{
		conf:    conf,
		repos:   repos,
		usrSvc:  user.NewService(repos.Users, notifSvc, mailSvc, logger, conf),
		taskSvc: task.NewService(repos.Tasks, notifSvc, logger, conf.Tasks.Location()),
		mailSvc: mailSvc,
		out:     out,
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL [-name NAME] [-admin] - create or update a password account")
	fmt.Fprintln(cli.out, "  resetpassword -user UID|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  report [-filter all|active|pending] [-out FILE|-] [-email ADDRESS] - export the student report")
	fmt.Fprintln(cli.out, "  scanoverdue - notify every student of their overdue tasks")
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// promptPassword reads a password from the terminal without echo.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
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

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		fs := cli.flagSet("adduser")
		email := fs.String("email", "", "The user's email. The password will be prompted next.")
		name := fs.String("name", "", "The user's display name.")
		isAdmin := fs.Bool("admin", false, "Give the user the admin role.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *email == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(fs)
		if err != nil {
			return err
		}
		p, err := cli.addUser(*email, *name, pwd, *isAdmin)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s saved (%s)\n", p.Email, p.Role)
		return nil

	case "resetpassword":
		fs := cli.flagSet("resetpassword")
		uid := fs.String("user", "", "The user's UID or email. The password will be prompted next.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *uid == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(fs)
		if err != nil {
			return err
		}
		return cli.resetPassword(*uid, pwd)

	case "report":
		fs := cli.flagSet("report")
		filter := fs.String("filter", string(analytics.ReportAll), "The students to report: all, active or pending.")
		out := fs.String("out", "", "The CSV file to write, \"-\" for stdout. Defaults to the report filename.")
		to := fs.String("email", "", "Also send the report to this address.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		f, err := analytics.ParseReportFilter(*filter)
		if err != nil {
			fs.Usage()
			return err
		}
		return cli.report(f, *out, *to)

	case "scanoverdue":
		return cli.scanOverdue()

	default:
		cli.printUsage()
		return errHelp
	}
}
