package main

import (
	"errors"

	"github.com/trezcool/tasktrack/storage/database"
)

var (
	gooseRunFunc = database.RunMigration // mockable

	errNoSQL = errors.New("migrations only apply to the postgres and sqlite engines")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.repos.SQL == nil {
		return errNoSQL
	}
	return gooseRunFunc(cli.repos.SQL, args[0], args[1:]...)
}
