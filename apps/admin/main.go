package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/services/email"
	"github.com/trezcool/tasktrack/services/logger"
	"github.com/trezcool/tasktrack/storage/database"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)
	core.ParseEmailTemplates(conf, appLogger)

	// set up DB
	ctx := context.Background()
	repos, err := database.OpenRepositories(ctx, conf)
	errAndDie(err)

	// start CLI
	mailSvc := emailsvc.NewService(conf, appLogger)
	cli := newCommandLine(conf, appLogger, repos, mailSvc, os.Stdout)
	runErr := cli.run(os.Args)
	emailsvc.Wait(mailSvc)

	if err := repos.Close(ctx); err != nil {
		logger.Printf("closing database: %v", err)
	}
	if runErr != nil {
		if runErr != errHelp {
			logger.Printf("\nerror: %s\n", runErr)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
