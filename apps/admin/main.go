package main

import (
	"fmt"
	"os"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/class"
	"github.com/gigamonkey/help/core/help"
	"github.com/gigamonkey/help/core/journal"
	"github.com/gigamonkey/help/core/user"
	emailsvc "github.com/gigamonkey/help/services/email"
	logsvc "github.com/gigamonkey/help/services/logger"
	"github.com/gigamonkey/help/storage/database"
	sqlxrepos "github.com/gigamonkey/help/storage/database/sqlx"
)

func main() {
	conf := core.Conf
	logger := logsvc.NewStdLogger(conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	// set up services
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(false)
	mailSvc := emailsvc.NewConsoleService(appLogger)

	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, user.NewConfigDirectory(conf), mailSvc)
	helpSvc := help.NewService(sqlxrepos.NewHelpRepository(db, nil), usrSvc, nil, appLogger)
	journalSvc := journal.NewService(db, sqlxrepos.NewJournalRepository(db, nil), conf.Location())

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: usrRepo,
		usrSvc:  usrSvc,
		classSvc: class.NewService(class.Deps{
			DB:       db,
			Repo:     sqlxrepos.NewClassRepository(db),
			Users:    usrSvc,
			Help:     helpSvc,
			Journal:  journalSvc,
			Location: conf.Location(),
		}),
		helpSvc: helpSvc,
		out:     os.Stdout,
		loc:     conf.Location(),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %+v\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
