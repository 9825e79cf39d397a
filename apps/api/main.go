package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/gigamonkey/help/apps/api/echo"
	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/class"
	"github.com/gigamonkey/help/core/help"
	"github.com/gigamonkey/help/core/journal"
	"github.com/gigamonkey/help/core/user"
	emailsvc "github.com/gigamonkey/help/services/email"
	logsvc "github.com/gigamonkey/help/services/logger"
	rostersvc "github.com/gigamonkey/help/services/roster"
	"github.com/gigamonkey/help/storage/database"
	sqlxrepos "github.com/gigamonkey/help/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("Failed to close DB", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	var roster class.RosterSource
	if conf.Google.RefreshToken != "" {
		if roster, err = rostersvc.NewGoogleSource(context.Background(), conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up roster: %v", err), err)
		}
	}

	loc := conf.Location()
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), user.NewConfigDirectory(conf), mailSvc)
	helpSvc := help.NewService(sqlxrepos.NewHelpRepository(db, nil), usrSvc, mailSvc, logger)
	journalSvc := journal.NewService(db, sqlxrepos.NewJournalRepository(db, nil), loc)
	classSvc := class.NewService(class.Deps{
		DB:       db,
		Repo:     sqlxrepos.NewClassRepository(db),
		Users:    usrSvc,
		Roster:   roster,
		Help:     helpSvc,
		Journal:  journalSvc,
		Location: loc,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	if conf.Server.DebugHost != "" {
		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:    conf.Server.Address(),
			Logger:     logger,
			UserSvc:    usrSvc,
			HelpSvc:    helpSvc,
			ClassSvc:   classSvc,
			JournalSvc: journalSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
