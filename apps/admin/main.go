package main

import (
	"log"
	"os"

	"github.com/trezcool/zenacademy/core"
	authsvc "github.com/trezcool/zenacademy/services/auth"
	logsvc "github.com/trezcool/zenacademy/services/logger"
	"github.com/trezcool/zenacademy/storage/database"
	sqlxrepos "github.com/trezcool/zenacademy/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	if conf.Database.Engine != core.EnginePostgres {
		logger.Fatalf("the admin CLI manages a postgres database, got engine %q", conf.Database.Engine)
	}
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	// set up DB; migrations are left to the migrate command
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	bus, err := authsvc.NewPostgresBus(db, database.DSN(conf.Database.Name, false, conf), appLogger)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db: db.DB,
		accounts: authsvc.NewProvider(sqlxrepos.NewAuthStore(db), bus, authsvc.Options{
			SecretKey:    conf.SecretKey,
			Issuer:       conf.AppName,
			TokenTTL:     conf.Auth.TokenTTL,
			PasswordCost: conf.Auth.PasswordCost,
		}, appLogger),
		profiles: sqlxrepos.NewUserRepository(db),
	}
	err = cli.run(os.Args)

	_ = bus.Close()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
