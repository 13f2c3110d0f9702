package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	echoweb "github.com/trezcool/zenacademy/apps/web/echo"
	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/course"
	"github.com/trezcool/zenacademy/core/session"
	"github.com/trezcool/zenacademy/core/user"
	authsvc "github.com/trezcool/zenacademy/services/auth"
	emailsvc "github.com/trezcool/zenacademy/services/email"
	logsvc "github.com/trezcool/zenacademy/services/logger"
	metricsvc "github.com/trezcool/zenacademy/services/metrics"
	"github.com/trezcool/zenacademy/storage/database"
	inmemdb "github.com/trezcool/zenacademy/storage/database/inmem"
	sqlxrepos "github.com/trezcool/zenacademy/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Cleanup releases what the storage layer holds open.
type Cleanup func()

type storageResult struct {
	dig.Out
	Users     user.Repository
	Courses   course.Repository
	Tx        core.Transactor
	AuthStore authsvc.Store
	Bus       authsvc.Bus
	Cleanup   Cleanup
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newStorage sets up the configured engine: process memory, or PostgreSQL with auth events relayed through LISTEN/NOTIFY.
func newStorage(conf *core.Config, loggerParam DBLoggerParam) storageResult {
	dbLogger := loggerParam.Logger

	if conf.Database.Engine == core.EngineMemory {
		dbLogger.Info("using the in-memory store, data is lost on restart")
		db := inmemdb.New()
		return storageResult{
			Users:     inmemdb.NewUserRepository(db),
			Courses:   inmemdb.NewCourseRepository(db),
			Tx:        new(inmemdb.Transactor),
			AuthStore: inmemdb.NewAuthStore(db),
			Bus:       authsvc.NewMemoryBus(),
			Cleanup:   func() {},
		}
	}

	db, err := database.Setup(conf)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	bus, err := authsvc.NewPostgresBus(db, database.DSN(conf.Database.Name, false, conf), dbLogger)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up auth event bus: %v", err), err)
	}

	return storageResult{
		Users:     sqlxrepos.NewUserRepository(db),
		Courses:   sqlxrepos.NewCourseRepository(db),
		Tx:        sqlxrepos.NewTransactor(db),
		AuthStore: sqlxrepos.NewAuthStore(db),
		Bus:       bus,
		Cleanup: func() {
			if err := bus.Close(); err != nil {
				dbLogger.Error("Failed to close auth event bus", err)
			}
			if err := db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		},
	}
}

func newAuthProvider(conf *core.Config, store authsvc.Store, bus authsvc.Bus, logger core.Logger) *authsvc.Provider {
	return authsvc.NewProvider(store, bus, authsvc.Options{
		SecretKey:    conf.SecretKey,
		Issuer:       conf.AppName,
		TokenTTL:     conf.Auth.TokenTTL,
		PasswordCost: conf.Auth.PasswordCost,
	}, logger)
}

func newAuthAdmin(p *authsvc.Provider) auth.Admin {
	return p
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() *validator.Validate {
	return validator.New()
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// newSessionRegistry keeps one session per browser; users.Service serves as the profile store.
func newSessionRegistry(conf *core.Config, p *authsvc.Provider, users *user.Service, logger core.Logger) *session.Registry {
	return session.NewRegistry(
		func(token string) (auth.Client, error) { return p.NewClient(token), nil },
		users,
		logger,
		conf.Server.ClientIdleTTL,
	)
}

type metricsResult struct {
	dig.Out
	Collector *metricsvc.Collector
	Gatherer  prometheus.Gatherer
}

func newMetrics(sessions *session.Registry) metricsResult {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metricsResult{
		Collector: metricsvc.NewCollector(reg, sessions.Len),
		Gatherer:  reg,
	}
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Sessions   *session.Registry
	Users      *user.Service
	Courses    *course.Service
	Validate   *validator.Validate
	Translator ut.Translator
	Metrics    *metricsvc.Collector
	Gatherer   prometheus.Gatherer
}

func newServer(p serverParams) (*echoweb.Server, error) {
	return echoweb.NewServer(echoweb.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Sessions:   p.Sessions,
		Users:      p.Users,
		Courses:    p.Courses,
		Validate:   p.Validate,
		Translator: p.Translator,
		Metrics:    p.Metrics,
		Gatherer:   p.Gatherer,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newAuthProvider))
	must(c.Provide(newAuthAdmin))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(newSessionRegistry))
	must(c.Provide(newMetrics))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
