// Package testutil wires an in-memory backend for tests that need the whole stack.
package testutil

import (
	"context"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/course"
	"github.com/trezcool/zenacademy/core/user"
	authsvc "github.com/trezcool/zenacademy/services/auth"
	emailsvc "github.com/trezcool/zenacademy/services/email"
	inmemdb "github.com/trezcool/zenacademy/storage/database/inmem"
)

var parseTemplatesOnce sync.Once

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// Config returns a test-mode config that does not read the environment.
func Config() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "Zen Academy",
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:8000",
		DefaultFromEmail: mail.Address{Name: "Zen Academy", Address: "noreply@zen.test"},
		Server: core.ServerConfig{
			Address:         ":0",
			ShutdownTimeout: time.Second,
			InitWait:        time.Second,
			ClientIdleTTL:   time.Hour,
			SweepInterval:   time.Minute,
			LoginRateLimit:  100,
			LoginBurst:      100,
		},
		Database: core.DatabaseConfig{Engine: core.EngineMemory},
		Auth:     core.AuthConfig{TokenTTL: time.Hour, PasswordCost: bcrypt.MinCost},
	}
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// Backend is every service of the app on top of one in-memory store.
type Backend struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Bus        *authsvc.MemoryBus
	Provider   *authsvc.Provider
	Mail       *emailsvc.ConsoleServiceMock
	Users      *user.Service
	Courses    *course.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

func NewBackend(t *testing.T) *Backend {
	t.Helper()

	conf := Config()
	logger := NopLogger{}
	parseTemplatesOnce.Do(func() { core.ParseEmailTemplates(conf, logger) })

	db := inmemdb.New()
	bus := authsvc.NewMemoryBus()
	provider := authsvc.NewProvider(
		inmemdb.NewAuthStore(db),
		bus,
		authsvc.Options{
			SecretKey:    conf.SecretKey,
			Issuer:       conf.AppName,
			TokenTTL:     conf.Auth.TokenTTL,
			PasswordCost: conf.Auth.PasswordCost,
		},
		logger,
	)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	return &Backend{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Bus:        bus,
		Provider:   provider,
		Mail:       mailSvc,
		Users:      user.NewService(inmemdb.NewUserRepository(db), provider, mailSvc),
		Courses:    course.NewService(inmemdb.NewCourseRepository(db), new(inmemdb.Transactor)),
		Validate:   validate,
		Translator: translator,
	}
}

// CreateUser registers an identity with its profile. role defaults to user.
func CreateUser(t *testing.T, b *Backend, name, email, pwd, role string) user.Profile {
	t.Helper()

	nu := user.NewUser{Name: name, Email: email, Password: pwd, Role: role}
	if err := nu.Validate(b.Validate); err != nil {
		t.Fatalf("CreateUser() invalid: %v", err)
	}
	prof, err := b.Users.Create(context.Background(), nu)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return prof
}

// CreateIdentity registers an identity without a profile.
func CreateIdentity(t *testing.T, b *Backend, email, pwd string) string {
	t.Helper()

	ident, err := b.Provider.SignUp(context.Background(), email, pwd)
	if err != nil {
		t.Fatalf("CreateIdentity() failed: %v", err)
	}
	return ident.ID
}

func CreateModule(t *testing.T, b *Backend, title string) course.Module {
	t.Helper()

	mod, err := b.Courses.CreateModule(context.Background(), course.ModuleForm{Title: title})
	if err != nil {
		t.Fatalf("CreateModule() failed: %v", err)
	}
	return mod
}

func CreateChapter(t *testing.T, b *Backend, moduleID int64, title, link, status string) course.Chapter {
	t.Helper()

	ch, err := b.Courses.CreateChapter(context.Background(), course.ChapterForm{
		Title:       title,
		YoutubeLink: link,
		Status:      status,
		ModuleID:    moduleID,
	})
	if err != nil {
		t.Fatalf("CreateChapter() failed: %v", err)
	}
	return ch
}
