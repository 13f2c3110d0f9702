package authsvc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/zenacademy/core/auth"
	authsvc "github.com/trezcool/zenacademy/services/auth"
	inmemdb "github.com/trezcool/zenacademy/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newProvider(t *testing.T, ttl time.Duration) (*authsvc.Provider, *authsvc.MemoryBus) {
	t.Helper()
	bus := authsvc.NewMemoryBus()
	p := authsvc.NewProvider(
		inmemdb.NewAuthStore(inmemdb.New()),
		bus,
		authsvc.Options{SecretKey: "secret", Issuer: "Zen Academy", TokenTTL: ttl, PasswordCost: bcrypt.MinCost},
		nopLogger{},
	)
	return p, bus
}

type eventLog struct {
	mu     sync.Mutex
	events []auth.Event
}

func (l *eventLog) listen(ev auth.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) types() []auth.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]auth.EventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

func waitForEvents(t *testing.T, l *eventLog, want ...auth.EventType) {
	t.Helper()
	assert.Eventually(t, func() bool { return len(l.types()) >= len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, l.types())
}

func TestProvider_SignUpAndSignIn(t *testing.T) {
	p, _ := newProvider(t, time.Hour)
	ctx := context.Background()

	ident, err := p.SignUp(ctx, " Jane@Zen.io ", "secret-pwd")
	require.NoError(t, err)
	assert.Equal(t, "jane@zen.io", ident.Email)

	_, err = p.SignUp(ctx, "jane@zen.io", "other")
	assert.Equal(t, auth.ErrEmailTaken, errors.Cause(err))

	_, err = p.SignUp(ctx, "john@zen.io", "")
	assert.Equal(t, auth.ErrMissingPassword, err)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "valid", email: "jane@zen.io", pwd: "secret-pwd"},
		{name: "case insensitive email", email: "JANE@zen.io", pwd: "secret-pwd"},
		{name: "wrong password", email: "jane@zen.io", pwd: "nope", wantErr: auth.ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@zen.io", pwd: "secret-pwd", wantErr: auth.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := p.SignInWithPassword(ctx, tt.email, tt.pwd)
			if err != tt.wantErr {
				t.Fatalf("SignInWithPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			assert.Equal(t, ident.ID, sess.User.ID)
			assert.NotEmpty(t, sess.AccessToken)

			verified, err := p.Verify(ctx, sess.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, sess.ID, verified.ID)
			assert.False(t, verified.User.LastSignInAt.IsZero())
		})
	}
}

func TestProvider_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage", func(t *testing.T) {
		p, _ := newProvider(t, time.Hour)
		_, err := p.Verify(ctx, "not-a-token")
		assert.Equal(t, auth.ErrSessionMissing, err)
	})

	t.Run("expired", func(t *testing.T) {
		p, _ := newProvider(t, -time.Minute)
		_, err := p.SignUp(ctx, "jane@zen.io", "pwd")
		require.NoError(t, err)
		sess, err := p.SignInWithPassword(ctx, "jane@zen.io", "pwd")
		require.NoError(t, err)

		_, err = p.Verify(ctx, sess.AccessToken)
		assert.Equal(t, auth.ErrSessionExpired, err)
	})

	t.Run("revoked", func(t *testing.T) {
		p, _ := newProvider(t, time.Hour)
		_, err := p.SignUp(ctx, "jane@zen.io", "pwd")
		require.NoError(t, err)
		sess, err := p.SignInWithPassword(ctx, "jane@zen.io", "pwd")
		require.NoError(t, err)

		require.NoError(t, p.SignOut(ctx, sess.AccessToken))
		_, err = p.Verify(ctx, sess.AccessToken)
		assert.Equal(t, auth.ErrSessionExpired, err)

		require.NoError(t, p.SignOut(ctx, sess.AccessToken), "signing out twice is fine")
	})
}

func TestProvider_UpdateUserByID(t *testing.T) {
	p, bus := newProvider(t, time.Hour)
	ctx := context.Background()
	var notices []authsvc.Notice
	defer bus.Subscribe(func(n authsvc.Notice) { notices = append(notices, n) })()

	jane, err := p.SignUp(ctx, "jane@zen.io", "pwd")
	require.NoError(t, err)
	_, err = p.SignUp(ctx, "john@zen.io", "pwd")
	require.NoError(t, err)

	ident, err := p.UpdateUserByID(ctx, jane.ID, auth.UserAttributes{Email: "Janet@zen.io", Password: "new-pwd"})
	require.NoError(t, err)
	assert.Equal(t, "janet@zen.io", ident.Email)

	_, err = p.SignInWithPassword(ctx, "janet@zen.io", "pwd")
	assert.Equal(t, auth.ErrInvalidCredentials, err)
	_, err = p.SignInWithPassword(ctx, "janet@zen.io", "new-pwd")
	assert.NoError(t, err)

	_, err = p.UpdateUserByID(ctx, jane.ID, auth.UserAttributes{Email: "john@zen.io"})
	assert.Equal(t, auth.ErrEmailTaken, errors.Cause(err))

	_, err = p.UpdateUserByID(ctx, "ghost", auth.UserAttributes{Password: "x"})
	assert.Equal(t, auth.ErrUserNotFound, errors.Cause(err))

	require.Len(t, notices, 1)
	assert.Equal(t, authsvc.Notice{Type: auth.UserUpdated, UserID: jane.ID}, notices[0])
}

func TestClient_lifecycle(t *testing.T) {
	p, _ := newProvider(t, time.Hour)
	ctx := context.Background()
	_, err := p.SignUp(ctx, "jane@zen.io", "pwd")
	require.NoError(t, err)

	c := p.NewClient("")
	defer c.Close()
	log := &eventLog{}
	sub := c.OnAuthStateChange(log.listen)
	defer sub.Unsubscribe()

	sess, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)

	_, err = c.SignInWithPassword(ctx, "jane@zen.io", "nope")
	assert.Equal(t, auth.ErrInvalidCredentials, err)
	assert.Empty(t, c.AccessToken())

	sess, err = c.SignInWithPassword(ctx, "jane@zen.io", "pwd")
	require.NoError(t, err)
	assert.Equal(t, sess.AccessToken, c.AccessToken())

	restored, err := p.NewClient(c.AccessToken()).GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, sess.ID, restored.ID)

	require.NoError(t, c.SignOut(ctx))
	assert.Empty(t, c.AccessToken())
	require.NoError(t, c.SignOut(ctx), "no session is a no-op")

	waitForEvents(t, log, auth.SignedIn, auth.SignedOut)
}

func TestClient_GetSession_dropsDeadToken(t *testing.T) {
	p, _ := newProvider(t, time.Hour)
	c := p.NewClient("garbage")
	defer c.Close()

	sess, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Empty(t, c.AccessToken())
}

func TestClient_crossClientEvents(t *testing.T) {
	p, _ := newProvider(t, time.Hour)
	ctx := context.Background()
	jane, err := p.SignUp(ctx, "jane@zen.io", "pwd")
	require.NoError(t, err)

	laptop, phone := p.NewClient(""), p.NewClient("")
	defer laptop.Close()
	defer phone.Close()

	_, err = laptop.SignInWithPassword(ctx, "jane@zen.io", "pwd")
	require.NoError(t, err)
	_, err = phone.SignInWithPassword(ctx, "jane@zen.io", "pwd")
	require.NoError(t, err)

	laptopLog, phoneLog := &eventLog{}, &eventLog{}
	laptop.OnAuthStateChange(laptopLog.listen)
	phone.OnAuthStateChange(phoneLog.listen)

	// phone only hears about its own session
	require.NoError(t, laptop.SignOut(ctx))
	_, err = phone.GetSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, phone.AccessToken())

	_, err = p.UpdateUserByID(ctx, jane.ID, auth.UserAttributes{Password: "new"})
	require.NoError(t, err)
	require.NoError(t, p.DeleteUser(ctx, jane.ID))
	assert.Empty(t, phone.AccessToken())

	waitForEvents(t, laptopLog, auth.SignedOut)
	waitForEvents(t, phoneLog, auth.UserUpdated, auth.UserDeleted)
}

func TestClient_Close(t *testing.T) {
	p, bus := newProvider(t, time.Hour)
	c := p.NewClient("")
	log := &eventLog{}
	c.OnAuthStateChange(log.listen)

	require.NoError(t, c.Close())
	late := c.OnAuthStateChange(log.listen)
	late.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), authsvc.Notice{Type: auth.UserDeleted, UserID: "x"}))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, log.types())
}
