// Package authsvc is the application's own authentication provider:
// password accounts, revocable sessions carried by signed access tokens, and auth events.
package authsvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
)

type (
	Options struct {
		SecretKey    string
		Issuer       string
		TokenTTL     time.Duration
		PasswordCost int
	}

	Provider struct {
		store   Store
		bus     Bus
		signer  tokenSigner
		ttl     time.Duration
		cost    int
		logger  core.Logger
		nowFunc func() time.Time
	}
)

var _ auth.Admin = (*Provider)(nil) // interface compliance check

func NewProvider(store Store, bus Bus, opts Options, logger core.Logger) *Provider {
	cost := opts.PasswordCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	p := &Provider{
		store:   store,
		bus:     bus,
		ttl:     opts.TokenTTL,
		cost:    cost,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
	p.signer = tokenSigner{
		key:     []byte(opts.SecretKey),
		issuer:  opts.Issuer,
		nowFunc: func() time.Time { return p.nowFunc() },
	}
	return p
}

// NewClient returns a browser client restoring the session carried by token (empty for none).
func (p *Provider) NewClient(token string) *Client {
	return newClient(p, token)
}

// SignUp creates an account. It does not sign in.
func (p *Provider) SignUp(ctx context.Context, email, password string) (auth.Identity, error) {
	email = core.CleanString(email, true /* lower */)
	if password == "" {
		return auth.Identity{}, auth.ErrMissingPassword
	}
	hash, err := p.hash(password)
	if err != nil {
		return auth.Identity{}, err
	}

	now := p.nowFunc()
	acct := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = p.store.CreateAccount(ctx, acct); err != nil {
		return auth.Identity{}, err
	}
	return acct.Identity(), nil
}

// LookupEmail finds the identity registered with email.
func (p *Provider) LookupEmail(ctx context.Context, email string) (auth.Identity, error) {
	acct, err := p.store.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return auth.Identity{}, err
	}
	return acct.Identity(), nil
}

// SignInWithPassword opens a new session. Unknown emails and wrong passwords are indistinguishable.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	acct, err := p.store.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == auth.ErrUserNotFound {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	if err = bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	now := p.nowFunc()
	rec := SessionRecord{
		ID:        uuid.NewString(),
		UserID:    acct.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.ttl),
	}
	if err = p.store.CreateSession(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "creating session")
	}

	acct.LastSignInAt = null.TimeFrom(now)
	if err = p.store.UpdateAccount(ctx, acct); err != nil {
		p.logger.Warn("authsvc: recording last sign in", err)
	}
	return p.session(acct, rec)
}

// Verify resolves an access token to its live session.
func (p *Provider) Verify(ctx context.Context, token string) (*auth.Session, error) {
	c, err := p.signer.parse(token, false)
	if err != nil {
		return nil, err
	}
	rec, err := p.store.GetSession(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if !rec.Active(p.nowFunc()) {
		return nil, auth.ErrSessionExpired
	}
	acct, err := p.store.GetAccountByID(ctx, rec.UserID)
	if err != nil {
		if errors.Cause(err) == auth.ErrUserNotFound {
			return nil, auth.ErrSessionMissing
		}
		return nil, err
	}

	sess := &auth.Session{ID: rec.ID, AccessToken: token, ExpiresAt: rec.ExpiresAt, User: acct.Identity()}
	return sess, nil
}

// SignOut revokes the session carried by token, even an expired one.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	c, err := p.signer.parse(token, true)
	if err != nil {
		return err
	}
	if err = p.store.RevokeSession(ctx, c.ID, p.nowFunc()); err != nil {
		if errors.Cause(err) == auth.ErrSessionMissing {
			return nil
		}
		return errors.Wrap(err, "revoking session")
	}
	p.publish(ctx, Notice{Type: auth.SignedOut, UserID: c.Subject, SessionID: c.ID})
	return nil
}

// UpdateUser changes the account owning the session carried by token.
func (p *Provider) UpdateUser(ctx context.Context, token string, attrs auth.UserAttributes) (auth.Identity, error) {
	sess, err := p.Verify(ctx, token)
	if err != nil {
		return auth.Identity{}, err
	}
	return p.UpdateUserByID(ctx, sess.User.ID, attrs)
}

func (p *Provider) UpdateUserByID(ctx context.Context, id string, attrs auth.UserAttributes) (auth.Identity, error) {
	acct, err := p.store.GetAccountByID(ctx, id)
	if err != nil {
		return auth.Identity{}, err
	}

	if email := core.CleanString(attrs.Email, true /* lower */); email != "" {
		acct.Email = email
	}
	if attrs.Password != "" {
		if acct.PasswordHash, err = p.hash(attrs.Password); err != nil {
			return auth.Identity{}, err
		}
	}
	acct.UpdatedAt = p.nowFunc()
	if err = p.store.UpdateAccount(ctx, acct); err != nil {
		return auth.Identity{}, err
	}

	p.publish(ctx, Notice{Type: auth.UserUpdated, UserID: acct.ID})
	return acct.Identity(), nil
}

// DeleteUser revokes every session of the user, then removes the account.
func (p *Provider) DeleteUser(ctx context.Context, id string) error {
	if err := p.store.RevokeUserSessions(ctx, id, p.nowFunc()); err != nil {
		return errors.Wrap(err, "revoking sessions")
	}
	if err := p.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	p.publish(ctx, Notice{Type: auth.UserDeleted, UserID: id})
	return nil
}

func (p *Provider) session(acct Account, rec SessionRecord) (*auth.Session, error) {
	token, err := p.signer.sign(acct, rec)
	if err != nil {
		return nil, err
	}
	return &auth.Session{ID: rec.ID, AccessToken: token, ExpiresAt: rec.ExpiresAt, User: acct.Identity()}, nil
}

func (p *Provider) hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	return hash, errors.Wrap(err, "hashing password")
}

// publish is best effort: the change already happened.
func (p *Provider) publish(ctx context.Context, n Notice) {
	if err := p.bus.Publish(ctx, n); err != nil {
		p.logger.Error("authsvc: publishing "+string(n.Type), err)
	}
}
