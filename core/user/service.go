package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
)

var (
	// errors
	ErrNotFound          = errors.New("user profile not found")
	ErrNameEmailRequired = errors.New("Name and email are required")
	ErrPasswordRequired  = errors.New("Password is required for new users")
	ErrSelfDelete        = errors.New("you cannot delete your own account")
)

type (
	Repository interface {
		QueryProfiles(ctx context.Context, ordering ...core.DBOrdering) ([]Profile, error)
		GetProfile(ctx context.Context, id string) (Profile, error)
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
		UpdateProfile(ctx context.Context, id string, upd ProfileUpdate, updatedAt time.Time) error
		DeleteProfile(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		admin   auth.Admin
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, admin auth.Admin, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, admin: admin, mailSvc: mailSvc}
}

// Query lists all profiles ordered by name.
func (svc *Service) Query(ctx context.Context) ([]Profile, error) {
	return svc.repo.QueryProfiles(ctx, core.DBOrdering{Field: "name", Ascending: true})
}

func (svc *Service) GetProfile(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfile(ctx, id)
}

func (svc *Service) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	return svc.repo.UpdateProfile(ctx, id, upd, time.Now().UTC())
}

// Create registers the identity with the auth provider, then inserts its profile and sends a welcome email.
// A profile insert failure leaves the identity in place.
func (svc *Service) Create(ctx context.Context, nu NewUser) (Profile, error) {
	ident, err := svc.admin.SignUp(ctx, nu.Email, nu.Password)
	if err != nil {
		return Profile{}, errors.Wrap(err, "signing up")
	}

	now := time.Now().UTC()
	prof, err := svc.repo.CreateProfile(ctx, Profile{
		ID:        ident.ID,
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Profile{}, errors.Wrap(err, "creating profile")
	}

	svc.sendWelcomeEmail(prof)
	return prof, nil
}

// Update pushes a changed email to the auth provider, writes the profile, then sets a new password.
// The auth email is restored if the profile cannot be written, so login and profile emails never diverge.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (Profile, error) {
	orig, err := svc.repo.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, err
	}

	upd := ProfileUpdate{Name: &uu.Name, Role: &uu.Role}
	if uu.Email != orig.Email {
		upd.Email = &uu.Email
		if _, err = svc.admin.UpdateUserByID(ctx, id, auth.UserAttributes{Email: uu.Email}); err != nil {
			return Profile{}, errors.Wrap(err, "updating auth email")
		}
	}

	if err = svc.repo.UpdateProfile(ctx, id, upd, time.Now().UTC()); err != nil {
		if upd.Email != nil {
			if _, rbErr := svc.admin.UpdateUserByID(ctx, id, auth.UserAttributes{Email: orig.Email}); rbErr != nil {
				err = errors.Wrapf(err, "restoring auth email: %v", rbErr)
			}
		}
		return Profile{}, errors.Wrap(err, "updating profile")
	}

	if uu.Password != "" {
		if _, err = svc.admin.UpdateUserByID(ctx, id, auth.UserAttributes{Password: uu.Password}); err != nil {
			return Profile{}, errors.Wrap(err, "updating password")
		}
	}

	upd.Apply(&orig)
	return orig, nil
}

// Delete removes the profile, then the auth identity. actorID is the admin performing the deletion.
func (svc *Service) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfDelete
	}
	if err := svc.repo.DeleteProfile(ctx, id); err != nil {
		return errors.Wrap(err, "deleting profile")
	}
	if err := svc.admin.DeleteUser(ctx, id); err != nil {
		return errors.Wrap(err, "deleting auth user")
	}
	return nil
}

func (svc *Service) sendWelcomeEmail(prof Profile) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: prof.Name, Address: prof.Email}},
		Subject:      "Welcome to Zen Academy",
		TemplateName: "welcome",
		TemplateData: map[string]string{"Name": prof.Name, "Email": prof.Email},
	})
}
