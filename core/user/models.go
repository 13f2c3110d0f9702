package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/zenacademy/core"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var Roles = []Role{
	{Name: "User", Value: RoleUser},
	{Name: "Admin", Value: RoleAdmin},
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Profile is the application's record of a user. Its ID is the auth identity's ID.
type Profile struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ProfileUpdate holds the profile fields to change; nil fields are left untouched.
type ProfileUpdate struct {
	Name  *string
	Email *string
	Role  *string
}

func (upd ProfileUpdate) IsEmpty() bool {
	return upd.Name == nil && upd.Email == nil && upd.Role == nil
}

func (upd ProfileUpdate) Apply(p *Profile) {
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Email != nil {
		p.Email = *upd.Email
	}
	if upd.Role != nil {
		p.Role = *upd.Role
	}
}

// NewUser contains information needed to create a new user.
type NewUser struct {
	Name     string `json:"name" form:"name" validate:"notblank"`
	Email    string `json:"email" form:"email" validate:"notblank"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role" validate:"userrole"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Role = core.CleanString(nu.Role); nu.Role == "" {
		nu.Role = RoleUser
	}

	if err := validate.Struct(nu); err != nil {
		return core.NewValidationError(ErrNameEmailRequired, core.FieldErrorsOf(err)...)
	}
	if nu.Password == "" {
		return core.NewValidationError(ErrPasswordRequired, core.FieldError{Field: "password", Error: ErrPasswordRequired.Error()})
	}
	return nil
}

// UpdateUser defines what information may be provided to modify an existing user.
// An empty Password leaves the password unchanged.
type UpdateUser struct {
	Name     string `json:"name" form:"name" validate:"notblank"`
	Email    string `json:"email" form:"email" validate:"notblank"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role" validate:"userrole"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	uu.Name = core.CleanString(uu.Name)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	if uu.Role = core.CleanString(uu.Role); uu.Role == "" {
		uu.Role = RoleUser
	}

	if err := validate.Struct(uu); err != nil {
		return core.NewValidationError(ErrNameEmailRequired, core.FieldErrorsOf(err)...)
	}
	return nil
}
