package service

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// RegisterInput is a registration request. AvatarPath and CoverImagePath are
// local temp files waiting to be uploaded to the asset store.
type RegisterInput struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	FullName       string `json:"fullName"`
	AvatarPath     string `json:"avatar"`
	CoverImagePath string `json:"coverImage"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
}

// Validate checks the text fields. The avatar is checked separately, after
// the uniqueness check.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Password, validation.Required, validation.By(notBlank), validation.Length(1, 256)),
		validation.Field(&in.FullName, validation.Required, validation.Length(1, 200)),
	)
}

// LoginInput identifies the account by username or email.
type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginInput) normalize() {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in LoginInput) Validate() error {
	if in.Username == "" && in.Email == "" {
		return errors.New("username or email is required")
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Password, validation.Required),
	)
}

// ChangePasswordInput replaces the password of an authenticated identity.
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (in ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.OldPassword, validation.Required),
		validation.Field(&in.NewPassword, validation.Required, validation.By(notBlank), validation.Length(1, 256)),
	)
}

// AccountDetailsInput updates profile fields.
type AccountDetailsInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (in *AccountDetailsInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in AccountDetailsInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
	)
}

// notBlank rejects strings made only of whitespace. Passwords are not
// trimmed, so Required alone would accept them.
func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// invalid turns a validation error into a classified one.
func invalid(err error) *Error {
	return fail(ErrValidation, err.Error())
}
