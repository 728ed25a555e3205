package dto

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

type RegisterDTO struct {
	Email      string `json:"email"      validate:"required,email"`
	Password   string `json:"password"   validate:"required,strongpwd"`
	FirstName  string `json:"firstName"  validate:"required,max=120"`
	LastName   string `json:"lastName"   validate:"required,max=120"`
	Phone      string `json:"phone"      validate:"omitempty,max=32"`
	NationalID string `json:"nationalId" validate:"omitempty,min=3,max=32"`
	Role       string `json:"role"       validate:"omitempty,oneof=ADMIN OWNER MANAGER TENANT"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,strongpwd"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordDTO struct {
	UserID      string `json:"userId"      validate:"required,uuid"`
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,strongpwd"`
}

// UpdateProfileDTO carries a partial update; nil fields are left untouched.
// Email, role and password have dedicated flows and are not updatable here.
type UpdateProfileDTO struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=120"`
	LastName  *string `json:"lastName"  validate:"omitempty,min=1,max=120"`
	Phone     *string `json:"phone"     validate:"omitempty,max=32"`
}

// RegisterValidations installs the custom validators the DTO tags above
// reference. strongpwd: at least 8 characters with one lowercase, one
// uppercase, one digit and one symbol.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
		pwd := fl.Field().String()
		if len(pwd) < 8 {
			return false
		}
		var hasLower, hasUpper, hasDigit, hasSymbol bool
		for _, r := range pwd {
			switch {
			case unicode.IsLower(r):
				hasLower = true
			case unicode.IsUpper(r):
				hasUpper = true
			case unicode.IsDigit(r):
				hasDigit = true
			default:
				hasSymbol = true
			}
		}
		return hasLower && hasUpper && hasDigit && hasSymbol
	})
}
