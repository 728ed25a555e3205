package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInternal        = errors.New("internal error")

	ErrUserNotFound            = errors.New("user not found")
	ErrUserAlreadyExists       = errors.New("user already exists")
	ErrNationalIDAlreadyExists = errors.New("national id already registered")

	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountDeactivated     = errors.New("account deactivated")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")

	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrTokenRequired       = errors.New("access token required")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")

	ErrEmailNotVerified     = errors.New("email not verified")
	ErrEmailAlreadyVerified = errors.New("email already verified")

	ErrNotAuthenticated        = errors.New("not authenticated")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrUserAlreadyExists) || errors.Is(err, ErrNationalIDAlreadyExists)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrAccountDeactivated) ||
		errors.Is(err, ErrInvalidRefreshToken) ||
		errors.Is(err, ErrTokenRequired) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrEmailNotVerified) ||
		errors.Is(err, ErrNotAuthenticated)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrInsufficientPermissions)
}

// Code returns the machine-readable code reported to clients for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUserAlreadyExists):
		return "USER_ALREADY_EXISTS"
	case errors.Is(err, ErrNationalIDAlreadyExists):
		return "NATIONAL_ID_ALREADY_EXISTS"
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, ErrAccountDeactivated):
		return "ACCOUNT_DEACTIVATED"
	case errors.Is(err, ErrInvalidCurrentPassword):
		return "INVALID_CURRENT_PASSWORD"
	case errors.Is(err, ErrInvalidRefreshToken):
		return "INVALID_REFRESH_TOKEN"
	case errors.Is(err, ErrTokenRequired):
		return "TOKEN_REQUIRED"
	case errors.Is(err, ErrTokenExpired):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrInvalidToken):
		return "INVALID_TOKEN"
	case errors.Is(err, ErrEmailNotVerified):
		return "EMAIL_NOT_VERIFIED"
	case errors.Is(err, ErrEmailAlreadyVerified):
		return "EMAIL_ALREADY_VERIFIED"
	case errors.Is(err, ErrUserNotFound):
		return "USER_NOT_FOUND"
	case errors.Is(err, ErrNotAuthenticated):
		return "NOT_AUTHENTICATED"
	case errors.Is(err, ErrInsufficientPermissions):
		return "INSUFFICIENT_PERMISSIONS"
	case errors.Is(err, ErrInvalidArgument):
		return "VALIDATION_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
