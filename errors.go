package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	textCodeUnknownStatus     = "UNKNOWN_STATUS"
	textCodeUserNotFound      = "USER_NOT_FOUND"
	textCodeUserExists        = "USER_ALREADY_EXISTS"
	textCodeInvalidPassword   = "INVALID_PASSWORD"
	textCodeValidation        = "VALIDATION_ERROR"
)

// ErrInvalidTransition is returned when a status change would leave the
// terminal deleted state.
var ErrInvalidTransition = goerrors.New("invalid user status transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrUnknownStatus is returned when a value outside the closed status set
// is supplied.
var ErrUnknownStatus = goerrors.New("unknown user status", goerrors.CategoryBadInput).
	WithTextCode(textCodeUnknownStatus).
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString is returned when an empty password is hashed.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match
// its stored hash.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidPassword)

// NewUserNotFound builds the not-found error for a user lookup.
func NewUserNotFound(identifier string) *goerrors.Error {
	return goerrors.New("user not found", goerrors.CategoryNotFound).
		WithTextCode(textCodeUserNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

// NewUserAlreadyExists builds the conflict error for duplicate usernames
// or emails.
func NewUserAlreadyExists(field, value string) *goerrors.Error {
	return goerrors.New("user already exists", goerrors.CategoryConflict).
		WithTextCode(textCodeUserExists).
		WithCode(goerrors.CodeConflict).
		WithMetadata(map[string]any{
			"field": field,
			"value": value,
		})
}

// IsUserNotFound checks for the user not-found error kind.
func IsUserNotFound(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == textCodeUserNotFound
	}
	return false
}

// IsUserAlreadyExists checks for the duplicate-user error kind.
func IsUserAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == textCodeUserExists
	}
	return false
}

// IsInvalidTransition checks for the invalid-transition error kind.
func IsInvalidTransition(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == textCodeInvalidTransition
	}
	return false
}
