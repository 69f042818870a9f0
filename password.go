package accounts

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Password policy: 12+ characters with at least one uppercase letter, one
// digit, and one special character.
const passwordMinLength = 12

var (
	uppercasePattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern       = regexp.MustCompile(`[0-9]`)
	specialCharPattern = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
)

var passwordRules = []validation.Rule{
	validation.Required.Error("password is required"),
	validation.Length(passwordMinLength, 0).
		Error("password must be at least 12 characters long"),
	validation.Match(uppercasePattern).
		Error("password must contain at least one uppercase letter"),
	validation.Match(digitPattern).
		Error("password must contain at least one digit"),
	validation.Match(specialCharPattern).
		Error("password must contain at least one special character"),
}

// ValidatePassword checks the cleartext password against the policy and
// returns a validation-category error describing the first failed rule.
func ValidatePassword(password string) error {
	if err := validation.Validate(password, passwordRules...); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password").
			WithTextCode(textCodeInvalidPassword).
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}
