// Package sanitize normalizes and validates untrusted input before it reaches
// storage. Every function returns the canonical form or an *apperror.AppError
// with a specific code.
package sanitize

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sakif/momo-server/internal/apperror"
	"github.com/sakif/momo-server/internal/model"
)

const (
	maxEmailLen    = 254
	maxPasswordLen = 72 // bcrypt input limit, in bytes
	minPasswordLen = 8
	maxItemIDLen   = 128
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Email trims and lowercases raw and checks it is a plausible address.
func Email(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil || len(email) > maxEmailLen {
		return "", apperror.Invalid(apperror.CodeMalformedEmail, "email", "invalid email format")
	}
	return email, nil
}

// Password checks the shape every password must have: non-empty and within
// bcrypt's byte limit. It does not trim; whitespace is significant.
func Password(raw string) (string, error) {
	if err := validate.Var(raw, "required"); err != nil {
		return "", apperror.Invalid(apperror.CodeMalformedPassword, "password", "password is required")
	}
	if len(raw) > maxPasswordLen {
		return "", apperror.Invalid(apperror.CodeMalformedPassword, "password", "password must be 72 bytes or fewer")
	}
	return raw, nil
}

// NewPassword applies Password plus the strength rule for passwords being
// set: at least 8 characters with at least one letter and one digit.
func NewPassword(raw string) (string, error) {
	pw, err := Password(raw)
	if err != nil {
		return "", err
	}
	if err := validate.Var(pw, "min=8"); err != nil {
		return "", apperror.Invalid(apperror.CodeMalformedPassword, "password", "password must be at least 8 characters")
	}

	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return "", apperror.Invalid(apperror.CodeMalformedPassword, "password", "password must contain a letter and a digit")
	}
	return pw, nil
}

// UserID parses raw as a UUID and returns its canonical lowercase form.
func UserID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperror.Invalid(apperror.CodeMalformedUserID, "userId", "userId must be a UUID")
	}
	return id.String(), nil
}

// CollectionEntry validates one requested collection change.
func CollectionEntry(itemID string, state model.CollectionState) (model.CollectionEntry, error) {
	itemID = strings.TrimSpace(itemID)
	if err := validate.Var(itemID, "required,printascii"); err != nil || len(itemID) > maxItemIDLen {
		return model.CollectionEntry{}, apperror.Invalid(apperror.CodeMalformedItem, "itemId", "itemId must be 1-128 printable ASCII characters")
	}
	if !state.Valid() {
		return model.CollectionEntry{}, apperror.Invalid(apperror.CodeMalformedItem, "state", "state must be one of owned, wanted, completed")
	}
	return model.CollectionEntry{ItemID: itemID, State: state}, nil
}
