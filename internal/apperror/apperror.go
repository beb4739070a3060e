// Package apperror defines the application's error taxonomy.
//
// Every expected failure is an *AppError that wraps one of the sentinel errors
// below and carries a stable, machine-readable Code. Clients branch on the
// code; the sentinel decides the HTTP status class.
//
// ErrInternal is the odd one out: it marks stored-state corruption (a valid
// token for a user that does not exist, an OAuth link pointing nowhere). Those
// are defects, not caller mistakes, and the HTTP layer reports them as a
// generic 500 without leaking the message.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream failure")
	ErrInternal     = errors.New("internal inconsistency")
)

// Code is the machine-readable identifier sent to clients in error bodies.
// The spellings are part of the public API and must not change.
type Code string

const (
	CodeNotAuthenticated      Code = "notAuthenticated"
	CodeTokenExpired          Code = "tokenExpired"
	CodeTokenMalformed        Code = "tokenMalformed"
	CodeTokenInvalidSignature Code = "tokenInvalidSignature"
	CodeUserExisted           Code = "userExisted"
	CodeUserNotFound          Code = "userNotFound"
	CodePasswordUnmatch       Code = "passwordUnmatch"
	CodeMalformedEmail        Code = "malformedEmail"
	CodeMalformedPassword     Code = "malformedPassword"
	CodeMalformedUserID       Code = "malformedUserId"
	CodeMalformedItem         Code = "malformedItem"
	CodeEmailUnverified       Code = "emailUnverified"
	CodeOAuthFailed           Code = "oauthFailed"
	CodeRateLimited           Code = "rateLimited"
	CodeNotFound              Code = "notFound"
	CodeValidation            Code = "validationError"
	CodeConflict              Code = "conflict"
	CodeForbidden             Code = "forbidden"
	CodeInternal              Code = "internalError"
)

type AppError struct {
	Err     error  // sentinel, decides the status class
	Code    Code   // machine-readable code for clients
	Message string // human-readable message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError with an explicit sentinel and code.
func New(sentinel error, code Code, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Code:    code,
		Message: message,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

// Invalid is ValidationFailed with a specific code, e.g. CodeMalformedEmail.
func Invalid(code Code, field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Code:    CodeForbidden,
		Message: message,
	}
}

// Unauthorized reports a failed authentication with the given code.
func Unauthorized(code Code, message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Code:    code,
		Message: message,
	}
}

// Inconsistency reports stored-state corruption. Callers must not try to
// recover from it.
func Inconsistency(format string, args ...any) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Code:    CodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf returns the Code carried by err, or CodeInternal when err is not an
// *AppError.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return CodeInternal
}
