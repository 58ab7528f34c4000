// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for the API boundary. Handlers map codes to
// HTTP statuses; services never leak raw store errors past a Code.
type Code string

const (
	CodeAuthentication Code = "AUTHENTICATION_ERROR"
	CodePermission     Code = "PERMISSION_ERROR"
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeNotFound       Code = "NOT_FOUND"
	CodeInvalidState   Code = "INVALID_STATE"
	CodeConflict       Code = "CONCURRENCY_CONFLICT"
	CodeStorage        Code = "STORAGE_ERROR"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Authentication(message string) *Error {
	return &Error{Code: CodeAuthentication, Message: message}
}

func Permission(message string) *Error {
	return &Error{Code: CodePermission, Message: message}
}

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

func InvalidState(message string) *Error {
	return &Error{Code: CodeInvalidState, Message: message}
}

// Conflict signals that a conditional update matched zero rows because
// another writer won the race. The caller should refetch and retry.
func Conflict(resource string) *Error {
	return &Error{
		Code:    CodeConflict,
		Message: resource + " was modified by another user, please refresh and try again",
	}
}

func Storage(message string, err error) *Error {
	return &Error{Code: CodeStorage, Message: message, Err: err}
}

// CodeOf returns the classification of err, or CodeStorage for anything
// that is not an *Error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStorage
}

// MessageOf returns the user-facing message for err. Storage detail is
// intentionally not surfaced.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Code == CodeStorage {
			return "an internal error occurred"
		}
		return appErr.Message
	}
	return "an internal error occurred"
}
