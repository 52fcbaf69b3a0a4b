package apperr

import (
	"errors"
)

// Error codes
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEvaluation         = "EVALUATION_FAILURE"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is a coded error returned at the service boundary. Two errors match
// under errors.Is when their codes are equal.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New creates a new Error
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a new Error carrying cause
func Wrap(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Predefined errors, usable as errors.Is targets
var (
	ErrValidation         = New(CodeValidation, "invalid input")
	ErrAlreadyExists      = New(CodeAlreadyExists, "already exists")
	ErrNotFound           = New(CodeNotFound, "not found")
	ErrInvalidCredentials = New(CodeInvalidCredentials, "invalid username or password")
	ErrEvaluation         = New(CodeEvaluation, "evaluation failed")
	ErrInternal           = New(CodeInternal, "internal error")
)

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func AlreadyExists(message string) *Error {
	return New(CodeAlreadyExists, message)
}

func Evaluation(message string, cause error) *Error {
	return Wrap(CodeEvaluation, message, cause)
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Message returns a user-facing message for err. Uncoded errors are reported
// generically so storage details do not leak to the screen.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeInternal {
		return e.Message
	}
	return ErrInternal.Message
}
