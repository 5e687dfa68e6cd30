// Package domainerrors carries coded, structured errors across service
// boundaries. Services return these instead of panicking or relying on
// string matching; transports translate the code into a response.
//
// The four workflow outcomes every caller must be able to tell apart:
//   - CodeValidation: mandatory fields or documents are missing (Details lists them)
//   - CodeGuardViolation: a decision field required by the transition is absent
//   - CodeTerminalState: the submission is closed to further action
//   - CodeIntegrity: an ordering or history bug (duplicate review, skipped stage)
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and transports.
type Code string

const (
	CodeValidation         Code = "validation_error"
	CodeGuardViolation     Code = "guard_violation"
	CodeTerminalState      Code = "terminal_state"
	CodeIntegrity          Code = "integrity_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
)

// Error is a coded error with an optional list of details (for validation
// errors, the ordered list of missing requirements).
type Error struct {
	Code    Code
	Message string
	Details []string
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

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// NewWithDetails creates a coded error that carries an ordered detail list.
// The slice is copied so later mutation by the caller cannot leak in.
func NewWithDetails(code Code, message string, details []string) error {
	return &Error{Code: code, Message: message, Details: append([]string(nil), details...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any coded error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message, or err.Error() for uncoded
// errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// DetailsOf returns the details of the outermost coded error.
func DetailsOf(err error) []string {
	var de *Error
	if errors.As(err, &de) {
		return append([]string(nil), de.Details...)
	}
	return nil
}
