// Package domainerrors carries coded errors from services to transports.
//
// Services return *Error values (or wrap lower-level errors with Wrap) so the
// HTTP layer can translate a Code into a status without string matching.
// Infrastructure facts such as "row missing" belong in pkg/platform/sentinel;
// services translate those into a Code here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeBadRequest           Code = "bad_request"
	CodeValidation           Code = "validation_error"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeInvalidTransition    Code = "invalid_transition"
	CodeVersionConflict      Code = "version_conflict"
	CodeUnauthorizedTransfer Code = "unauthorized_transfer"
	CodeChainBroken          Code = "chain_broken"
	CodeBackpressure         Code = "backpressure"
	CodeUnauthorized         Code = "unauthorized"
	CodeTimeout              Code = "timeout"
	CodeInvariantViolation   Code = "invariant_violation"
	CodeInternal             Code = "internal_error"
)

// Error is a coded domain error. Err, when set, is the underlying cause and is
// never shown to clients.
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

// New returns a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
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

// GetCode returns the outermost code in err's chain, or CodeInternal when err
// carries none.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Message returns the client-safe message of the outermost *Error.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
