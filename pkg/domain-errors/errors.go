// Package domainerrors defines the typed error taxonomy shared by services and
// transports. Services return *Error values carrying a Code; transports map the
// Code to a wire status without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure. The string value is part of the public
// API and is returned verbatim in HTTP error bodies.
type Code string

// Ledger rule violations.
const (
	CodeInvalidInput        Code = "invalid_input"
	CodeInvalidTerm         Code = "invalid_term"
	CodeUnsupportedTld      Code = "unsupported_tld"
	CodeNameTaken           Code = "name_taken"
	CodeNotFound            Code = "not_found"
	CodeNotOwner            Code = "not_owner"
	CodeUnauthorized        Code = "unauthorized"
	CodeAlreadyExists       Code = "already_exists"
	CodeAlreadyInactive     Code = "already_inactive"
	CodeInactive            Code = "inactive"
	CodeExpired             Code = "expired"
	CodeInsufficientPayment Code = "insufficient_payment"
	CodeDuplicate           Code = "duplicate"
	CodeInvalidMultiplier   Code = "invalid_multiplier"
)

// Infrastructure and transport codes.
const (
	CodeBadRequest      Code = "bad_request"
	CodeUnauthenticated Code = "unauthenticated"
	CodeTimeout         Code = "timeout"
	CodeInternal        Code = "internal_error"
)

// Error is a domain error with a stable code and a human readable message.
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

// New creates a domain error without an underlying cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As returns the outermost *Error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in err's chain has code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}
