// Package mtperr maps internal failure kinds onto the MTP response-code
// space (spec.md §7) and provides a typed, wrappable error value for use
// throughout the responder and storage engine.
package mtperr

import (
	"errors"
	"fmt"

	"github.com/marmos91/mtpd/internal/mtptypes"
)

// Error pairs an MTP response code with the operation that produced it and
// an optional underlying cause.
type Error struct {
	Code mtptypes.ResponseCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, code mtptypes.ResponseCode) *Error {
	return &Error{Op: op, Code: code}
}

// Wrap builds an *Error carrying an underlying cause.
func Wrap(op string, code mtptypes.ResponseCode, err error) *Error {
	return &Error{Op: op, Code: code, Err: err}
}

// CodeOf extracts the MTP response code from err, defaulting to
// GeneralError when err does not carry one (spec.md §7).
func CodeOf(err error) mtptypes.ResponseCode {
	if err == nil {
		return mtptypes.OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return mtptypes.GeneralError
}

// Is reports whether err (or a cause it wraps) carries the given code.
func Is(err error, code mtptypes.ResponseCode) bool {
	return CodeOf(err) == code
}
