// Package apperror defines the typed errors returned by handlers and the
// single translator that turns them into JSON responses.  Handlers never write
// error bodies themselves; they return an error and let Echo's HTTPErrorHandler
// (see Handler) decide the status code and envelope.
package apperror

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// Error is a classified failure.  Code is the HTTP status the client sees,
// Name is a short machine-friendly reason and Message is safe to show to users.
// Err optionally wraps the underlying cause, which is logged but never sent.
type Error struct {
	Code    int
	Name    string
	Message string
	Err     error
	stack   string
}

// New builds an Error and records the call stack for non-production responses.
func New(code int, name, message string) *Error {
	return &Error{Code: code, Name: name, Message: message, stack: string(debug.Stack())}
}

// Wrap is like New but keeps err as the cause.
func Wrap(err error, code int, name, message string) *Error {
	e := New(code, name, message)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Message, e.Err)
	}
	return e.Name + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns "fail" for client errors and "error" for everything else.
func (e *Error) Status() string {
	if e.Code >= 400 && e.Code < 500 {
		return "fail"
	}
	return "error"
}

// Stack returns the stack captured when the error was created.
func (e *Error) Stack() string { return e.stack }

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, "BadRequest", message)
}

func Unauthorized(name, message string) *Error {
	return New(http.StatusUnauthorized, name, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, "Forbidden", message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, "NotFound", message)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, "Conflict", message)
}

func RangeNotSatisfiable(message string) *Error {
	return New(http.StatusRequestedRangeNotSatisfiable, "RangeNotSatisfiable", message)
}

// Internal wraps an unexpected failure.  The message stays generic.
func Internal(err error, message string) *Error {
	return Wrap(err, http.StatusInternalServerError, "InternalServerError", message)
}
