package apperr

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error is the typed failure every handler funnels into the response
// envelope. StatusCode drives the HTTP status; Errs carries field-level
// detail when there is any.
type Error struct {
	StatusCode int
	Message    string
	Errs       []string

	cause error
	stack string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Stack returns the captured trace, empty unless the error was classified
// from an unexpected failure.
func (e *Error) Stack() string { return e.stack }

func New(status int, message string, errs ...string) *Error {
	return &Error{StatusCode: status, Message: message, Errs: errs}
}

func Validation(message string, errs ...string) *Error {
	return New(http.StatusBadRequest, message, errs...)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

func Authentication(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

func Upload(message string) *Error {
	return New(http.StatusInternalServerError, message)
}

func Persistence(message string) *Error {
	return New(http.StatusInternalServerError, message)
}

func Internal(message string) *Error {
	return New(http.StatusInternalServerError, message)
}

// uniqueViolation is the postgres class 23 code raised by unique indexes.
const uniqueViolation = "23505"

// From normalizes any failure into an *Error. Typed application errors pass
// through unchanged. Store-level constraint violations classify to 409,
// other postgres errors to 400, everything unrecognized to 500 with a trace
// captured for development-mode responses.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := http.StatusBadRequest
		if pgErr.Code == uniqueViolation {
			status = http.StatusConflict
		}
		return &Error{
			StatusCode: status,
			Message:    pgErr.Message,
			cause:      err,
			stack:      string(debug.Stack()),
		}
	}

	msg := "something went wrong"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Message:    msg,
		cause:      err,
		stack:      string(debug.Stack()),
	}
}

// Envelope is the uniform client-facing error body.
type Envelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
	Message    string   `json:"message"`
	Stack      string   `json:"stack,omitempty"`
}

// Envelope renders the error. The stack is attached only when includeStack
// is set; production callers must pass false.
func (e *Error) Envelope(includeStack bool) Envelope {
	errs := e.Errs
	if errs == nil {
		errs = []string{}
	}
	env := Envelope{
		StatusCode: e.StatusCode,
		Data:       nil,
		Success:    false,
		Errors:     errs,
		Message:    e.Message,
	}
	if includeStack {
		env.Stack = e.stack
	}
	return env
}
