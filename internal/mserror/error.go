package mserror

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// A Kind classifies an error for callers and for the HTTP layer.
type Kind string

// Error kinds.
const (
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindInvalidInput     Kind = "invalid_input"
	KindAlreadyDecided   Kind = "already_decided"
	KindStoreUnavailable Kind = "store_unavailable"
	KindInconsistent     Kind = "inconsistent"
	KindUnauthorized     Kind = "unauthorized"
	KindInternal         Kind = "internal"
)

// HTTPStatus returns the HTTP status code rendered for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindAlreadyDecided:
		return http.StatusConflict
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Retryable returns true when the caller may retry the operation as is.
func (k Kind) Retryable() bool {
	return k == KindStoreUnavailable
}

type (
	// An MSError represents the error format that can be rendered by the memeswipe server.
	MSError struct {
		HTTPCode   int   `json:"-"`
		Kind       Kind  `json:"-"`
		FieldError field `json:"error"`
		cause      error
	}

	field struct {
		Tag     string            `json:"tag,omitempty"`
		Stage   string            `json:"stage,omitempty"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	}
)

// New returns a new MSError of the given kind.
func New(kind Kind, message string) *MSError {
	return &MSError{
		HTTPCode:   kind.HTTPStatus(),
		Kind:       kind,
		FieldError: field{Tag: string(kind), Message: message},
	}
}

// Newf returns a new MSError of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *MSError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap returns a new MSError of the given kind caused by err.
func Wrap(err error, kind Kind, message string) *MSError {
	e := New(kind, message)
	e.cause = err
	return e
}

// NotFound returns a not_found error.
func NotFound(message string) *MSError {
	return New(KindNotFound, message)
}

// Forbidden returns a forbidden error.
func Forbidden(message string) *MSError {
	return New(KindForbidden, message)
}

// InvalidInput returns an invalid_input error.
func InvalidInput(message string) *MSError {
	return New(KindInvalidInput, message)
}

// InvalidInputWithDetails returns an invalid_input error with per-field messages.
func InvalidInputWithDetails(message string, details map[string]string) *MSError {
	e := New(KindInvalidInput, message)
	e.FieldError.Details = details
	return e
}

// AlreadyDecided returns an already_decided error.
func AlreadyDecided(message string) *MSError {
	return New(KindAlreadyDecided, message)
}

// StoreUnavailable returns a store_unavailable error caused by err.
func StoreUnavailable(err error, message string) *MSError {
	return Wrap(err, KindStoreUnavailable, message)
}

// Unauthorized returns an unauthorized error.
func Unauthorized(message string) *MSError {
	return New(KindUnauthorized, message)
}

// WithStage sets the stage of the operation which failed.
func (e *MSError) WithStage(stage string) *MSError {
	e.FieldError.Stage = stage
	return e
}

// Stage returns the stage of the operation which failed.
func (e *MSError) Stage() string {
	return e.FieldError.Stage
}

// Message returns the message without the cause.
func (e *MSError) Message() string {
	return e.FieldError.Message
}

// Details returns the per-field messages.
func (e *MSError) Details() map[string]string {
	return e.FieldError.Details
}

// Error implements error interface.
func (e *MSError) Error() string {
	msg := e.FieldError.Message
	if e.FieldError.Stage != "" {
		msg = e.FieldError.Stage + ": " + msg
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the cause of the error.
func (e *MSError) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of the first MSError found in err's chain.
// It returns KindInternal when there is none.
func KindOf(err error) Kind {
	var mserr *MSError
	if errors.As(err, &mserr) {
		return mserr.Kind
	}
	return KindInternal
}

// Is returns true if err's chain contains an MSError of the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// StageOf returns the stage of the first MSError found in err's chain.
func StageOf(err error) string {
	var mserr *MSError
	if errors.As(err, &mserr) {
		return mserr.Stage()
	}
	return ""
}

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	var mserr *MSError
	if errors.As(err, &mserr) {
		return mserr.HTTPCode
	}
	return http.StatusInternalServerError
}
