// Package apperr defines the error taxonomy shared by every service.
//
// Services return *Error for anything a caller may act on. The Message is
// stable and safe to display; Cause carries the underlying failure for logs
// and is never rendered to clients.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is a machine-readable error category.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindPreconditionFailed Kind = "precondition_failed"
	KindPayloadTooLarge    Kind = "payload_too_large"
	KindExpired            Kind = "expired"
	KindRevoked            Kind = "revoked"
	KindViewLimitExceeded  Kind = "view_limit_exceeded"
	KindInternal           Kind = "internal"
)

// GenericMessage replaces storage-layer details in client-facing errors.
const GenericMessage = "something went wrong, please try again"

type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error { return New(KindValidation, message) }

// ValidationFields carries per-field problems alongside the summary message.
func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func Unauthorized(message string) *Error       { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error          { return New(KindForbidden, message) }
func NotFound(message string) *Error           { return New(KindNotFound, message) }
func PreconditionFailed(message string) *Error { return New(KindPreconditionFailed, message) }
func PayloadTooLarge(message string) *Error    { return New(KindPayloadTooLarge, message) }
func Expired(message string) *Error            { return New(KindExpired, message) }
func Revoked(message string) *Error            { return New(KindRevoked, message) }
func ViewLimitExceeded(message string) *Error  { return New(KindViewLimitExceeded, message) }

// Internal hides cause behind the generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: GenericMessage, Cause: cause}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code used by the HTTP surface.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindPreconditionFailed:
		return http.StatusConflict
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindExpired, KindRevoked:
		return http.StatusGone
	case KindViewLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return GenericMessage
}
