package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error kind returned to API clients.
type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeNotFound             Code = "NOT_FOUND"
	CodeConflict             Code = "CONFLICT"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeQuotaExceeded        Code = "QUOTA_EXCEEDED"
	CodePaymentNotConfigured Code = "PAYMENT_NOT_CONFIGURED"
	CodeInvalidSignature     Code = "INVALID_SIGNATURE"
	CodeIdempotency          Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit            Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal             Code = "INTERNAL_ERROR"
	CodeDependency           Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP and to the task retry policy.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func meta(status int, public string, retryable, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: public, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:           meta(http.StatusBadRequest, "validation failed", false, true),
	CodeUnauthorized:         meta(http.StatusUnauthorized, "authentication required", false, false),
	CodeForbidden:            meta(http.StatusForbidden, "access denied", false, false),
	CodeNotFound:             meta(http.StatusNotFound, "resource not found", false, false),
	CodeConflict:             meta(http.StatusConflict, "conflict detected", false, false),
	CodeInvalidTransition:    meta(http.StatusUnprocessableEntity, "invalid status transition", false, true),
	CodeQuotaExceeded:        meta(http.StatusForbidden, "monthly invoice quota exceeded", false, true),
	CodePaymentNotConfigured: meta(http.StatusConflict, "payment not configured", false, false),
	CodeInvalidSignature:     meta(http.StatusBadRequest, "invalid webhook signature", false, false),
	CodeIdempotency:          meta(http.StatusConflict, "idempotency key reused", false, true),
	CodeRateLimit:            meta(http.StatusTooManyRequests, "rate limit exceeded", false, false),
	CodeInternal:             meta(http.StatusInternalServerError, "internal server error", true, false),
	CodeDependency:           meta(http.StatusServiceUnavailable, "dependency unavailable", true, true),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error. The message is internal; clients see the code's
// public message plus details when the code allows them.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// Status is the HTTP status for e's code.
func (e *Error) Status() int {
	return MetadataFor(e.Code()).HTTPStatus
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether the outermost coded error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
