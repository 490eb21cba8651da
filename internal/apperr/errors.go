// Package apperr holds the error taxonomy shared by services and handlers.
// Every error here renders to a flat {"detail": "..."} body.
package apperr

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// InvalidOrderingError is a ValidationError raised for ordering values outside an allow-list.
type InvalidOrderingError struct {
	Value   string
	Allowed []string
}

func (e *InvalidOrderingError) Error() string {
	msg := "Invalid ordering '" + e.Value + "'"
	if len(e.Allowed) > 0 {
		msg += ". Allowed: " + strings.Join(e.Allowed, ", ")
	}
	return msg
}

type NotFoundError struct {
	Detail string
}

func (e *NotFoundError) Error() string { return e.Detail }

type PermissionError struct {
	Detail string
}

func (e *PermissionError) Error() string { return e.Detail }

type UnauthenticatedError struct {
	Detail string
}

func (e *UnauthenticatedError) Error() string { return e.Detail }

type UnsupportedImageError struct {
	Detail string
}

func (e *UnsupportedImageError) Error() string { return e.Detail }

type RateLimitedError struct {
	Detail string
}

func (e *RateLimitedError) Error() string { return e.Detail }

func Validation(detail string) error       { return &ValidationError{Detail: detail} }
func NotFound(detail string) error         { return &NotFoundError{Detail: detail} }
func Permission(detail string) error       { return &PermissionError{Detail: detail} }
func Unauthenticated(detail string) error  { return &UnauthenticatedError{Detail: detail} }
func UnsupportedImage(detail string) error { return &UnsupportedImageError{Detail: detail} }
func RateLimited(detail string) error      { return &RateLimitedError{Detail: detail} }

// StatusCode maps err (or anything it wraps) to an HTTP status.
func StatusCode(err error) int {
	status, _ := classify(err)
	return status
}

// Detail returns the client-facing message for err. Unclassified errors
// never leak their text.
func Detail(err error) string {
	_, detail := classify(err)
	return detail
}

func classify(err error) (int, string) {
	var (
		validation  *ValidationError
		ordering    *InvalidOrderingError
		notFound    *NotFoundError
		permission  *PermissionError
		unauth      *UnauthenticatedError
		unsupported *UnsupportedImageError
		limited     *RateLimitedError
	)

	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Detail
	case errors.As(err, &ordering):
		return http.StatusBadRequest, ordering.Error()
	case errors.As(err, &unsupported):
		return http.StatusBadRequest, unsupported.Detail
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Detail
	case errors.As(err, &permission):
		return http.StatusForbidden, permission.Detail
	case errors.As(err, &unauth):
		return http.StatusUnauthorized, unauth.Detail
	case errors.As(err, &limited):
		return http.StatusTooManyRequests, limited.Detail
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
