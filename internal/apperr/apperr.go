// Package apperr carries a machine-readable error kind alongside the human reason.
package apperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindBusinessRule Kind = "business_rule"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Error wraps a sentinel with its kind and a caller-facing detail message.
type Error struct {
	Kind    Kind
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details == "" {
		return e.Err.Error()
	}
	return e.Details
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, err error, format string, args ...any) *Error {
	details := ""
	if format != "" {
		details = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Err: err, Details: details}
}

func Validation(err error, format string, args ...any) *Error {
	return newErr(KindValidation, err, format, args...)
}

func NotFound(err error, format string, args ...any) *Error {
	return newErr(KindNotFound, err, format, args...)
}

func Business(err error, format string, args ...any) *Error {
	return newErr(KindBusinessRule, err, format, args...)
}

func Forbidden(err error, format string, args ...any) *Error {
	return newErr(KindForbidden, err, format, args...)
}

func Unauthorized(err error, format string, args ...any) *Error {
	return newErr(KindUnauthorized, err, format, args...)
}

func Conflict(err error, format string, args ...any) *Error {
	return newErr(KindConflict, err, format, args...)
}

// ErrSerialization is returned when the database aborts a transaction to keep it serializable.
// The caller may retry.
var ErrSerialization = errors.New("concurrent modification, retry the request")

// KindOf reports the kind of err, defaulting to internal for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FromDB maps postgres serialization failures and deadlocks to a retryable conflict.
// Typed errors pass through unchanged.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return &Error{Kind: KindConflict, Err: ErrSerialization, Details: ErrSerialization.Error()}
		}
	}
	return err
}
