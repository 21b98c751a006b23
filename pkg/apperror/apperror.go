package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies domain errors so handlers can map them to HTTP statuses
// without inspecting error strings.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindUnprocessableTransition
	KindNoPendingApproval
	KindNoEligibleApprover
	KindInsufficientStock
)

// Error is the domain error type shared by services and repositories.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to the status code returned at the API boundary.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnprocessableTransition, KindNoPendingApproval, KindNoEligibleApprover, KindInsufficientStock:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict signals an optimistic-lock mismatch or lock-wait timeout.
// Callers must refetch the current version before retrying.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// UnprocessableTransition reports an illegal status change, naming both the
// current and the attempted status.
func UnprocessableTransition(current, target string) *Error {
	return &Error{
		Kind:    KindUnprocessableTransition,
		Message: fmt.Sprintf("cannot transition from '%s' to '%s'", current, target),
	}
}

func NoPendingApproval(step int) *Error {
	return &Error{
		Kind:    KindNoPendingApproval,
		Message: fmt.Sprintf("no pending approval found for step %d", step),
	}
}

func NoEligibleApprover(role string) *Error {
	return &Error{
		Kind:    KindNoEligibleApprover,
		Message: fmt.Sprintf("no active user with role %s available for assignment", role),
	}
}

// InsufficientStock is a defined outcome of the reservation check, not a
// caller-visible failure of the approve operation.
func InsufficientStock(itemName string) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for item '%s'", itemName),
	}
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// As extracts an *Error from err if present.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
