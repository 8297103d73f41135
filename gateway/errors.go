package gateway

import (
	"errors"
	"fmt"

	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/store"
)

// RemoteError is returned by every failed gateway call. Message carries the backend's
// own wording, which callers classify by substring.
type RemoteError struct {
	Table   string
	Op      string
	Message string

	kind  error
	cause error
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() []error {
	unwrapped := []error{e.kind}
	if e.cause != nil {
		unwrapped = append(unwrapped, e.cause)
	}
	return unwrapped
}

func NewRemoteError(table, op string, kind error, message string) *RemoteError {
	return &RemoteError{
		Table:   table,
		Op:      op,
		Message: message,
		kind:    kind,
	}
}

func rowLevelSecurityError(table, op string) *RemoteError {
	return NewRemoteError(table, op, errs.Unauthorized,
		fmt.Sprintf("new row violates row-level security policy for table %q", table))
}

func notFoundError(table, op, id string) *RemoteError {
	return NewRemoteError(table, op, errs.NotFound,
		fmt.Sprintf("no row in table %q matches id %q", table, id))
}

func ForeignKeyError(table, op, column string) *RemoteError {
	return NewRemoteError(table, op, errs.ConstraintViolation,
		fmt.Sprintf("insert or update on table %q violates foreign key constraint %q", table, fmt.Sprintf("%s_%s_fkey", table, column)))
}

func remoteError(table, op string, err error) *RemoteError {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote
	}

	var e *RemoteError
	switch {
	case store.IsNotFoundError(err):
		e = NewRemoteError(table, op, errs.NotFound, fmt.Sprintf("no rows returned from table %q", table))
	case store.IsDuplicateKeyError(err):
		e = NewRemoteError(table, op, errs.Duplicate, fmt.Sprintf("duplicate key value violates unique constraint on table %q", table))
	case store.IsNetworkError(err):
		e = NewRemoteError(table, op, errs.BadGateway, fmt.Sprintf("network error: failed to reach backend: %v", err))
	default:
		e = NewRemoteError(table, op, errs.InternalServerError, err.Error())
	}
	e.cause = err
	return e
}
