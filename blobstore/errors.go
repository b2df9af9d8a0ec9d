package blobstore

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a blob store failure with a machine-readable code, a
// human-readable message and the HTTP status a host layer should map it to.
// Errors compare equal under errors.Is when their codes match, so callers
// test against the predeclared sentinels regardless of the name or range
// attached to a particular instance.
type Error struct {
	// Code identifies the error kind (e.g. "ContainerNotFound").
	Code string
	// Message is a human-readable description of the kind.
	Message string
	// Name is the container or object the failure refers to, if any.
	Name string
	// Start and End carry the offending bounds for InvalidRange.
	Start, End uint64
	// HTTPStatus is the status code a host protocol should report.
	HTTPStatus int
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Code == codeInvalidRange:
		return fmt.Sprintf("%s: start=%d, end=%d", e.Message, e.Start, e.End)
	case e.Name != "":
		return fmt.Sprintf("%s: %s", e.Message, e.Name)
	default:
		return e.Message
	}
}

// Is reports whether target is a blob store error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithName returns a copy of the error bound to the given container or
// object name.
func (e *Error) WithName(name string) *Error {
	cp := *e
	cp.Name = name
	return &cp
}

const codeInvalidRange = "InvalidRange"

// Predeclared error kinds.
var (
	// ErrContainerNotFound is returned when the named container does not exist.
	ErrContainerNotFound = &Error{
		Code:       "ContainerNotFound",
		Message:    "container not found",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrContainerAlreadyExists is returned when creating a container whose
	// name is taken.
	ErrContainerAlreadyExists = &Error{
		Code:       "ContainerAlreadyExists",
		Message:    "container already exists",
		HTTPStatus: http.StatusConflict,
	}

	// ErrObjectNotFound is returned when the named object does not exist.
	ErrObjectNotFound = &Error{
		Code:       "ObjectNotFound",
		Message:    "object not found",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrObjectAlreadyExists is reserved. Writes always overwrite, so no
	// engine path raises it.
	ErrObjectAlreadyExists = &Error{
		Code:       "ObjectAlreadyExists",
		Message:    "object already exists",
		HTTPStatus: http.StatusConflict,
	}

	// ErrInvalidRange is returned when a byte range cannot be served.
	ErrInvalidRange = &Error{
		Code:       codeInvalidRange,
		Message:    "invalid range",
		HTTPStatus: http.StatusRequestedRangeNotSatisfiable,
	}

	// ErrContainerNotEmpty is returned when deleting a container that still
	// holds objects.
	ErrContainerNotEmpty = &Error{
		Code:       "ContainerNotEmpty",
		Message:    "container not empty",
		HTTPStatus: http.StatusConflict,
	}

	// ErrInvalidOperation is returned when a staged value is used outside
	// its lifecycle.
	ErrInvalidOperation = &Error{
		Code:       "InvalidOperation",
		Message:    "invalid operation",
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrIO is reserved for host-layer I/O failures.
	ErrIO = &Error{
		Code:       "IoError",
		Message:    "io error",
		HTTPStatus: http.StatusInternalServerError,
	}

	// ErrInternal is reserved for host-layer internal failures.
	ErrInternal = &Error{
		Code:       "InternalError",
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// InvalidRangeError returns an InvalidRange error carrying the bounds.
func InvalidRangeError(start, end uint64) *Error {
	cp := *ErrInvalidRange
	cp.Start = start
	cp.End = end
	return &cp
}

// InvalidOperation returns an InvalidOperation error with a specific message.
func InvalidOperation(msg string) *Error {
	cp := *ErrInvalidOperation
	cp.Message = msg
	return &cp
}

// HTTPStatus maps err to an HTTP status code. Errors that are not blob store
// errors map to 500.
func HTTPStatus(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Code returns the error code of err, or ErrInternal's code for foreign errors.
func Code(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrInternal.Code
}
