package core

import (
	"errors"
	"fmt"
)

// Workspace error taxonomy. Callers match with errors.Is; constructors
// below attach the offending entity so messages stay uniform.
var (
	// ErrNotFound indicates an operation referenced a missing
	// collection, folder, request, or environment id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a structurally invalid input, such
	// as an empty required name.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPersistence indicates a serialization or storage failure.
	// In-memory state stays authoritative until the next successful write.
	ErrPersistence = errors.New("persistence failure")

	// ErrTransport indicates a network or timeout failure reported by
	// the execution service.
	ErrTransport = errors.New("transport failure")
)

// NotFoundf wraps ErrNotFound with entity context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidArgumentf wraps ErrInvalidArgument with detail.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// PersistenceErr wraps an underlying storage error into the taxonomy.
func PersistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
