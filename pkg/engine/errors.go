package engine

import "fmt"

// ConflictError reports an attempt to register a mapping whose ID is
// already taken.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stub mapping %q already registered", e.ID)
}

// NotFoundError reports an operation against an unknown mapping ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("stub mapping %q not found", e.ID)
}
