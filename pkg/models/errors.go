package models

import "fmt"

// ValidationError represents a configuration or operation validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// PreconditionError is a fatal check that failed before any mutation
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Message
}

// PathError is an I/O failure on a specific file
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ExecutionError is a failed batch sent to the destination
type ExecutionError struct {
	Kind    ActionKind
	Batch   int
	Batches int
	Size    int
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s batch %d/%d (%d files) failed: %v", e.Kind, e.Batch, e.Batches, e.Size, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
