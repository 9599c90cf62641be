// ABOUTME: Error taxonomy for document storage.
// ABOUTME: ErrNotFound for absent files and IOError for failed filesystem operations.
package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped) when a requested file does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidName is returned when a name would escape the store directory.
var ErrInvalidName = errors.New("invalid filename")

// IOError reports a failed read, write, delete, or list against the store directory.
type IOError struct {
	Op   string
	Name string
	Err  error
}

func (e *IOError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
