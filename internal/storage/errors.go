package storage

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput    = errors.New("no records to save")
	ErrMissingColumn = errors.New("required column missing")
	ErrBadTimestamp  = errors.New("unparsable timestamp")
	ErrLocked        = errors.New("snapshot locked by another writer")
)

// ValidationError rejects a batch before anything is written.
type ValidationError struct {
	Category string
	Field    string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Category, e.Err, e.Field)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IOError is a filesystem failure while reading or writing a snapshot.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
