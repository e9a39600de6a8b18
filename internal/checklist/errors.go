package checklist

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPath     = errors.New("please select a valid Excel file")
	ErrNothingSelected = errors.New("no valid lines found or no sections selected to write")
	ErrCancelled       = errors.New("save cancelled by user")
	ErrCopyFailed      = errors.New("failed to copy file")
	ErrOpen            = errors.New("failed to open workbook")
	ErrSave            = errors.New("failed to save workbook")
)

// UnprotectError is the only failure that aborts a run once sheets are
// being written. Nothing written earlier in the run is saved.
type UnprotectError struct {
	Sheet string
	Err   error
}

func (e *UnprotectError) Error() string {
	return fmt.Sprintf("failed to unprotect sheet %q, check password: %v", e.Sheet, e.Err)
}

func (e *UnprotectError) Unwrap() error {
	return e.Err
}
