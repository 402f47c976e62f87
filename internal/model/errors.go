package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSourceFile marks a configured input file that does not exist.
	ErrMissingSourceFile = errors.New("missing source file")
	// ErrLockedSourceFile marks an input workbook held open by another program.
	ErrLockedSourceFile = errors.New("locked source file")
)

// MissingSourceFileError is fatal: the run cannot proceed with a partial input.
type MissingSourceFileError struct {
	Path string
}

func (e *MissingSourceFileError) Error() string {
	return fmt.Sprintf("could not find source file %q: check the path in the config", e.Path)
}

func (e *MissingSourceFileError) Unwrap() error { return ErrMissingSourceFile }

// LockedSourceFileError is fatal: the workbook is open in another application.
type LockedSourceFileError struct {
	Path string
	Err  error
}

func (e *LockedSourceFileError) Error() string {
	return fmt.Sprintf("source file %q is open in another program: close it and run again", e.Path)
}

func (e *LockedSourceFileError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLockedSourceFile}
	}
	return []error{ErrLockedSourceFile, e.Err}
}
