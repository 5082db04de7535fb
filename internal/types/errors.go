package types

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryNotFound is returned when the input path is missing or not a directory.
	ErrDirectoryNotFound = errors.New("meteragg: directory not found")
	// ErrMalformedDocument is returned when a file is not well-formed XML.
	ErrMalformedDocument = errors.New("meteragg: malformed document")
	// ErrUnreadableFile is returned when a listed file cannot be opened, such
	// as a broken symlink or a permission error.
	ErrUnreadableFile = errors.New("meteragg: unreadable file")
	// ErrMissingField is returned when a required timestamp or identity is absent.
	ErrMissingField = errors.New("meteragg: missing field")
	// ErrUnrecognizedQuantity marks a document identity matching neither marker.
	// It is reported as a warning and never aborts a run.
	ErrUnrecognizedQuantity = errors.New("meteragg: unrecognized quantity")
	// ErrUnrecognizedDialect is returned for a well-formed document of neither dialect.
	ErrUnrecognizedDialect = errors.New("meteragg: unrecognized dialect")
	// ErrConflictingReading is returned under the strict merge policy when two
	// files disagree on the same quantity for the same period.
	ErrConflictingReading = errors.New("meteragg: conflicting reading")
)

// FileError ties a failure to the file that caused it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError wraps err with the offending path. A nil err stays nil.
func NewFileError(path string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FileError
	if errors.As(err, &fe) && fe.Path == path {
		return err
	}
	return &FileError{Path: path, Err: err}
}

// MissingField builds an ErrMissingField naming the absent field.
func MissingField(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
