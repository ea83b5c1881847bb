package ingest

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var ErrEmptyFile = errors.New("uploaded file is empty")

// FileFormatError rejects an upload before any parse attempt.
type FileFormatError struct {
	Filename  string
	Extension string
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q for %s: expected .csv, .xlsx or .xls", e.Extension, e.Filename)
}

// SchemaDetectionError is returned once every parse strategy has failed to
// produce the required canonical columns.
type SchemaDetectionError struct {
	Missing []string
	Found   []string
}

func (e *SchemaDetectionError) Error() string {
	return fmt.Sprintf("missing required columns: %s. Columns found: %s",
		strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

// RowExtractionError marks a skipped row. Line is the 1-based line of the
// source file.
type RowExtractionError struct {
	Line  int
	Label string
}

func (e *RowExtractionError) Error() string {
	return fmt.Sprintf("row %d: could not extract product code from '%s'", e.Line, e.Label)
}

// UnreadableFileError means no reader could decode the upload at all, as
// opposed to decoding it without finding the required columns.
type UnreadableFileError struct {
	Filename string
	Err      error
}

func (e *UnreadableFileError) Error() string {
	return fmt.Sprintf("could not read %s: %v", e.Filename, e.Err)
}

func (e *UnreadableFileError) Unwrap() error {
	return e.Err
}

func IsFileFormat(err error) bool {
	var target *FileFormatError
	return errors.As(err, &target)
}

func IsSchemaDetection(err error) bool {
	var target *SchemaDetectionError
	return errors.As(err, &target)
}

func IsUnreadable(err error) bool {
	var target *UnreadableFileError
	return errors.As(err, &target)
}
