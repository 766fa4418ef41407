package bed

import (
	"errors"
	"fmt"
)

// Reasons a record can fail normalization. ParseError wraps exactly one of these.
var (
	ErrEmptyLine      = errors.New("empty line")
	ErrFieldCount     = errors.New("wrong number of fields")
	ErrInvalidField   = errors.New("cannot parse field")
	ErrInvalidStrand  = errors.New("strand is not + or -")
	ErrBlockMismatch  = errors.New("block starts and sizes differ in length")
	ErrExonOutsideCDS = errors.New("exon lies outside the CDS window")
	ErrInvalidBounds  = errors.New("coordinates out of order or out of range")
)

// ParseError describes why a single BED12 line was rejected.
type ParseError struct {
	Field  string // offending column, empty when the whole line is at fault
	Reason error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Reason
}

func fieldError(field string, reason error) error {
	return &ParseError{Field: field, Reason: reason}
}
