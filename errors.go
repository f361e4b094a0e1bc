package feedload

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch means a record has a field its table does not declare.
	// It points at a mismatch between the feed and the schema rather than at
	// bad data.
	ErrSchemaMismatch      = errors.New("schema mismatch")
	ErrConversion          = errors.New("conversion failure")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrMalformedTime       = errors.New("malformed time string")
)

// FieldError reports a problem with one field of one record.
type FieldError struct {
	Kind  Kind
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s = %q: %v", e.Kind, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// KeyError reports a failed assignment or lookup in an IDTable.
type KeyError struct {
	Table string
	Key   string
	Err   error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s key %q: %v", e.Table, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// RecordError locates a failed record in the source feed. Row is 0 for
// records that are not read from a single file row.
type RecordError struct {
	File string
	Row  int
	Err  error
}

func (e *RecordError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("%s row %d: %v", e.File, e.Row, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
