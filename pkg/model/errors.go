package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an identity lookup matches no row.
var ErrNotFound = errors.New("record not found")

// IsNotFound checks if an error is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// DecodeError reports a row that did not match the record type's
// shape. It is fatal: the schema and the type disagree, and retrying
// cannot fix that.
type DecodeError struct {
	Table string
	err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s row: %v", e.Table, e.err)
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

// IsDecode checks whether err is a row decode failure.
func IsDecode(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// ValidationError reports a field-level precondition failure. Entity
// modules raise it before opening a transaction, so a rejected write
// never touches the database.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// IsValidation checks whether err is a validation failure.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
