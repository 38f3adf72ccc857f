package query

import "errors"

// Builder errors
var (
	// ErrNoColumns is returned when an insert is executed without any
	// column having been set.
	ErrNoColumns = errors.New("insert query has no columns")

	// ErrNoFieldsSet is returned when an update is executed and every
	// field was left unchanged.
	ErrNoFieldsSet = errors.New("update query has no fields set")

	// ErrNoPredicate is returned when an update is executed without an
	// equality predicate. Unconstrained updates are never rendered.
	ErrNoPredicate = errors.New("update query has no predicate")
)

// IsNoFieldsSet checks if the error indicates an update with zero
// written fields.
func IsNoFieldsSet(err error) bool {
	return errors.Is(err, ErrNoFieldsSet)
}

// IsNoPredicate checks if the error indicates a missing WHERE clause.
func IsNoPredicate(err error) bool {
	return errors.Is(err, ErrNoPredicate)
}
