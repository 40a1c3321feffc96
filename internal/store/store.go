// Package store persists the per-class minimum stock policy.
package store

import (
	"context"
	"errors"
)

// Store errors. Callers match them with errors.Is.
var (
	// ErrUnknownClass is returned when a class is not in the catalog.
	ErrUnknownClass = errors.New("unknown class")
	// ErrInvalidConstraint is returned for negative constraint values.
	ErrInvalidConstraint = errors.New("invalid constraint")
	// ErrMalformedStore is returned when persisted state cannot be parsed.
	ErrMalformedStore = errors.New("malformed constraint store")
	// ErrStoreWrite is returned when an update could not be persisted. The
	// previous state is left in place.
	ErrStoreWrite = errors.New("constraint store write failed")
	// ErrNoRow is returned by Set when the class is in the catalog but the
	// persisted table has no row for it. Set never creates rows, so nothing
	// was written.
	ErrNoRow = errors.New("no constraint row for class")
)

// ConstraintStore maps catalog classes to minimum stock levels.
type ConstraintStore interface {
	// Initialize seeds every catalog class with 0 when no state exists yet.
	// Existing state is never touched.
	Initialize(ctx context.Context) error
	// LoadAll returns the persisted constraint of every catalog class that
	// has one.
	LoadAll(ctx context.Context) (map[string]int, error)
	// Set replaces the constraint of one class. It fails with ErrNoRow when
	// the table has no row for class.
	Set(ctx context.Context, class string, value int) error
}

// Header is the column layout of the persisted table.
var Header = []string{"Class", "Constraint"}

type row struct {
	class string
	value int
}
