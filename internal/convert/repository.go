package convert

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned when a record cannot be found by ID.
var ErrRecordNotFound = errors.New("conversion record not found")

// Repository defines the port for conversion record persistence.
type Repository interface {
	// Save persists a record. An existing record with the same ID is replaced.
	Save(ctx context.Context, record *Record) error

	// FindByID retrieves a record by job token.
	// Returns ErrRecordNotFound if it does not exist.
	FindByID(ctx context.Context, id string) (*Record, error)

	// List returns all records, newest first.
	List(ctx context.Context) ([]*Record, error)

	// Delete removes a record.
	// Returns ErrRecordNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
