package run

import (
	"context"
	"errors"
)

// ErrRunNotFound is returned when a run cannot be found by ID.
var ErrRunNotFound = errors.New("run: not found")

// Repository stores run records.
type Repository interface {
	// Save inserts or replaces the record for r.ID.
	Save(ctx context.Context, r *Run) error

	// FindByID returns ErrRunNotFound if the run does not exist.
	FindByID(ctx context.Context, id string) (*Run, error)

	// List returns all runs, newest first.
	List(ctx context.Context) ([]*Run, error)

	// Delete returns ErrRunNotFound if the run does not exist.
	Delete(ctx context.Context, id string) error
}
