// Package group contains the classroom group entity. Groups are provisioned
// out-of-band together with the roster; the bot references them but never
// deletes them.
package group

import (
	"context"
	"time"
)

// Group represents a classroom group (one roster group = one Group row).
type Group struct {
	// ID is the internal unique identifier (UUID string).
	ID string

	// Name is the unique human-readable group name, e.g. "10-B".
	Name string

	// Description is an optional free-form description.
	Description string

	// CreatedAt is when the group was provisioned.
	CreatedAt time.Time
}

// Repository defines storage operations over groups.
type Repository interface {
	// GetByID returns a group by internal ID.
	// Returns shared.ErrGroupNotFound when missing.
	GetByID(ctx context.Context, id string) (*Group, error)

	// GetByName returns a group by its unique name.
	// Returns shared.ErrGroupNotFound when missing.
	GetByName(ctx context.Context, name string) (*Group, error)

	// Ensure creates the group if it does not exist yet and returns it.
	// Used at startup to provision groups referenced by the roster.
	Ensure(ctx context.Context, name, description string) (*Group, error)
}
