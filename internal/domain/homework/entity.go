// Package homework contains the homework assignment entity and its
// storage contract. Homework visibility is scoped by group; the creator
// is recorded for display purposes only and plays no part in access
// decisions.
package homework

import (
	"context"
	"strings"
	"time"
)

// Homework represents a single homework assignment.
type Homework struct {
	// ID is the internal unique identifier (UUID string).
	ID string

	// Title is the short assignment title. Required.
	Title string

	// Description is an optional longer text.
	Description string

	// Subject is an optional subject name, e.g. "math".
	Subject string

	// DueDate is the optional deadline. Nil means no deadline: an
	// unparseable user-supplied date degrades to nil rather than failing
	// the whole call.
	DueDate *time.Time

	// GroupID scopes visibility of this row.
	GroupID string

	// CreatedBy is the internal ID of the student who created the row.
	// Informational only.
	CreatedBy string

	// CreatedAt is when the row was created.
	CreatedAt time.Time

	// UpdatedAt is when the row was last updated.
	UpdatedAt time.Time
}

// Validate checks the entity invariants before persisting.
func (h *Homework) Validate() error {
	if h.ID == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(h.Title) == "" {
		return ErrEmptyTitle
	}
	if h.GroupID == "" {
		return ErrMissingGroup
	}
	if h.CreatedBy == "" {
		return ErrMissingCreator
	}
	return nil
}

// Detailed is a homework row enriched with display data from joins.
// Missing joins degrade to the "unknown" fallbacks instead of failing.
type Detailed struct {
	Homework

	// GroupName is the resolved group name, or "unknown group".
	GroupName string

	// CreatorName is the resolved creator display name, or "unknown".
	CreatorName string
}

// Repository defines storage operations over homework.
type Repository interface {
	// Create persists a new homework row.
	Create(ctx context.Context, h *Homework) error

	// GetByID returns a homework row by ID.
	// Returns shared.ErrHomeworkNotFound when missing.
	GetByID(ctx context.Context, id string) (*Homework, error)

	// ListByGroup returns up to limit rows for the group, newest first,
	// enriched with group and creator display names.
	ListByGroup(ctx context.Context, groupID string, limit int) ([]Detailed, error)

	// Delete removes a homework row by ID.
	// Returns shared.ErrHomeworkNotFound when the row does not exist.
	Delete(ctx context.Context, id string) error
}
