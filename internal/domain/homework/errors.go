package homework

import "errors"

var (
	// ErrInvalidID indicates an empty internal identifier.
	ErrInvalidID = errors.New("invalid homework id: must not be empty")

	// ErrEmptyTitle indicates a missing title.
	ErrEmptyTitle = errors.New("homework title must not be empty")

	// ErrMissingGroup indicates that no group scope was set.
	ErrMissingGroup = errors.New("homework must belong to a group")

	// ErrMissingCreator indicates that the creator reference was not set.
	ErrMissingCreator = errors.New("homework must record its creator")
)
