package relationships

import "errors"

var (
	// ErrMaxDepthExceeded is returned when a cascade nests deeper than its limit
	ErrMaxDepthExceeded = errors.New("maximum cascade depth exceeded")

	// ErrUnknownAssociation is returned when a field has no association in the schema
	ErrUnknownAssociation = errors.New("unknown association")
)
