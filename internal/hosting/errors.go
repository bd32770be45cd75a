package hosting

import "errors"

// Hosting provider errors.
var (
	// ErrAlreadyExists is returned when a create call hits a uniqueness constraint.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAuthFailed is returned when authentication fails.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")

	// ErrUnsupported is returned when the provider has no equivalent for an entity type.
	ErrUnsupported = errors.New("not supported by this provider")
)
