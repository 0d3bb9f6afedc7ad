package chat

import "errors"

// Error taxonomy. Authorization and existence checks run before any
// mutation; callers match with errors.Is and the API layer maps these to
// HTTP status codes.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	// ErrPartial reports a failed multi-row creation. The underlying batch
	// is atomic, so nothing partial is ever observable; the sentinel exists
	// so callers can distinguish the failure class.
	ErrPartial = errors.New("partial write")
)
