package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	// Keeping the sentinel in domain lets adapters map it consistently to 404.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals malformed or missing caller input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict signals a violated state-machine precondition: wrong current
	// status, a duplicate pending request, or a lost purchase race.
	ErrConflict = errors.New("conflict")
	// ErrInternal covers storage or gateway failures unrelated to caller input.
	ErrInternal = errors.New("internal error")
)
