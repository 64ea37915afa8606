package app

import "errors"

// Service-level sentinel errors. Handlers map them to HTTP statuses in
// httpStatusFor; services wrap them with fmt.Errorf("...: %w", ...) so
// callers match with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrForbidden              = errors.New("forbidden")
	ErrDepthExceeded          = errors.New("comment depth exceeded")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrConflict               = errors.New("conflict")
	ErrUnauthorized           = errors.New("unauthorized")
)
