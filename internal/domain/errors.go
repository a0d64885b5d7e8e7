package domain

import "errors"

// Error taxonomy shared by every service. Services wrap these with detail
// using fmt.Errorf("%w: ...") so callers can match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
)
