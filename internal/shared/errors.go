package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a request payload failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the resource already exists.
	ErrConflict = errors.New("duplicate entry")
	// ErrForbidden indicates the caller is known but not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
)
