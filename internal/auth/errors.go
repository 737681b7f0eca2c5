package auth

import (
	"errors"
	"net/http"

	"github.com/procurehub/procurehub/internal/shared"
)

// Credential store errors.
var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrStorage           = errors.New("storage failure")
)

// Token errors. Callers outside the package only ever see ErrInvalidToken.
var (
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrMalformedToken   = errors.New("token malformed")
	ErrMissingSubject   = errors.New("token subject missing")
)

// Gate errors. Each one unwraps to the shared class that decides its status.
var (
	ErrUsernameTaken      = gateError("username already registered", shared.ErrConflict)
	ErrEmailTaken         = gateError("email already registered", shared.ErrConflict)
	ErrInvalidCredentials = gateError("incorrect username or password", shared.ErrUnauthorized)
	ErrAccountInactive    = gateError("account is inactive", shared.ErrForbidden)
	ErrUnknownSubject     = gateError("token subject does not exist", shared.ErrUnauthorized)
	ErrInvalidToken       = gateError("could not validate credentials", shared.ErrUnauthorized)
	ErrNotAuthenticated   = gateError("Not authenticated", shared.ErrUnauthorized)
	ErrInternal           = errors.New("internal error")
)

type classifiedError struct {
	msg   string
	class error
}

func gateError(msg string, class error) error {
	return &classifiedError{msg: msg, class: class}
}

func (e *classifiedError) Error() string { return e.msg }

func (e *classifiedError) Unwrap() error { return e.class }

// StatusFor maps a gate error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
