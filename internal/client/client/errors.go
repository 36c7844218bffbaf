package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrValidation         = errors.New("validation failed")
	ErrRefreshInvalid     = errors.New("refresh token rejected")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNetwork            = errors.New("server unavailable")

	// ErrSessionEnded is returned by a Refresher whose new tokens were not
	// stored because the session was cleared or replaced meanwhile.
	ErrSessionEnded = errors.New("session ended during refresh")

	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrServer    = errors.New("server error")
)

// APIError is a failed backend call. Kind is one of the sentinels above and
// is what errors.Is matches against; Message is the backend's own text.
type APIError struct {
	Status  int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (HTTP %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v: %s (HTTP %d)", e.Kind, e.Message, e.Status)
}

func (e *APIError) Unwrap() error { return e.Kind }

// WithKind returns a copy of e classified as kind. Callers that know what an
// endpoint's status codes mean use it to refine the generic classification.
func (e *APIError) WithKind(kind error) *APIError {
	c := *e
	c.Kind = kind
	return &c
}

// kindForStatus is the generic status classification used for every call.
func kindForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	default:
		return ErrServer
	}
}

// asNetworkError classifies a transport failure. Errors already in the
// taxonomy pass through unchanged.
func asNetworkError(err error) error {
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
