package registry

import (
	"errors"
	"fmt"
)

// ErrNoToken is returned when the identity endpoint answers 200 without an access_token.
var ErrNoToken = errors.New("identity response carried no access_token")

// AuthError reports a failed client-credentials exchange. StatusCode is 0
// when the identity endpoint could not be reached at all.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("error getting bearer token: %v", e.Err)
	}
	return fmt.Sprintf("error getting bearer token: status %d: %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RegistryError reports a registry response whose status differs from the
// one the operation expects. Body is kept verbatim.
type RegistryError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *RegistryError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("error %s: %v", e.Operation, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("error %s: %d, Response: %s: %v", e.Operation, e.StatusCode, e.Body, e.Err)
	}
	return fmt.Sprintf("error %s: %d, Response: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err wraps an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsRegistryError reports whether err wraps a *RegistryError.
func IsRegistryError(err error) bool {
	var re *RegistryError
	return errors.As(err, &re)
}
