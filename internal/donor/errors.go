package donor

import (
	"errors"
	"fmt"
)

var (
	ErrDonorNotFound             = errors.New("donor not found")
	ErrPatientRegistryIDNotFound = errors.New("patient registry id not found")
	ErrSearchIDNotFound          = errors.New("search id not found")
)

// StoreError wraps a driver failure with the repository operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("donor store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is one of the lookup misses above.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDonorNotFound) ||
		errors.Is(err, ErrPatientRegistryIDNotFound) ||
		errors.Is(err, ErrSearchIDNotFound)
}
