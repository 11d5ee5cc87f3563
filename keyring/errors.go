package keyring

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors
var (
	ErrSigning        = errors.New("signing error")
	ErrKeyNotFound    = errors.New("key not found")
	ErrDuplicateKey   = errors.New("duplicate key id")
	ErrNilBackend     = errors.New("nil signing backend")
	ErrEmptySignature = errors.New("backend returned an empty signature")
)

// SigningError reports a failed backend operation. It matches ErrSigning
// under errors.Is and unwraps to the backend's error.
type SigningError struct {
	KeyID string
	Op    string
	Err   error
}

func (e *SigningError) Error() string {
	if e.KeyID == "" {
		return fmt.Sprintf("%s with default key: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s with key %q: %v", e.Op, e.KeyID, e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

func (e *SigningError) Is(target error) bool {
	return target == ErrSigning
}
