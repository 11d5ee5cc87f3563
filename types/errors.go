package types

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors
var (
	ErrEncoding           = errors.New("encoding error")
	ErrInvalidChainID     = errors.New("invalid chain id")
	ErrInvalidVote        = errors.New("invalid vote")
	ErrUnknownMsgType     = errors.New("unknown signed message type")
	ErrMalformedSignBytes = errors.New("malformed sign bytes")
)

// EncodingError reports that a vote could not be turned into sign bytes for
// a chain. It matches ErrEncoding under errors.Is and unwraps to the cause.
type EncodingError struct {
	ChainID ChainID
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode sign bytes for chain %q: %v", e.ChainID, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}
