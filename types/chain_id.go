package types

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// MaxChainIDLen is the longest chain id accepted, in bytes
const MaxChainIDLen = 50

// ChainID identifies one blockchain network. It binds both sign bytes and
// key selection to that network.
type ChainID string

// ParseChainID validates s and returns it as a ChainID
func ParseChainID(s string) (ChainID, error) {
	id := ChainID(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate checks the chain id is non-empty, bounded and free of whitespace
func (id ChainID) Validate() error {
	if id == "" {
		return errors.Wrap(ErrInvalidChainID, "empty")
	}
	if len(id) > MaxChainIDLen {
		return errors.Wrapf(ErrInvalidChainID, "%q is longer than %d bytes", string(id), MaxChainIDLen)
	}
	if strings.IndexFunc(string(id), unicode.IsSpace) >= 0 {
		return errors.Wrapf(ErrInvalidChainID, "%q contains whitespace", string(id))
	}
	return nil
}

func (id ChainID) String() string {
	return string(id)
}
