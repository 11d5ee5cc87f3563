package device

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/blockberries/leaderkms/config"
	"github.com/blockberries/leaderkms/types"
)

// Errors
var (
	// ErrConfiguration is config.ErrConfiguration, re-exported for callers
	// of this package
	ErrConfiguration   = config.ErrConfiguration
	ErrInvalidOverride = errors.New("invalid height/round override")
)

// Error is the Failed outcome of a device procedure. It unwraps to the
// registry, codec or signer error that caused it.
type Error struct {
	ChainID types.ChainID
	Op      string
	// State is always StateFailed
	State State
	// FailedIn is the last state reached before the failure
	FailedIn State
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s on chain %q failed in state %s: %v", e.Op, e.ChainID, e.FailedIn, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
