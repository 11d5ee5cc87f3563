package privval

import (
	"github.com/pkg/errors"

	"github.com/blockberries/leaderkms/types"
)

// Errors
var (
	ErrDoubleSign       = errors.New("double sign attempt")
	ErrHeightRegression = errors.New("height regression")
	ErrRoundRegression  = errors.New("round regression")
	ErrStepRegression   = errors.New("step regression")
	ErrInvalidSignBytes = errors.New("invalid sign bytes")
	ErrChainNotAllowed  = errors.New("chain not allowed for this key")
	ErrKeyFileNotFound  = errors.New("key file not found")
	ErrLocked           = errors.New("validator files are locked by another process")
	ErrClosed           = errors.New("private validator is closed")
)

// LastSignState tracks the last message signed on one chain, for
// double-sign prevention
type LastSignState struct {
	Height    int64
	Round     int64
	Step      int8
	Signature types.Signature
	// Hash of the complete sign bytes; identical requests at the same HRS
	// get the cached signature back.
	SignBytesHash *types.Hash
}

// Step values for double-sign prevention.
// Proposals come before votes in a round.
const (
	StepProposal  int8 = 0
	StepPrevote   int8 = 1
	StepPrecommit int8 = 2
)

// IsEmpty returns true if nothing has been signed yet
func (lss *LastSignState) IsEmpty() bool {
	return lss.Height == 0 && lss.Round == 0 && lss.Step == 0 && types.IsHashEmpty(lss.SignBytesHash)
}

// CheckHRS checks if a new message would be a double sign.
// Returns nil if signing is allowed, an error otherwise.
func (lss *LastSignState) CheckHRS(height, round int64, step int8) error {
	if lss.IsEmpty() {
		return nil
	}

	if lss.Height > height {
		return ErrHeightRegression
	}

	if lss.Height == height {
		if lss.Round > round {
			return ErrRoundRegression
		}

		if lss.Round == round {
			if lss.Step > step {
				return ErrStepRegression
			}
			if lss.Step == step {
				// Same H/R/S - a double sign unless it's the same message
				return ErrDoubleSign
			}
		}
	}

	return nil
}

// IsSameSignBytes reports whether signBytes is what was signed last
func (lss *LastSignState) IsSameSignBytes(signBytes []byte) bool {
	if types.IsHashEmpty(lss.SignBytesHash) || types.IsSignatureEmpty(lss.Signature) {
		return false
	}
	return types.HashEqual(*lss.SignBytesHash, types.HashBytes(signBytes))
}

// MsgStep returns the step value for a signed message type
func MsgStep(msgType types.SignedMsgType) (int8, error) {
	switch msgType {
	case types.SignedMsgTypeProposal:
		return StepProposal, nil
	case types.SignedMsgTypePrevote:
		return StepPrevote, nil
	case types.SignedMsgTypePrecommit:
		return StepPrecommit, nil
	default:
		return 0, errors.Wrapf(types.ErrUnknownMsgType, "%v", msgType)
	}
}
