package types

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// SignedMsgType is the category of consensus message being signed
type SignedMsgType int32

// Signed message types. Values match the consensus wire format.
const (
	SignedMsgTypeUnknown   SignedMsgType = 0
	SignedMsgTypePrevote   SignedMsgType = 1
	SignedMsgTypePrecommit SignedMsgType = 2
	SignedMsgTypeProposal  SignedMsgType = 32
)

func (t SignedMsgType) String() string {
	switch t {
	case SignedMsgTypePrevote:
		return "prevote"
	case SignedMsgTypePrecommit:
		return "precommit"
	case SignedMsgTypeProposal:
		return "proposal"
	case SignedMsgTypeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("SignedMsgType(%d)", int32(t))
	}
}

// IsValid returns true for the types a signer will accept
func (t SignedMsgType) IsValid() bool {
	switch t {
	case SignedMsgTypePrevote, SignedMsgTypePrecommit, SignedMsgTypeProposal:
		return true
	default:
		return false
	}
}

// PartSetHeader describes how a block was split into parts
type PartSetHeader struct {
	Total uint32
	Hash  Hash
}

// IsZero returns true if the header carries no data
func (h PartSetHeader) IsZero() bool {
	return h.Total == 0 && len(h.Hash.Data) == 0
}

// BlockID identifies the block a vote refers to
type BlockID struct {
	Hash          Hash
	PartSetHeader PartSetHeader
}

// IsZero returns true for the nil block id
func (b BlockID) IsZero() bool {
	return len(b.Hash.Data) == 0 && b.PartSetHeader.IsZero()
}

// Vote is a vote-like consensus message. Only Type, Height, Round, BlockID and
// Timestamp are covered by sign bytes.
type Vote struct {
	Type             SignedMsgType
	Height           int64
	Round            int64
	BlockID          BlockID
	Timestamp        time.Time
	ValidatorAddress []byte
	ValidatorIndex   int32
	Signature        Signature
}

// NewHandshakeVote builds the synthetic proposal used to seed a device's
// height/round/step. Every other field stays at its zero value so the
// signature cannot be replayed as a vote for a real block.
func NewHandshakeVote(height, round int64) *Vote {
	return &Vote{
		Type:   SignedMsgTypeProposal,
		Height: height,
		Round:  round,
	}
}

// ValidateBasic performs stateless checks on the signed fields
func (v *Vote) ValidateBasic() error {
	if v == nil {
		return errors.Wrap(ErrInvalidVote, "nil vote")
	}
	if !v.Type.IsValid() {
		return errors.Wrapf(ErrUnknownMsgType, "%v", v.Type)
	}
	if v.Height < 0 {
		return errors.Wrapf(ErrInvalidVote, "negative height %d", v.Height)
	}
	if v.Round < 0 {
		return errors.Wrapf(ErrInvalidVote, "negative round %d", v.Round)
	}
	if n := len(v.BlockID.Hash.Data); n != 0 && n != HashSize {
		return errors.Wrapf(ErrInvalidVote, "block hash must be %d bytes, got %d", HashSize, n)
	}
	if n := len(v.BlockID.PartSetHeader.Hash.Data); n != 0 && n != HashSize {
		return errors.Wrapf(ErrInvalidVote, "part set hash must be %d bytes, got %d", HashSize, n)
	}
	return nil
}

func (v *Vote) String() string {
	if v == nil {
		return "Vote{nil}"
	}
	return fmt.Sprintf("Vote{%d/%d %v block=%X ts=%s}",
		v.Height, v.Round, v.Type, v.BlockID.Hash.Data, v.Timestamp.Format(time.RFC3339Nano))
}

// SignVoteRequest asks a signer to sign exactly one vote. It is built, encoded
// and discarded within a single call and never persisted.
type SignVoteRequest struct {
	Vote *Vote
}

// SignBytes returns the canonical bytes the signer must sign for chainID
func (r *SignVoteRequest) SignBytes(chainID ChainID) ([]byte, error) {
	if r == nil || r.Vote == nil {
		return nil, &EncodingError{ChainID: chainID, Err: errors.Wrap(ErrInvalidVote, "request carries no vote")}
	}
	return VoteSignBytes(chainID, r.Vote)
}
