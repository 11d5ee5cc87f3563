package types

import (
	"bytes"
	"time"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"
)

// canonicalVote is the signed subset of a Vote, bound to a chain id.
// Zero-valued fields are omitted on the wire.
type canonicalVote struct {
	Type      int32              `cramberry:"1"`
	Height    int64              `cramberry:"2"`
	Round     int64              `cramberry:"3"`
	BlockID   canonicalBlockID   `cramberry:"4"`
	Timestamp canonicalTimestamp `cramberry:"5"`
	ChainID   string             `cramberry:"6"`
}

type canonicalBlockID struct {
	Hash          []byte                 `cramberry:"1"`
	PartSetHeader canonicalPartSetHeader `cramberry:"2"`
}

type canonicalPartSetHeader struct {
	Total uint32 `cramberry:"1"`
	Hash  []byte `cramberry:"2"`
}

type canonicalTimestamp struct {
	Seconds int64 `cramberry:"1"`
	Nanos   int32 `cramberry:"2"`
}

// CanonicalCodec produces sign bytes with VoteSignBytes
type CanonicalCodec struct{}

// SignBytes implements the codec used by the device procedures
func (CanonicalCodec) SignBytes(chainID ChainID, req *SignVoteRequest) ([]byte, error) {
	return req.SignBytes(chainID)
}

// VoteSignBytes returns the bytes to sign for a vote on chainID.
//
// The chain id is a field of the encoded message, so identical votes on
// different chains never share sign bytes. Signature, validator address and
// validator index are not signed.
func VoteSignBytes(chainID ChainID, v *Vote) ([]byte, error) {
	if err := chainID.Validate(); err != nil {
		return nil, &EncodingError{ChainID: chainID, Err: err}
	}
	if err := v.ValidateBasic(); err != nil {
		return nil, &EncodingError{ChainID: chainID, Err: err}
	}

	data, err := cramberry.Marshal(newCanonicalVote(chainID, v))
	if err != nil {
		return nil, &EncodingError{ChainID: chainID, Err: err}
	}
	return data, nil
}

func newCanonicalVote(chainID ChainID, v *Vote) *canonicalVote {
	cv := &canonicalVote{
		Type:   int32(v.Type),
		Height: v.Height,
		Round:  v.Round,
		BlockID: canonicalBlockID{
			Hash: v.BlockID.Hash.Data,
			PartSetHeader: canonicalPartSetHeader{
				Total: v.BlockID.PartSetHeader.Total,
				Hash:  v.BlockID.PartSetHeader.Hash.Data,
			},
		},
		ChainID: string(chainID),
	}
	// The zero time.Time is left out entirely; the Unix epoch encodes the same way.
	if !v.Timestamp.IsZero() {
		cv.Timestamp = canonicalTimestamp{
			Seconds: v.Timestamp.Unix(),
			Nanos:   int32(v.Timestamp.Nanosecond()),
		}
	}
	return cv
}

func (cv *canonicalVote) vote() *Vote {
	v := &Vote{
		Type:   SignedMsgType(cv.Type),
		Height: cv.Height,
		Round:  cv.Round,
	}
	if len(cv.BlockID.Hash) > 0 {
		v.BlockID.Hash = Hash{Data: append([]byte(nil), cv.BlockID.Hash...)}
	}
	v.BlockID.PartSetHeader.Total = cv.BlockID.PartSetHeader.Total
	if len(cv.BlockID.PartSetHeader.Hash) > 0 {
		v.BlockID.PartSetHeader.Hash = Hash{Data: append([]byte(nil), cv.BlockID.PartSetHeader.Hash...)}
	}
	if cv.Timestamp != (canonicalTimestamp{}) {
		v.Timestamp = time.Unix(cv.Timestamp.Seconds, int64(cv.Timestamp.Nanos)).UTC()
	}
	return v
}

// DecodeCanonicalVote parses sign bytes and returns the signed vote fields
// together with the chain id they are bound to. Signing devices use it to
// recover height/round/step before signing.
//
// Only bytes that VoteSignBytes would produce for the decoded vote are
// accepted: unknown, repeated or out-of-order fields, trailing data and
// votes that fail ValidateBasic are all ErrMalformedSignBytes.
func DecodeCanonicalVote(signBytes []byte) (*Vote, ChainID, error) {
	var cv canonicalVote
	if err := cramberry.UnmarshalWithOptions(signBytes, &cv, cramberry.StrictOptions); err != nil {
		return nil, "", errors.Wrap(ErrMalformedSignBytes, err.Error())
	}

	chainID := ChainID(cv.ChainID)
	if err := chainID.Validate(); err != nil {
		return nil, "", errors.Wrap(ErrMalformedSignBytes, err.Error())
	}

	vote := cv.vote()
	canonical, err := VoteSignBytes(chainID, vote)
	if err != nil {
		return nil, "", errors.Wrap(ErrMalformedSignBytes, err.Error())
	}
	if !bytes.Equal(canonical, signBytes) {
		return nil, "", errors.Wrapf(ErrMalformedSignBytes, "non-canonical encoding for %v on chain %q", vote, chainID)
	}
	return vote, chainID, nil
}
