package types

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteSignBytesHandshakeGolden(t *testing.T) {
	signBytes, err := VoteSignBytes("test-chain", NewHandshakeVote(0, 0))
	require.NoError(t, err)

	expected := []byte{
		0x18, 0x40, // type = proposal
		0x64, 0x0a, 't', 'e', 's', 't', '-', 'c', 'h', 'a', 'i', 'n',
		0x00, // end of message
	}
	assert.Equal(t, expected, signBytes)
}

func TestVoteSignBytesHeightRoundGolden(t *testing.T) {
	signBytes, err := VoteSignBytes("test-chain", NewHandshakeVote(5, 2))
	require.NoError(t, err)

	expected := []byte{
		0x18, 0x40,
		0x28, 0x0a, // height = 5
		0x38, 0x04, // round = 2
		0x64, 0x0a, 't', 'e', 's', 't', '-', 'c', 'h', 'a', 'i', 'n',
		0x00,
	}
	assert.Equal(t, expected, signBytes)
}

func TestVoteSignBytesDeterministic(t *testing.T) {
	for _, chainID := range []ChainID{"a", "test-chain", "cosmoshub-4"} {
		for _, hr := range [][2]int64{{0, 0}, {1, 0}, {0, 1}, {1 << 40, 7}} {
			v1 := NewHandshakeVote(hr[0], hr[1])
			v2 := NewHandshakeVote(hr[0], hr[1])

			b1, err := VoteSignBytes(chainID, v1)
			require.NoError(t, err)
			b2, err := VoteSignBytes(chainID, v2)
			require.NoError(t, err)
			assert.Equal(t, b1, b2, "chain %s h/r %v", chainID, hr)
		}
	}
}

func TestVoteSignBytesChainBound(t *testing.T) {
	chains := []ChainID{"a", "b", "test-chain", "test-chain-2", "test-chai"}
	vote := NewHandshakeVote(10, 3)

	seen := make(map[string]ChainID)
	for _, chainID := range chains {
		signBytes, err := VoteSignBytes(chainID, vote)
		require.NoError(t, err)
		prev, dup := seen[string(signBytes)]
		assert.False(t, dup, "chains %s and %s share sign bytes", prev, chainID)
		seen[string(signBytes)] = chainID
		assert.True(t, bytes.Contains(signBytes, []byte(chainID)))
	}
}

func TestVoteSignBytesIgnoresUnsignedFields(t *testing.T) {
	v1 := NewHandshakeVote(3, 1)
	v2 := NewHandshakeVote(3, 1)
	v2.ValidatorAddress = []byte("validator")
	v2.ValidatorIndex = 4
	v2.Signature = Signature{Data: make([]byte, 64)}

	b1, err := VoteSignBytes("test-chain", v1)
	require.NoError(t, err)
	b2, err := VoteSignBytes("test-chain", v2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestVoteSignBytesErrors(t *testing.T) {
	tests := []struct {
		name    string
		chainID ChainID
		vote    *Vote
		cause   error
	}{
		{"empty chain id", "", NewHandshakeVote(0, 0), ErrInvalidChainID},
		{"negative height", "c", NewHandshakeVote(-1, 0), ErrInvalidVote},
		{"negative round", "c", NewHandshakeVote(0, -1), ErrInvalidVote},
		{"nil vote", "c", nil, ErrInvalidVote},
		{"unknown type", "c", &Vote{Type: SignedMsgTypeUnknown}, ErrUnknownMsgType},
		{"short block hash", "c", &Vote{Type: SignedMsgTypePrevote, BlockID: BlockID{Hash: Hash{Data: []byte{1}}}}, ErrInvalidVote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VoteSignBytes(tt.chainID, tt.vote)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEncoding))
			assert.True(t, errors.Is(err, tt.cause))

			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, tt.chainID, encErr.ChainID)
		})
	}
}

func TestSignVoteRequestSignBytes(t *testing.T) {
	req := &SignVoteRequest{Vote: NewHandshakeVote(5, 2)}
	fromReq, err := req.SignBytes("test-chain")
	require.NoError(t, err)

	direct, err := VoteSignBytes("test-chain", req.Vote)
	require.NoError(t, err)
	assert.Equal(t, direct, fromReq)

	codec, err := CanonicalCodec{}.SignBytes("test-chain", req)
	require.NoError(t, err)
	assert.Equal(t, direct, codec)

	_, err = (&SignVoteRequest{}).SignBytes("test-chain")
	assert.True(t, errors.Is(err, ErrEncoding))
}

func TestDecodeCanonicalVoteRoundTrip(t *testing.T) {
	blockHash := HashBytes([]byte("block"))
	partsHash := HashBytes([]byte("parts"))
	vote := &Vote{
		Type:   SignedMsgTypePrecommit,
		Height: 1234,
		Round:  5,
		BlockID: BlockID{
			Hash:          blockHash,
			PartSetHeader: PartSetHeader{Total: 3, Hash: partsHash},
		},
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC),
	}

	signBytes, err := VoteSignBytes("test-chain", vote)
	require.NoError(t, err)

	decoded, chainID, err := DecodeCanonicalVote(signBytes)
	require.NoError(t, err)
	assert.Equal(t, ChainID("test-chain"), chainID)
	assert.Equal(t, vote.Type, decoded.Type)
	assert.Equal(t, vote.Height, decoded.Height)
	assert.Equal(t, vote.Round, decoded.Round)
	assert.True(t, HashEqual(blockHash, decoded.BlockID.Hash))
	assert.Equal(t, uint32(3), decoded.BlockID.PartSetHeader.Total)
	assert.True(t, HashEqual(partsHash, decoded.BlockID.PartSetHeader.Hash))
	assert.True(t, vote.Timestamp.Equal(decoded.Timestamp))

	reencoded, err := VoteSignBytes(chainID, decoded)
	require.NoError(t, err)
	assert.Equal(t, signBytes, reencoded)
}

func TestDecodeCanonicalVoteHandshake(t *testing.T) {
	signBytes, err := VoteSignBytes("test-chain", NewHandshakeVote(0, 0))
	require.NoError(t, err)

	decoded, chainID, err := DecodeCanonicalVote(signBytes)
	require.NoError(t, err)
	assert.Equal(t, ChainID("test-chain"), chainID)
	assert.Equal(t, SignedMsgTypeProposal, decoded.Type)
	assert.Zero(t, decoded.Height)
	assert.Zero(t, decoded.Round)
	assert.True(t, decoded.BlockID.IsZero())
	assert.True(t, decoded.Timestamp.IsZero())
}

func TestDecodeCanonicalVoteMalformed(t *testing.T) {
	valid, err := VoteSignBytes("test-chain", NewHandshakeVote(1, 1))
	require.NoError(t, err)

	chainA := []byte{0x64, 0x07, 'c', 'h', 'a', 'i', 'n', '-', 'a'}
	chainB := []byte{0x64, 0x07, 'c', 'h', 'a', 'i', 'n', '-', 'b'}

	tests := map[string][]byte{
		"empty":            nil,
		"missing end":      valid[:len(valid)-1],
		"trailing":         append(append([]byte(nil), valid...), 0x00),
		"no chain id":      {0x18, 0x40, 0x00},
		"unknown field":    append([]byte{0x78, 0x02}, valid...),
		"negative height":  append([]byte{0x18, 0x40, 0x28, 0x01}, chainA...),
		"unknown type":     append([]byte{0x18, 0x06}, append(chainA, 0x00)...),
		"repeated fields":  append(append(append([]byte{0x18, 0x04}, chainA...), 0x18, 0x40), append(chainB, 0x00)...),
		"out of order":     append(append([]byte{0x38, 0x02, 0x28, 0x02}, 0x18, 0x40), append(chainA, 0x00)...),
		"truncated string": {0x18, 0x40, 0x64, 0x0a, 't', 'e'},
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeCanonicalVote(input)
			assert.True(t, errors.Is(err, ErrMalformedSignBytes), fmt.Sprint(err))
		})
	}
}
