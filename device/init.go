package device

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/blockberries/leaderkms/chain"
	"github.com/blockberries/leaderkms/config"
	"github.com/blockberries/leaderkms/types"
)

// Resolver looks up a chain's runtime context. *chain.Registry implements it.
type Resolver interface {
	Get(id types.ChainID) (*chain.Chain, error)
}

// Codec turns a sign request into the bytes a chain's signer must sign
type Codec interface {
	SignBytes(chainID types.ChainID, req *types.SignVoteRequest) ([]byte, error)
}

// Options are the operator's overrides for Initialize
type Options struct {
	// Height to seed; nil means 0
	Height *int64
	// Round to seed; nil means 0
	Round *int64
	// Codec used to produce sign bytes; nil means types.CanonicalCodec
	Codec Codec
}

// Result describes a successful initialization
type Result struct {
	ChainID   types.ChainID
	Vote      *types.Vote
	Signature types.Signature
	State     State
}

// TargetChainID returns the chain the handshake is aimed at: the chain of
// the first configured validator.
func TargetChainID(cfg *config.Config) (types.ChainID, error) {
	if cfg == nil || len(cfg.Validator) == 0 {
		return "", errors.Wrap(ErrConfiguration, "no [[validator]] configured")
	}
	id, err := types.ParseChainID(cfg.Validator[0].ChainID)
	if err != nil {
		return "", errors.Wrapf(ErrConfiguration, "validator[0]: %v", err)
	}
	return id, nil
}

// Initialize seeds the signing device bound to chainID with a proposal at
// the requested height and round.
func Initialize(reg Resolver, chainID types.ChainID, opts Options) (*Result, error) {
	const op = "initialize device"

	height, round, err := opts.heightRound()
	if err != nil {
		return nil, &Error{ChainID: chainID, Op: op, State: StateFailed, FailedIn: StateIdle, Err: err}
	}
	codec := opts.Codec
	if codec == nil {
		codec = types.CanonicalCodec{}
	}

	state := StateIdle
	fail := func(err error) (*Result, error) {
		return nil, &Error{ChainID: chainID, Op: op, State: StateFailed, FailedIn: state, Err: err}
	}

	// Idle -> ChainResolved
	c, err := reg.Get(chainID)
	if err != nil {
		return fail(err)
	}
	state = StateChainResolved

	// ChainResolved -> MessageBuilt
	vote := types.NewHandshakeVote(height, round)
	log.Info().Str("chain_id", chainID.String()).Int64("height", height).Int64("round", round).
		Msg("Initializing device")
	log.Debug().Stringer("vote", vote).Msg("Handshake vote")
	req := &types.SignVoteRequest{Vote: vote}
	state = StateMessageBuilt

	// MessageBuilt -> Signed | Failed
	signBytes, err := codec.SignBytes(c.ID, req)
	if err != nil {
		return fail(err)
	}

	sig, err := c.Signer.Sign("", signBytes)
	if err != nil {
		return fail(err)
	}
	state = StateSigned

	log.Info().Str("chain_id", chainID.String()).Msg("Device successfully initialized")

	return &Result{
		ChainID:   c.ID,
		Vote:      vote,
		Signature: sig,
		State:     state,
	}, nil
}

func (o Options) heightRound() (int64, int64, error) {
	var height, round int64
	if o.Height != nil {
		height = *o.Height
	}
	if o.Round != nil {
		round = *o.Round
	}
	if height < 0 {
		return 0, 0, errors.Wrapf(ErrInvalidOverride, "negative height %d", height)
	}
	if round < 0 {
		return 0, 0, errors.Wrapf(ErrInvalidOverride, "negative round %d", round)
	}
	return height, round, nil
}
