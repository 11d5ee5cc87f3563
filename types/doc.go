// Package types defines the consensus messages a validator signing device is
// asked to sign, and their canonical sign-bytes encoding.
//
// # Votes
//
// Vote carries a SignedMsgType (prevote, precommit or proposal), height,
// round, block id and timestamp. SignVoteRequest wraps a single vote on its
// way to a signer.
//
// # Sign Bytes
//
// VoteSignBytes encodes a vote for a given ChainID as a cramberry struct,
// zero-valued fields omitted:
//
//	1: type      int32
//	2: height    int64
//	3: round     int64
//	4: block_id  {hash, part_set_header{total, hash}}
//	5: timestamp {seconds, nanos}
//	6: chain_id  string
//
// The chain id is always written, so a signature produced for one chain can
// never be replayed on another. DecodeCanonicalVote reverses the encoding so
// that signing devices can check height/round/step before signing; it
// rejects anything VoteSignBytes would not have produced.
//
// # Keys
//
// Hash, Signature and PublicKey are thin byte wrappers. Constructors copy
// their input.
package types
