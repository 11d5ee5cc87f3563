// Package device drives a validator signing device through its bootstrap
// handshake and reports its public identity.
//
// Initialize seeds the device's height/round/step counter by having it sign a
// synthetic proposal at the chosen height and round:
//
//	Idle -> ChainResolved -> MessageBuilt -> Signed | Failed
//
// The chain is resolved in the registry, a proposal vote carrying only
// height, round and type is built, its canonical sign bytes are produced and
// passed to the chain's signer with the default key. The resulting signature
// is not used for anything; what matters is that the device now refuses to
// sign anything below the seeded height/round. The Failed state is reported
// as an *Error naming the chain, the operation and the state it failed in.
// Nothing is retried.
//
// ShowIdentity asks the signer for its public key without building or
// signing any message.
package device
