// Package privval implements a file-based signing device with double-sign
// prevention.
//
// FilePV holds an ed25519 private key and signs canonical vote sign bytes
// (see types.VoteSignBytes). Like a hardware signer, it decodes every request
// to learn the height/round/step (HRS) being signed and refuses anything that
// would move backwards or sign two different messages at the same HRS:
//
//	1. Never sign two different messages at the same height/round/step
//	2. Never regress to a lower height, round or step
//	3. Persist state BEFORE returning a signature
//
// An identical request at the last signed HRS returns the cached signature,
// which makes re-running a device handshake harmless.
//
// # Files
//
// key.json holds the key pair and is never written by this package:
//
//	{
//	  "pub_key": "<base64>",
//	  "priv_key": "<base64>"
//	}
//
// state.json holds one LastSignState per chain and is replaced atomically:
//
//	{
//	  "chains": {
//	    "test-chain": {"height": 5, "round": 2, "step": 0, ...}
//	  }
//	}
//
// A lock file next to the state file prevents two processes from signing
// with the same state.
package privval
