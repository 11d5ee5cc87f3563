// Package chain provides the registry of chains a KMS process serves.
//
// A Registry maps a chain id to its Chain runtime context: the chain id, the
// bech32 prefix used to display keys, and the keyring.Signer bound to that
// chain. It is built once at startup, either explicitly with NewRegistry or
// from configuration with LoadRegistry, and is read-only afterwards, so any
// number of goroutines may share it without locking.
package chain
