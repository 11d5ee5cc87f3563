// Package keyring defines the signing capability consumed by the device
// procedures and maps key ids onto concrete signing backends.
//
// Signer is the two-operation contract every backend family satisfies:
// sign a byte sequence and report a public identity. Backends (software
// keys, remote signers, HSMs, hardware wallets) implement the single-key
// Backend interface and are registered in a Keyring under a key id. The
// empty key id selects the default key, which is the first one added; the
// registry loader adds softsign keys before remote ones.
//
// Callers never inspect which backend they are talking to.
package keyring
