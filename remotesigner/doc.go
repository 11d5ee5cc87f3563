// Package remotesigner carries signing requests to a signing backend running
// in another process, over NATS request/reply.
//
// A Server exposes any keyring.Backend on two subjects derived from a base
// subject:
//
//	<subject>.sign     SignRequest      -> SignResponse
//	<subject>.pubkey   PublicKeyRequest -> PublicKeyResponse
//
// Client implements keyring.Backend on top of those subjects. Each call is a
// single request with a timeout; failed requests are not retried, so a
// double-sign rejection from the remote device reaches the caller unchanged.
package remotesigner
