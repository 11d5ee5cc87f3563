package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the expected size of a hash in bytes
const HashSize = 32

// SignatureSize is the expected size of an ed25519 signature in bytes
const SignatureSize = 64

// PublicKeySize is the expected size of an ed25519 public key in bytes
const PublicKeySize = 32

// Hash is a SHA-256 digest, used for block ids and part set headers
type Hash struct {
	Data []byte
}

// Signature is the opaque output of a signing backend
type Signature struct {
	Data []byte
}

// PublicKey is the public identity reported by a signing backend
type PublicKey struct {
	Data []byte
}

// NewHash creates a Hash from bytes, returning error if invalid.
// The input is copied.
func NewHash(data []byte) (Hash, error) {
	if len(data) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(data))
	}
	copied := make([]byte, HashSize)
	copy(copied, data)
	return Hash{Data: copied}, nil
}

// HashBytes computes SHA-256 hash of data
func HashBytes(data []byte) Hash {
	h := sha256.Sum256(data)
	return Hash{Data: h[:]}
}

// IsHashEmpty returns true if hash is nil, has no data, or is all zeros
func IsHashEmpty(h *Hash) bool {
	if h == nil {
		return true
	}
	for _, b := range h.Data {
		if b != 0 {
			return false
		}
	}
	return true
}

// HashEqual compares two hashes
func HashEqual(a, b Hash) bool {
	return bytes.Equal(a.Data, b.Data)
}

// HashString returns hex-encoded hash
func HashString(h Hash) string {
	return hex.EncodeToString(h.Data)
}

// NewSignature creates a Signature from bytes, returning error if invalid.
// The input is copied.
func NewSignature(data []byte) (Signature, error) {
	if len(data) != SignatureSize {
		return Signature{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(data))
	}
	copied := make([]byte, SignatureSize)
	copy(copied, data)
	return Signature{Data: copied}, nil
}

// MustNewSignature creates a Signature, panicking if invalid.
// Use only for trusted internal data (e.g., crypto library output).
func MustNewSignature(data []byte) Signature {
	s, err := NewSignature(data)
	if err != nil {
		panic(err)
	}
	return s
}

// IsSignatureEmpty returns true if the signature carries no bytes
func IsSignatureEmpty(s Signature) bool {
	return len(s.Data) == 0
}

// NewPublicKey creates a PublicKey from bytes, returning error if invalid.
// The input is copied.
func NewPublicKey(data []byte) (PublicKey, error) {
	if len(data) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("public key must be %d bytes, got %d", PublicKeySize, len(data))
	}
	copied := make([]byte, PublicKeySize)
	copy(copied, data)
	return PublicKey{Data: copied}, nil
}

// MustNewPublicKey creates a PublicKey, panicking if invalid.
// Use only for trusted internal data.
func MustNewPublicKey(data []byte) PublicKey {
	p, err := NewPublicKey(data)
	if err != nil {
		panic(err)
	}
	return p
}

// PublicKeyEqual compares two public keys
func PublicKeyEqual(a, b PublicKey) bool {
	return bytes.Equal(a.Data, b.Data)
}

// PublicKeyString returns the upper-case hex form of a public key
func PublicKeyString(p PublicKey) string {
	return fmt.Sprintf("%X", p.Data)
}
