package keyring

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/blockberries/leaderkms/types"
)

// Signer is the signing capability bound to a chain
type Signer interface {
	// Sign signs msg with the key selected by keyID ("" = default key)
	Sign(keyID string, msg []byte) (types.Signature, error)

	// PublicKey returns the public identity of the key selected by keyID
	PublicKey(keyID string) (types.PublicKey, error)
}

// Backend is a single-key signing provider
type Backend interface {
	Sign(msg []byte) (types.Signature, error)
	PublicKey() (types.PublicKey, error)
}

// Keyring selects a Backend by key id. It is populated once at startup and
// only read afterwards.
type Keyring struct {
	mu         sync.RWMutex
	backends   map[string]Backend
	order      []string
	defaultKey string
}

// New creates an empty keyring
func New() *Keyring {
	return &Keyring{
		backends: make(map[string]Backend),
	}
}

// Add registers backend under keyID. The first key added becomes the default.
func (kr *Keyring) Add(keyID string, backend Backend) error {
	if backend == nil {
		return ErrNilBackend
	}

	kr.mu.Lock()
	defer kr.mu.Unlock()

	if _, exists := kr.backends[keyID]; exists {
		return errors.Wrapf(ErrDuplicateKey, "%q", keyID)
	}
	kr.backends[keyID] = backend
	kr.order = append(kr.order, keyID)
	if len(kr.order) == 1 {
		kr.defaultKey = keyID
	}
	return nil
}

// Len returns the number of registered keys
func (kr *Keyring) Len() int {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	return len(kr.backends)
}

// KeyIDs returns the registered key ids in insertion order
func (kr *Keyring) KeyIDs() []string {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	return append([]string(nil), kr.order...)
}

func (kr *Keyring) backend(keyID string) (string, Backend, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	if keyID == "" {
		keyID = kr.defaultKey
	}
	b, ok := kr.backends[keyID]
	if !ok {
		return keyID, nil, ErrKeyNotFound
	}
	return keyID, b, nil
}

// Sign implements Signer
func (kr *Keyring) Sign(keyID string, msg []byte) (types.Signature, error) {
	resolved, b, err := kr.backend(keyID)
	if err != nil {
		return types.Signature{}, &SigningError{KeyID: resolved, Op: "sign", Err: err}
	}

	sig, err := b.Sign(msg)
	if err != nil {
		return types.Signature{}, &SigningError{KeyID: resolved, Op: "sign", Err: err}
	}
	if types.IsSignatureEmpty(sig) {
		return types.Signature{}, &SigningError{KeyID: resolved, Op: "sign", Err: ErrEmptySignature}
	}
	return sig, nil
}

// PublicKey implements Signer
func (kr *Keyring) PublicKey(keyID string) (types.PublicKey, error) {
	resolved, b, err := kr.backend(keyID)
	if err != nil {
		return types.PublicKey{}, &SigningError{KeyID: resolved, Op: "public key", Err: err}
	}

	pk, err := b.PublicKey()
	if err != nil {
		return types.PublicKey{}, &SigningError{KeyID: resolved, Op: "public key", Err: err}
	}
	return pk, nil
}

// Close closes every backend that holds resources
func (kr *Keyring) Close() error {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	var firstErr error
	for _, id := range kr.order {
		if c, ok := kr.backends[id].(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Ensure Keyring implements Signer
var _ Signer = (*Keyring)(nil)
