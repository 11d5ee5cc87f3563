package chain

import (
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/blockberries/leaderkms/keyring"
	"github.com/blockberries/leaderkms/types"
)

// Errors
var (
	ErrChainNotFound  = errors.New("chain not found")
	ErrDuplicateChain = errors.New("duplicate chain")
	ErrNoSigner       = errors.New("chain has no signer")
)

// Chain is the runtime context of one chain
type Chain struct {
	ID types.ChainID
	// Bech32 prefix for displaying public keys, e.g. "cosmosvalconspub"
	KeyFormat string
	Signer    keyring.Signer
}

// Registry is an immutable lookup from chain id to Chain
type Registry struct {
	chains  map[types.ChainID]*Chain
	closers []io.Closer
}

// NewRegistry builds a registry from chains. Chain ids must be valid and
// unique, and every chain needs a signer.
func NewRegistry(chains ...*Chain) (*Registry, error) {
	r := &Registry{
		chains: make(map[types.ChainID]*Chain, len(chains)),
	}
	for _, c := range chains {
		if c == nil {
			continue
		}
		if err := c.ID.Validate(); err != nil {
			return nil, err
		}
		if c.Signer == nil {
			return nil, errors.Wrapf(ErrNoSigner, "%q", c.ID)
		}
		if _, dup := r.chains[c.ID]; dup {
			return nil, errors.Wrapf(ErrDuplicateChain, "%q", c.ID)
		}
		r.chains[c.ID] = c
	}
	return r, nil
}

// Get returns the chain registered under id
func (r *Registry) Get(id types.ChainID) (*Chain, error) {
	c, ok := r.chains[id]
	if !ok {
		return nil, errors.Wrapf(ErrChainNotFound, "%q", id)
	}
	return c, nil
}

// ChainIDs returns the registered chain ids in sorted order
func (r *Registry) ChainIDs() []types.ChainID {
	ids := make([]types.ChainID, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered chains
func (r *Registry) Len() int {
	return len(r.chains)
}

// Close releases the backends opened by LoadRegistry
func (r *Registry) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}
