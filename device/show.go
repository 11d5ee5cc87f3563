package device

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/blockberries/leaderkms/keyring"
	"github.com/blockberries/leaderkms/types"
)

// Identity is a signing device's public identity on one chain
type Identity struct {
	ChainID   types.ChainID
	PublicKey types.PublicKey
	// Bech32 form using the chain's key format; empty if none is configured
	Bech32 string
}

func (id *Identity) String() string {
	if id.Bech32 != "" {
		return fmt.Sprintf("%s: %s (%s)", id.ChainID, id.Bech32, types.PublicKeyString(id.PublicKey))
	}
	return fmt.Sprintf("%s: %s", id.ChainID, types.PublicKeyString(id.PublicKey))
}

// ShowIdentity returns the public identity of the default key bound to
// chainID. It never encodes or signs anything.
func ShowIdentity(reg Resolver, chainID types.ChainID) (*Identity, error) {
	const op = "show identity"

	c, err := reg.Get(chainID)
	if err != nil {
		return nil, &Error{ChainID: chainID, Op: op, State: StateIdle, Err: err}
	}

	pk, err := c.Signer.PublicKey("")
	if err != nil {
		return nil, &Error{ChainID: chainID, Op: op, State: StateChainResolved, Err: err}
	}

	id := &Identity{ChainID: c.ID, PublicKey: pk}
	if c.KeyFormat != "" {
		id.Bech32, err = keyring.Bech32PublicKey(c.KeyFormat, pk)
		if err != nil {
			return nil, &Error{ChainID: chainID, Op: op, State: StateChainResolved, Err: err}
		}
	}

	log.Debug().Str("chain_id", chainID.String()).Str("public_key", types.PublicKeyString(pk)).Msg("Queried device identity")
	return id, nil
}
