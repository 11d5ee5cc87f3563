package chain

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/blockberries/leaderkms/config"
	"github.com/blockberries/leaderkms/keyring"
	"github.com/blockberries/leaderkms/privval"
	"github.com/blockberries/leaderkms/remotesigner"
	"github.com/blockberries/leaderkms/types"
)

// LoadRegistry opens every configured signing backend and builds the
// registry. Each chain gets its own keyring; a backend listed for several
// chains is shared between their keyrings.
//
// Keys are added softsign providers first, then remote providers, each in
// config order, so a chain's default key is its first softsign key if it has
// one and its first remote key otherwise.
func LoadRegistry(cfg *config.Config) (*Registry, error) {
	keyrings := make(map[types.ChainID]*keyring.Keyring, len(cfg.Chain))
	for _, c := range cfg.Chain {
		keyrings[types.ChainID(c.ID)] = keyring.New()
	}

	var closers []io.Closer
	fail := func(err error) (*Registry, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	addBackend := func(kind string, keyID string, chainIDs []string, backend keyring.Backend) error {
		for _, id := range chainIDs {
			kr, ok := keyrings[types.ChainID(id)]
			if !ok {
				return errors.Wrapf(config.ErrConfiguration, "%s provider references unknown chain %q", kind, id)
			}
			if err := kr.Add(keyID, backend); err != nil {
				return errors.Wrapf(err, "chain %q", id)
			}
			log.Debug().Str("chain_id", id).Str("provider", kind).Str("key_id", keyID).Msg("Added signing key")
		}
		return nil
	}

	for _, p := range cfg.Providers.Softsign {
		pv, err := privval.LoadFilePV(p.KeyFile, p.StateFile, toChainIDs(p.ChainIDs)...)
		if err != nil {
			return fail(errors.Wrapf(err, "loading softsign key %s", p.KeyFile))
		}
		closers = append(closers, pv)
		if err := addBackend("softsign", p.KeyID, p.ChainIDs, pv); err != nil {
			return fail(err)
		}
	}

	for _, p := range cfg.Providers.Remote {
		client, err := remotesigner.Dial(p.URL, p.Subject, p.Timeout)
		if err != nil {
			return fail(errors.Wrapf(err, "connecting remote signer %s", p.URL))
		}
		closers = append(closers, client)
		if err := addBackend("remote", p.KeyID, p.ChainIDs, client); err != nil {
			return fail(err)
		}
	}

	chains := make([]*Chain, 0, len(cfg.Chain))
	for _, c := range cfg.Chain {
		log.Debug().Str("chain_id", c.ID).Strs("keys", keyrings[types.ChainID(c.ID)].KeyIDs()).Msg("Loaded chain")
		chains = append(chains, &Chain{
			ID:        types.ChainID(c.ID),
			KeyFormat: c.KeyFormat,
			Signer:    keyrings[types.ChainID(c.ID)],
		})
	}

	reg, err := NewRegistry(chains...)
	if err != nil {
		return fail(err)
	}
	reg.closers = closers
	return reg, nil
}

func toChainIDs(ids []string) []types.ChainID {
	out := make([]types.ChainID, len(ids))
	for i, id := range ids {
		out[i] = types.ChainID(id)
	}
	return out
}
