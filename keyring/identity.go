package keyring

import (
	"github.com/cosmos/btcutil/bech32"
	"github.com/pkg/errors"

	"github.com/blockberries/leaderkms/types"
)

// Bech32PublicKey renders pk with the human-readable prefix hrp, e.g.
// "cosmosvalconspub".
func Bech32PublicKey(hrp string, pk types.PublicKey) (string, error) {
	if hrp == "" {
		return "", errors.New("empty bech32 prefix")
	}
	if len(pk.Data) == 0 {
		return "", errors.New("empty public key")
	}

	conv, err := bech32.ConvertBits(pk.Data, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "converting public key to base32")
	}
	s, err := bech32.Encode(hrp, conv)
	if err != nil {
		return "", errors.Wrapf(err, "encoding public key with prefix %q", hrp)
	}
	return s, nil
}
