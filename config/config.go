// Package config loads the KMS configuration file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/blockberries/leaderkms/types"
)

// EnvPrefix is the prefix of environment variables that override file values
const EnvPrefix = "LEADERKMS"

// DefaultRemoteTimeout bounds a single remote signer request
const DefaultRemoteTimeout = 30 * time.Second

// ErrConfiguration is returned for any invalid or incomplete configuration
var ErrConfiguration = errors.New("configuration error")

// Config is the top-level configuration
type Config struct {
	// Chains the KMS knows about
	Chain []ChainConfig `mapstructure:"chain"`

	// Validators this KMS signs for; the first one is the handshake target
	Validator []ValidatorConfig `mapstructure:"validator"`

	// Signing backends
	Providers ProviderConfig `mapstructure:"providers"`
}

// ChainConfig describes one chain
type ChainConfig struct {
	ID string `mapstructure:"id"`
	// Bech32 prefix used when displaying public keys
	KeyFormat string `mapstructure:"key_format"`
}

// ValidatorConfig describes one validator connection
type ValidatorConfig struct {
	Addr    string `mapstructure:"addr"`
	ChainID string `mapstructure:"chain_id"`
}

// ProviderConfig groups the configured signing backends
type ProviderConfig struct {
	Softsign []SoftsignConfig `mapstructure:"softsign"`
	Remote   []RemoteConfig   `mapstructure:"remote"`
}

// SoftsignConfig is a file-based ed25519 key
type SoftsignConfig struct {
	ChainIDs  []string `mapstructure:"chain_ids"`
	KeyID     string   `mapstructure:"key_id"`
	KeyFile   string   `mapstructure:"key_file"`
	StateFile string   `mapstructure:"state_file"`
}

// RemoteConfig is a signer reached over NATS
type RemoteConfig struct {
	ChainIDs []string      `mapstructure:"chain_ids"`
	KeyID    string        `mapstructure:"key_id"`
	URL      string        `mapstructure:"url"`
	Subject  string        `mapstructure:"subject"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Load reads and validates the configuration at path. The format follows the
// file extension (toml, yaml, json).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "reading %s: %v", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "decoding %s: %v", path, err)
	}

	cfg.resolvePaths(filepath.Dir(path))
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths makes relative key and state paths relative to the config file
func (cfg *Config) resolvePaths(base string) {
	for i := range cfg.Providers.Softsign {
		p := &cfg.Providers.Softsign[i]
		if p.KeyFile != "" && !filepath.IsAbs(p.KeyFile) {
			p.KeyFile = filepath.Join(base, p.KeyFile)
		}
		if p.StateFile != "" && !filepath.IsAbs(p.StateFile) {
			p.StateFile = filepath.Join(base, p.StateFile)
		}
	}
}

func (cfg *Config) applyDefaults() {
	for i := range cfg.Providers.Remote {
		if cfg.Providers.Remote[i].Timeout <= 0 {
			cfg.Providers.Remote[i].Timeout = DefaultRemoteTimeout
		}
	}
}

// Validate performs basic validation of the config. An empty validator list
// is allowed here; commands that need a validator report it themselves.
func (cfg *Config) Validate() error {
	if len(cfg.Chain) == 0 {
		return errors.Wrap(ErrConfiguration, "no [[chain]] configured")
	}

	chains := make(map[string]struct{}, len(cfg.Chain))
	for i, c := range cfg.Chain {
		if _, err := types.ParseChainID(c.ID); err != nil {
			return errors.Wrapf(ErrConfiguration, "chain[%d]: %v", i, err)
		}
		if _, dup := chains[c.ID]; dup {
			return errors.Wrapf(ErrConfiguration, "chain %q configured twice", c.ID)
		}
		chains[c.ID] = struct{}{}
	}

	for i, val := range cfg.Validator {
		if _, ok := chains[val.ChainID]; !ok {
			return errors.Wrapf(ErrConfiguration, "validator[%d]: unknown chain %q", i, val.ChainID)
		}
	}

	checkChains := func(kind string, i int, ids []string) error {
		if len(ids) == 0 {
			return errors.Wrapf(ErrConfiguration, "%s[%d]: no chain_ids", kind, i)
		}
		for _, id := range ids {
			if _, ok := chains[id]; !ok {
				return errors.Wrapf(ErrConfiguration, "%s[%d]: unknown chain %q", kind, i, id)
			}
		}
		return nil
	}

	for i, p := range cfg.Providers.Softsign {
		if err := checkChains("softsign", i, p.ChainIDs); err != nil {
			return err
		}
		if p.KeyFile == "" || p.StateFile == "" {
			return errors.Wrapf(ErrConfiguration, "softsign[%d]: key_file and state_file are required", i)
		}
	}

	for i, p := range cfg.Providers.Remote {
		if err := checkChains("remote", i, p.ChainIDs); err != nil {
			return err
		}
		if p.URL == "" || p.Subject == "" {
			return errors.Wrapf(ErrConfiguration, "remote[%d]: url and subject are required", i)
		}
	}

	return nil
}

// String summarizes the config for debug logs; no key material is included
func (cfg *Config) String() string {
	return fmt.Sprintf("Config{chains=%d validators=%d softsign=%d remote=%d}",
		len(cfg.Chain), len(cfg.Validator), len(cfg.Providers.Softsign), len(cfg.Providers.Remote))
}
