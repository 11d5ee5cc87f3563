// Package remote implements the command that serves a softsign key to remote
// clients.
package remote

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blockberries/leaderkms/config"
	"github.com/blockberries/leaderkms/privval"
	"github.com/blockberries/leaderkms/remotesigner"
	"github.com/blockberries/leaderkms/types"
)

// New returns the remote signer command group
func New(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Remote signer tools",
	}

	cmd.AddCommand(newServeCmd(configPath))
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	var chainID, natsURL, subject string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a chain's softsign key over NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			id, err := types.ParseChainID(chainID)
			if err != nil {
				return err
			}
			p, err := findSoftsign(cfg, id)
			if err != nil {
				return err
			}

			pv, err := privval.LoadFilePV(p.KeyFile, p.StateFile, id)
			if err != nil {
				return err
			}
			defer pv.Close()

			nc, err := nats.Connect(natsURL, nats.Name("leaderkms-remote"))
			if err != nil {
				return errors.Wrapf(err, "connecting to %s", natsURL)
			}
			defer nc.Close()

			srv, err := remotesigner.NewServer(pv, subject)
			if err != nil {
				return err
			}
			if err := srv.Start(nc); err != nil {
				return err
			}
			defer srv.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			log.Info().Msg("Shutting down remote signer")
			return nil
		},
	}

	cmd.Flags().StringVar(&chainID, "chain-id", "", "Chain whose softsign key is served")
	cmd.Flags().StringVar(&natsURL, "nats-url", nats.DefaultURL, "NATS server URL")
	cmd.Flags().StringVar(&subject, "subject", "leaderkms", "Base subject to serve on")
	_ = cmd.MarkFlagRequired("chain-id")
	return cmd
}

func findSoftsign(cfg *config.Config, id types.ChainID) (config.SoftsignConfig, error) {
	for _, p := range cfg.Providers.Softsign {
		for _, c := range p.ChainIDs {
			if c == string(id) {
				return p, nil
			}
		}
	}
	return config.SoftsignConfig{}, errors.Wrapf(config.ErrConfiguration, "no softsign provider for chain %q", id)
}
