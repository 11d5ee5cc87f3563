// Package ledger implements the device bootstrap commands.
package ledger

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blockberries/leaderkms/chain"
	"github.com/blockberries/leaderkms/config"
	"github.com/blockberries/leaderkms/device"
	"github.com/blockberries/leaderkms/types"
)

// New returns the ledger command group. configPath is read when a
// subcommand runs, after flags are parsed.
func New(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Signing device bootstrap",
	}

	cmd.AddCommand(newInitCmd(configPath))
	cmd.AddCommand(newShowCmd(configPath))
	return cmd
}

func newInitCmd(configPath *string) *cobra.Command {
	var height, round int64

	cmd := &cobra.Command{
		Use:     "init",
		Aliases: []string{"initialise", "initialize"},
		Short:   "Initialise the height/round/step",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, chainID, err := open(*configPath, "")
			if err != nil {
				return err
			}
			defer reg.Close()

			var opts device.Options
			if cmd.Flags().Changed("height") {
				opts.Height = &height
			}
			if cmd.Flags().Changed("round") {
				opts.Round = &round
			}

			_, err = device.Initialize(reg, chainID, opts)
			return err
		},
	}

	cmd.Flags().Int64Var(&height, "height", 0, "Height to seed the device with")
	cmd.Flags().Int64VarP(&round, "round", "r", 0, "Round to seed the device with")
	return cmd
}

func newShowCmd(configPath *string) *cobra.Command {
	var chainID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show device keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, target, err := open(*configPath, chainID)
			if err != nil {
				return err
			}
			defer reg.Close()

			id, err := device.ShowIdentity(reg, target)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&chainID, "chain-id", "", "Chain to show (default: chain of the first validator)")
	return cmd
}

// open loads the config and registry, and picks the target chain
func open(configPath, chainID string) (*chain.Registry, types.ChainID, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", err
	}
	log.Debug().Str("path", configPath).Stringer("config", cfg).Msg("Loaded configuration")

	var target types.ChainID
	if chainID != "" {
		target, err = types.ParseChainID(chainID)
	} else {
		target, err = device.TargetChainID(cfg)
	}
	if err != nil {
		return nil, "", err
	}

	reg, err := chain.LoadRegistry(cfg)
	if err != nil {
		return nil, "", err
	}
	return reg, target, nil
}
