package main

import (
	"os"

	"github.com/calehh/hac-dao/config"
	"github.com/spf13/cobra"
)

const (
	FlagHome         = "home"
	FlagChainID      = "chain-id"
	FlagOverwrite    = "overwrite"
	FlagClientConfig = "client-config"
)

func homeFlag(cmd *cobra.Command, home *string) {
	cmd.Flags().StringVarP(home, FlagHome, "d", os.ExpandEnv(config.DefaultHomeDir), "node home directory")
}

// clientFlags registers the flags every ledger client command shares.
func clientFlags(cmd *cobra.Command, file *string) {
	cmd.Flags().StringVarP(file, FlagClientConfig, "c", "", "client config file (toml, yaml or json)")
	config.RegisterClientFlags(cmd.Flags())
}
