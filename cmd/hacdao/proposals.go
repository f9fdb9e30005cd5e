package main

import (
	"github.com/calehh/hac-dao/ledger"
	"github.com/spf13/cobra"
)

type proposalsArguments struct {
	ClientConfig string
	ID           uint64
}

var proposalsArgs proposalsArguments

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "List proposals with votes, status and recipient balances",
	Args:  cobra.NoArgs,
	RunE:  proposalsRun,
}

func init() {
	clientFlags(proposalsCmd, &proposalsArgs.ClientConfig)
	proposalsCmd.Flags().Uint64VarP(&proposalsArgs.ID, "id", "i", 0, "show only this proposal")
}

func proposalsRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newClientEnv(ctx, cmd, proposalsArgs.ClientConfig, nil)
	if err != nil {
		return err
	}
	if err = env.session.Board.Reload(ctx); err != nil {
		return userError(ledger.Classify("getProposals", err))
	}
	views := env.session.Board.Views()
	if proposalsArgs.ID == 0 {
		return printJSON(views)
	}
	for _, v := range views {
		if v.ID == proposalsArgs.ID {
			return printJSON(v)
		}
	}
	return userError(ledger.Validationf("getProposals", "proposal %d does not exist", proposalsArgs.ID))
}
