package main

import (
	"github.com/calehh/hac-dao/governance"
	"github.com/spf13/cobra"
)

type proposeArguments struct {
	ClientConfig string
	Name         string
	Description  string
	Amount       string
	Recipient    string
}

var proposeArgs proposeArguments

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Submit a funding proposal",
	Args:  cobra.NoArgs,
	RunE:  proposeRun,
}

func init() {
	clientFlags(proposeCmd, &proposeArgs.ClientConfig)
	proposeCmd.Flags().StringVarP(&proposeArgs.Name, "name", "n", "", "proposal name")
	proposeCmd.Flags().StringVar(&proposeArgs.Description, "description", "", "proposal description")
	proposeCmd.Flags().StringVarP(&proposeArgs.Amount, "amount", "a", "", "requested amount in token units, e.g. 1.5")
	proposeCmd.Flags().StringVarP(&proposeArgs.Recipient, "recipient", "r", "", "recipient address")
}

func proposeRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newClientEnv(ctx, cmd, proposeArgs.ClientConfig, nil)
	if err != nil {
		return err
	}
	sctx, scancel := env.submitContext(ctx)
	defer scancel()
	receipt, err := env.session.Orchestrator.Create(sctx, governance.CreateRequest{
		Name:        proposeArgs.Name,
		Description: proposeArgs.Description,
		Amount:      proposeArgs.Amount,
		Recipient:   proposeArgs.Recipient,
	})
	if err != nil {
		return userError(err)
	}
	return printJSON(receipt)
}
