package main

import (
	"github.com/calehh/hac-dao/governance"
	"github.com/spf13/cobra"
)

type finalizeArguments struct {
	ClientConfig string
}

var finalizeArgs finalizeArguments

var finalizeCmd = &cobra.Command{
	Use:   "finalize <proposal-id>",
	Short: "Finalize a proposal that has passed quorum and pay the recipient",
	Args:  cobra.ExactArgs(1),
	RunE:  finalizeRun,
}

func init() {
	clientFlags(finalizeCmd, &finalizeArgs.ClientConfig)
}

func finalizeRun(cmd *cobra.Command, args []string) error {
	return proposalOpRun(cmd, args, finalizeArgs.ClientConfig, func(o *governance.Orchestrator) proposalOp { return o.Finalize })
}
