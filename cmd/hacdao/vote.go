package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/calehh/hac-dao/governance"
	"github.com/calehh/hac-dao/ledger"
	"github.com/spf13/cobra"
)

type voteArguments struct {
	ClientConfig string
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote <proposal-id>",
	Short: "Vote for a proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposalOpRun(cmd, args, voteArgs.ClientConfig, func(o *governance.Orchestrator) proposalOp { return o.Vote })
	},
}

var downvoteCmd = &cobra.Command{
	Use:   "downvote <proposal-id>",
	Short: "Vote against a proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposalOpRun(cmd, args, voteArgs.ClientConfig, func(o *governance.Orchestrator) proposalOp { return o.Downvote })
	},
}

func init() {
	clientFlags(voteCmd, &voteArgs.ClientConfig)
	clientFlags(downvoteCmd, &voteArgs.ClientConfig)
}

type proposalOp func(ctx context.Context, id uint64) (*ledger.Receipt, error)

// proposalOpRun loads the board, then runs one proposal operation on it.
func proposalOpRun(cmd *cobra.Command, args []string, file string, pick func(*governance.Orchestrator) proposalOp) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid proposal id %q", args[0])
	}
	ctx := cmd.Context()
	env, err := newClientEnv(ctx, cmd, file, nil)
	if err != nil {
		return err
	}
	if err = env.session.Board.Reload(ctx); err != nil {
		return userError(ledger.Classify("reload", err))
	}
	sctx, scancel := env.submitContext(ctx)
	defer scancel()
	receipt, err := pick(env.session.Orchestrator)(sctx, id)
	if err != nil {
		return userError(err)
	}
	return printJSON(receipt)
}
