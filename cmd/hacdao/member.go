package main

import (
	"github.com/calehh/hac-dao/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type memberArguments struct {
	ClientConfig string
	Proposal     uint64
}

var memberArgs memberArguments

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Show the configured member and its voting record",
	Args:  cobra.NoArgs,
	RunE:  memberRun,
}

func init() {
	clientFlags(memberCmd, &memberArgs.ClientConfig)
	memberCmd.Flags().Uint64VarP(&memberArgs.Proposal, "proposal", "p", 0, "report whether the member voted on this proposal")
}

type memberInfo struct {
	Address  string `json:"address"`
	Weight   uint64 `json:"weight"`
	Nonce    uint64 `json:"nonce"`
	Proposal uint64 `json:"proposal,omitempty"`
	HasVoted *bool  `json:"hasVoted,omitempty"`
	Quorum   uint64 `json:"quorum"`
}

func memberRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newClientEnv(ctx, cmd, memberArgs.ClientConfig, nil)
	if err != nil {
		return err
	}
	l := env.session.Ledger
	member := l.Member()
	if member == (common.Address{}) {
		return userError(ledger.NewError("member", ledger.ErrValidation, ledger.ErrNoSigner))
	}
	info := memberInfo{Address: member.Hex()}
	if c, ok := l.(*ledger.CometClient); ok {
		m, err := c.QueryMember(ctx, member)
		if err != nil {
			return userError(err)
		}
		if m != nil {
			info.Weight = m.Weight
			info.Nonce = m.Nonce
		}
	}
	if info.Quorum, err = l.QueryQuorum(ctx); err != nil {
		return userError(err)
	}
	if memberArgs.Proposal != 0 {
		voted, err := l.QueryHasVoted(ctx, member, memberArgs.Proposal)
		if err != nil {
			return userError(err)
		}
		info.Proposal = memberArgs.Proposal
		info.HasVoted = &voted
	}
	return printJSON(info)
}
