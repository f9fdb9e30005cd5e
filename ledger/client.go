package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

// Receipt identifies a committed transaction.
type Receipt struct {
	TxHash     string `json:"txHash"`
	Height     int64  `json:"height"`
	ProposalID uint64 `json:"proposalId,omitempty"`
}

type ProposalParams struct {
	Name        string
	Description string
	Amount      *big.Int
	Recipient   common.Address
}

func (p *ProposalParams) Validate() error {
	const op = "createProposal"
	if strings.TrimSpace(p.Name) == "" {
		return Validationf(op, "proposal name is empty")
	}
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return Validationf(op, "amount must be positive")
	}
	if p.Amount.BitLen() > MaxAmountBits {
		return NewError(op, ErrValidation, ErrAmountRange)
	}
	if p.Recipient == (common.Address{}) {
		return Validationf(op, "recipient is the zero address")
	}
	return nil
}

var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress accepts a 0x-prefixed or bare 40 digit hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// Client submits governance transactions on behalf of one member. Submit
// calls return once the transaction is committed or has failed.
type Client interface {
	Member() common.Address
	SubmitCreateProposal(ctx context.Context, params ProposalParams) (*Receipt, error)
	SubmitVote(ctx context.Context, id uint64) (*Receipt, error)
	SubmitDownvote(ctx context.Context, id uint64) (*Receipt, error)
	SubmitFinalize(ctx context.Context, id uint64) (*Receipt, error)
	QueryHasVoted(ctx context.Context, member common.Address, id uint64) (bool, error)
	QueryQuorum(ctx context.Context) (uint64, error)
}

type Reader interface {
	QueryProposals(ctx context.Context) ([]types.Proposal, error)
	QueryBalance(ctx context.Context, addr common.Address) (*big.Int, error)
}

type Ledger interface {
	Client
	Reader
}
