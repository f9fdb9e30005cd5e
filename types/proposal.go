package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Proposal is a funding request as recorded by the ledger.
type Proposal struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Recipient   common.Address `json:"recipient"`
	Amount      *big.Int       `json:"amount"`
	Votes       uint64         `json:"votes"`
	Finalized   bool           `json:"finalized"`
}

// Status reports the lifecycle state. Finalized is terminal.
func (p *Proposal) Status() ProposalStatus {
	if p.Finalized {
		return ProposalStatusFinalized
	}
	return ProposalStatusActive
}

// Eligible reports whether the proposal may be finalized under quorum.
// The vote count must be strictly greater than the quorum.
func (p *Proposal) Eligible(quorum uint64) bool {
	return !p.Finalized && p.Votes > quorum
}

type ProposalStatus uint64

const (
	ProposalStatusActive    ProposalStatus = 1
	ProposalStatusFinalized ProposalStatus = 2
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusActive:
		return "In Progress"
	case ProposalStatusFinalized:
		return "Approved"
	default:
		return "Unknown"
	}
}

type VoteKind uint8

const (
	VoteUp   VoteKind = 1
	VoteDown VoteKind = 2
)

func (k VoteKind) String() string {
	switch k {
	case VoteUp:
		return "vote"
	case VoteDown:
		return "downvote"
	default:
		return "unknown"
	}
}

// Member is a DAO member known to the ledger. Weight is added to or
// subtracted from a proposal's votes when the member votes.
type Member struct {
	Address common.Address `json:"address"`
	Weight  uint64         `json:"weight"`
	Nonce   uint64         `json:"nonce"`
}
