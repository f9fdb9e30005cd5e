package governance

import (
	"context"
	"math/big"
	"sync"

	"github.com/calehh/hac-dao/ledger"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

var _ ledger.Ledger = &fakeLedger{}

// fakeLedger serves fixed reads and records submissions. When gate is
// set, submissions block until it is closed.
type fakeLedger struct {
	mtx       sync.Mutex
	member    common.Address
	proposals []types.Proposal
	quorum    uint64
	voted     map[uint64]bool
	balances  map[common.Address]*big.Int
	submitErr error
	gate      chan struct{}
	entered   chan struct{}
	submitted []string
	hasVoted  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		member:   common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		voted:    make(map[uint64]bool),
		balances: make(map[common.Address]*big.Int),
	}
}

func (f *fakeLedger) Member() common.Address { return f.member }

func (f *fakeLedger) record(ctx context.Context, op string) (*ledger.Receipt, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ledger.Classify(op, ctx.Err())
		}
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, op)
	return &ledger.Receipt{TxHash: "0x01", Height: int64(len(f.submitted))}, nil
}

func (f *fakeLedger) SubmitCreateProposal(ctx context.Context, p ledger.ProposalParams) (*ledger.Receipt, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return f.record(ctx, "createProposal")
}

func (f *fakeLedger) SubmitVote(ctx context.Context, id uint64) (*ledger.Receipt, error) {
	return f.record(ctx, "vote")
}

func (f *fakeLedger) SubmitDownvote(ctx context.Context, id uint64) (*ledger.Receipt, error) {
	return f.record(ctx, "downvote")
}

func (f *fakeLedger) SubmitFinalize(ctx context.Context, id uint64) (*ledger.Receipt, error) {
	return f.record(ctx, "finalizeProposal")
}

func (f *fakeLedger) QueryHasVoted(ctx context.Context, member common.Address, id uint64) (bool, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.hasVoted++
	return f.voted[id], nil
}

func (f *fakeLedger) QueryQuorum(ctx context.Context) (uint64, error) {
	return f.quorum, nil
}

func (f *fakeLedger) QueryProposals(ctx context.Context) ([]types.Proposal, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]types.Proposal(nil), f.proposals...), nil
}

func (f *fakeLedger) QueryBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if b, ok := f.balances[addr]; ok {
		return b, nil
	}
	return nil, ledger.NewError("balance", ledger.ErrNetwork, context.DeadlineExceeded)
}
