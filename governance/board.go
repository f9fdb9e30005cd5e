package governance

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/calehh/hac-dao/ledger"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const boardReadConcurrency = 8

// Snapshot is one consistent read of the ledger.
type Snapshot struct {
	Proposals []types.Proposal
	Quorum    uint64
	// Balances holds recipient balances; a missing entry means the read
	// failed.
	Balances map[common.Address]*big.Int
	Loaded   bool
	At       time.Time
}

// Board is the read model consumers render from. It holds the last
// snapshot and never derives vote counts locally.
type Board struct {
	logger   cmtlog.Logger
	reader   ledger.Reader
	client   ledger.Client
	cache    *VoteCache
	decimals int32

	mtx  sync.RWMutex
	snap Snapshot
}

func NewBoard(l ledger.Ledger, cache *VoteCache, decimals int32, logger cmtlog.Logger) *Board {
	return &Board{
		logger:   logger.With("module", "board"),
		reader:   l,
		client:   l,
		cache:    cache,
		decimals: decimals,
	}
}

// Reload reads proposals and quorum, then refreshes vote status and
// recipient balances. Vote status and balance failures are logged and
// leave the previous values in place.
func (b *Board) Reload(ctx context.Context) error {
	var (
		proposals []types.Proposal
		quorum    uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		proposals, err = b.reader.QueryProposals(gctx)
		return
	})
	g.Go(func() (err error) {
		quorum, err = b.client.QueryQuorum(gctx)
		return
	})
	if err := g.Wait(); err != nil {
		b.logger.Error("reload fail", "err", err)
		return err
	}

	var balMtx sync.Mutex
	balances := make(map[common.Address]*big.Int, len(proposals))
	var rg errgroup.Group
	rg.SetLimit(boardReadConcurrency)
	for _, p := range proposals {
		p := p
		rg.Go(func() error {
			if err := b.cache.Refresh(ctx, p.ID); err != nil {
				b.logger.Error("refresh vote status fail", "proposal", p.ID, "err", err)
			}
			bal, err := b.reader.QueryBalance(ctx, p.Recipient)
			if err != nil {
				b.logger.Error("get recipient balance fail", "recipient", p.Recipient, "err", err)
				return nil
			}
			balMtx.Lock()
			balances[p.Recipient] = bal
			balMtx.Unlock()
			return nil
		})
	}
	_ = rg.Wait()

	b.mtx.Lock()
	b.snap = Snapshot{
		Proposals: proposals,
		Quorum:    quorum,
		Balances:  balances,
		Loaded:    true,
		At:        time.Now(),
	}
	b.mtx.Unlock()
	b.logger.Debug("board reloaded", "proposals", len(proposals), "quorum", quorum)
	return nil
}

func (b *Board) Snapshot() Snapshot {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return b.snap
}

func (b *Board) Lookup(id uint64) (types.Proposal, bool) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	for _, p := range b.snap.Proposals {
		if p.ID == id {
			return p, true
		}
	}
	return types.Proposal{}, false
}

func (b *Board) Quorum() (uint64, bool) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return b.snap.Quorum, b.snap.Loaded
}

func (b *Board) Views() []ProposalView {
	return Project(b.Snapshot(), b.cache.Get, b.decimals)
}

// Follow reloads on every event until ctx ends or events is closed.
func (b *Board) Follow(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.logger.Debug("ledger changed", "op", ev.Op, "proposal", ev.ProposalID)
			if err := b.Reload(ctx); err != nil {
				b.logger.Error("reload after event fail", "op", ev.Op, "err", err)
			}
		}
	}
}

// ProposalView is a proposal as presented to a member.
type ProposalView struct {
	ID               uint64 `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	Recipient        string `json:"recipient"`
	RecipientBalance string `json:"recipientBalance"`
	Amount           string `json:"amount"`
	Votes            uint64 `json:"votes"`
	Status           string `json:"status"`
	Finalized        bool   `json:"finalized"`
	HasVoted         bool   `json:"hasVoted"`
	CanVote          bool   `json:"canVote"`
	CanFinalize      bool   `json:"canFinalize"`
}

// Project derives views from a snapshot and the member's vote status.
// It is a pure function of its inputs.
func Project(snap Snapshot, voted func(id uint64) bool, decimals int32) []ProposalView {
	views := make([]ProposalView, 0, len(snap.Proposals))
	for _, p := range snap.Proposals {
		hasVoted := voted(p.ID)
		views = append(views, ProposalView{
			ID:               p.ID,
			Name:             p.Name,
			Description:      p.Description,
			Recipient:        p.Recipient.Hex(),
			RecipientBalance: ledger.FormatAmount(snap.Balances[p.Recipient], decimals),
			Amount:           ledger.FormatAmount(p.Amount, decimals),
			Votes:            p.Votes,
			Status:           p.Status().String(),
			Finalized:        p.Finalized,
			HasVoted:         hasVoted,
			CanVote:          snap.Loaded && !p.Finalized && !hasVoted,
			CanFinalize:      snap.Loaded && p.Eligible(snap.Quorum),
		})
	}
	return views
}
