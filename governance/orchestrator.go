package governance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calehh/hac-dao/ledger"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	ErrBusy             = errors.New("another governance operation is in progress")
	ErrNotLoaded        = errors.New("proposal not loaded")
	ErrQuorumNotLoaded  = errors.New("quorum not loaded")
	ErrAlreadyVoted     = errors.New("already voted")
	ErrFinalized        = errors.New("proposal already finalized")
	ErrQuorumNotReached = errors.New("must reach quorum to finalize proposal")
)

const (
	OpCreate   = "createProposal"
	OpVote     = "vote"
	OpDownvote = "downvote"
	OpFinalize = "finalizeProposal"
)

// CreateRequest is a proposal as entered by a member. Amount is in human
// units and Recipient is a hex address.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient"`
}

// Orchestrator turns member intents into ledger transactions. At most one
// runs at a time; a concurrent call fails with ErrBusy.
type Orchestrator struct {
	logger   cmtlog.Logger
	client   ledger.Client
	board    *Board
	cache    *VoteCache
	decimals int32
	metrics  *Metrics

	inflight sync.Mutex
	busy     atomic.Bool
	events   notifier
}

func NewOrchestrator(client ledger.Client, board *Board, cache *VoteCache, decimals int32, metrics *Metrics, logger cmtlog.Logger) *Orchestrator {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Orchestrator{
		logger:   logger.With("module", "orchestrator"),
		client:   client,
		board:    board,
		cache:    cache,
		decimals: decimals,
		metrics:  metrics,
	}
}

func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Subscribe returns a channel receiving an Event after every confirmed
// mutation, and a function that cancels the subscription.
func (o *Orchestrator) Subscribe(buffer int) (<-chan Event, func()) {
	return o.events.subscribe(buffer)
}

// begin claims the in-flight slot. The returned func releases it and
// records the outcome; it must run on every path.
func (o *Orchestrator) begin(op string) (cmtlog.Logger, func(error), error) {
	if !o.inflight.TryLock() {
		err := ledger.NewError(op, ledger.ErrValidation, ErrBusy)
		o.metrics.observe(op, err, 0)
		return nil, nil, err
	}
	o.busy.Store(true)
	o.metrics.busy.Set(1)
	logger := o.logger.With("op", op, "opId", uuid.NewString())
	start := time.Now()
	logger.Info("operation started")
	return logger, func(err error) {
		took := time.Since(start)
		o.metrics.observe(op, err, took)
		if err != nil {
			logger.Info("operation failed", "err", err, "took", took)
		} else {
			logger.Info("operation confirmed", "took", took)
		}
		o.busy.Store(false)
		o.metrics.busy.Set(0)
		o.inflight.Unlock()
	}, nil
}

func (o *Orchestrator) requireSigner(op string) error {
	if o.client.Member() == (common.Address{}) {
		return ledger.NewError(op, ledger.ErrValidation, ledger.ErrNoSigner)
	}
	return nil
}

func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (receipt *ledger.Receipt, err error) {
	logger, end, err := o.begin(OpCreate)
	if err != nil {
		return nil, err
	}
	defer func() { end(err) }()

	if err = o.requireSigner(OpCreate); err != nil {
		return nil, err
	}
	amount, err := ledger.ParseAmount(req.Amount, o.decimals)
	if err != nil {
		return nil, ledger.NewError(OpCreate, ledger.ErrValidation, err)
	}
	recipient, err := ledger.ParseAddress(req.Recipient)
	if err != nil {
		return nil, ledger.NewError(OpCreate, ledger.ErrValidation, err)
	}
	logger.Debug("submit proposal", "name", req.Name, "amount", amount, "recipient", recipient)
	receipt, err = o.client.SubmitCreateProposal(ctx, ledger.ProposalParams{
		Name:        req.Name,
		Description: req.Description,
		Amount:      amount,
		Recipient:   recipient,
	})
	if err != nil {
		return nil, err
	}
	o.events.publish(Event{Op: OpCreate, ProposalID: receipt.ProposalID, Receipt: receipt})
	return receipt, nil
}

func (o *Orchestrator) Vote(ctx context.Context, id uint64) (*ledger.Receipt, error) {
	return o.vote(ctx, id, types.VoteUp)
}

func (o *Orchestrator) Downvote(ctx context.Context, id uint64) (*ledger.Receipt, error) {
	return o.vote(ctx, id, types.VoteDown)
}

func (o *Orchestrator) vote(ctx context.Context, id uint64, kind types.VoteKind) (receipt *ledger.Receipt, err error) {
	op := OpVote
	submit := o.client.SubmitVote
	if kind == types.VoteDown {
		op = OpDownvote
		submit = o.client.SubmitDownvote
	}
	logger, end, err := o.begin(op)
	if err != nil {
		return nil, err
	}
	defer func() { end(err) }()

	if err = o.requireSigner(op); err != nil {
		return nil, err
	}
	p, ok := o.board.Lookup(id)
	if !ok {
		return nil, ledger.NewError(op, ledger.ErrValidation, ErrNotLoaded)
	}
	if p.Finalized {
		return nil, ledger.NewError(op, ledger.ErrValidation, ErrFinalized)
	}
	if o.cache.Get(id) {
		return nil, ledger.NewError(op, ledger.ErrValidation, ErrAlreadyVoted)
	}
	logger.Debug("submit vote", "proposal", id, "kind", kind)
	receipt, err = submit(ctx, id)
	if err != nil {
		return nil, err
	}
	o.cache.MarkVoted(id)
	o.events.publish(Event{Op: op, ProposalID: id, Receipt: receipt})
	return receipt, nil
}

func (o *Orchestrator) Finalize(ctx context.Context, id uint64) (receipt *ledger.Receipt, err error) {
	logger, end, err := o.begin(OpFinalize)
	if err != nil {
		return nil, err
	}
	defer func() { end(err) }()

	if err = o.requireSigner(OpFinalize); err != nil {
		return nil, err
	}
	p, ok := o.board.Lookup(id)
	if !ok {
		return nil, ledger.NewError(OpFinalize, ledger.ErrValidation, ErrNotLoaded)
	}
	if p.Finalized {
		return nil, ledger.NewError(OpFinalize, ledger.ErrValidation, ErrFinalized)
	}
	quorum, ok := o.board.Quorum()
	if !ok {
		return nil, ledger.NewError(OpFinalize, ledger.ErrValidation, ErrQuorumNotLoaded)
	}
	if !p.Eligible(quorum) {
		return nil, ledger.NewError(OpFinalize, ledger.ErrValidation, ErrQuorumNotReached)
	}
	logger.Debug("submit finalize", "proposal", id, "votes", p.Votes, "quorum", quorum)
	receipt, err = o.client.SubmitFinalize(ctx, id)
	if err != nil {
		return nil, err
	}
	o.events.publish(Event{Op: OpFinalize, ProposalID: id, Receipt: receipt})
	return receipt, nil
}
