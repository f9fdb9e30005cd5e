package governance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calehh/hac-dao/ledger"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T, f *fakeLedger) (*Orchestrator, *Metrics) {
	cache := NewVoteCache(f)
	board := NewBoard(f, cache, ledger.DefaultDecimals, cmtlog.NewNopLogger())
	require.NoError(t, board.Reload(context.Background()))
	m := NewMetrics(prometheus.NewRegistry())
	return NewOrchestrator(f, board, cache, ledger.DefaultDecimals, m, cmtlog.NewNopLogger()), m
}

func loadedLedger() *fakeLedger {
	f := newFakeLedger()
	f.quorum = 2
	f.proposals = []types.Proposal{
		{ID: 1, Name: "open", Amount: ether(1), Recipient: paid, Votes: 2},
		{ID: 2, Name: "ready", Amount: ether(1), Recipient: paid, Votes: 3},
		{ID: 3, Name: "done", Amount: ether(1), Recipient: paid, Votes: 3, Finalized: true},
	}
	return f
}

func TestVoteGuards(t *testing.T) {
	ctx := context.Background()
	f := loadedLedger()
	o, _ := newTestOrchestrator(t, f)

	_, err := o.Vote(ctx, 9)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = o.Downvote(ctx, 3)
	assert.ErrorIs(t, err, ErrFinalized)

	_, err = o.Vote(ctx, 1)
	require.NoError(t, err)
	assert.True(t, o.cache.Get(1))

	// up and down share the once-per-member guard
	_, err = o.Downvote(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Equal(t, []string{"vote"}, f.submitted)
}

func TestFinalizeGuards(t *testing.T) {
	ctx := context.Background()
	f := loadedLedger()
	o, _ := newTestOrchestrator(t, f)

	_, err := o.Finalize(ctx, 1)
	assert.ErrorIs(t, err, ErrQuorumNotReached)
	_, err = o.Finalize(ctx, 3)
	assert.ErrorIs(t, err, ErrFinalized)
	_, err = o.Finalize(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"finalizeProposal"}, f.submitted)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := loadedLedger()
	o, _ := newTestOrchestrator(t, f)
	good := CreateRequest{Name: "Roof", Amount: "1.5", Recipient: paid.Hex()}

	tests := []struct {
		name string
		mod  func(r *CreateRequest)
	}{
		{"bad amount", func(r *CreateRequest) { r.Amount = "lots" }},
		{"zero amount", func(r *CreateRequest) { r.Amount = "0" }},
		{"too precise", func(r *CreateRequest) { r.Amount = "0.0000000000000000001" }},
		{"bad recipient", func(r *CreateRequest) { r.Recipient = "0x1234" }},
		{"empty name", func(r *CreateRequest) { r.Name = "" }},
		{"beyond uint256", func(r *CreateRequest) { r.Amount = "1e100" }},
		{"huge exponent", func(r *CreateRequest) { r.Amount = "1e10000000" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := good
			tc.mod(&req)
			_, err := o.Create(ctx, req)
			assert.ErrorIs(t, err, ledger.ErrValidation)
			var le *ledger.Error
			require.True(t, errors.As(err, &le))
			assert.Equal(t, OpCreate, le.Op)
		})
	}
	assert.Empty(t, f.submitted)

	_, err := o.Create(ctx, CreateRequest{Name: "Moon", Amount: "1e100", Recipient: paid.Hex()})
	assert.ErrorIs(t, err, ledger.ErrAmountRange)
	_, err = o.Create(ctx, CreateRequest{Name: "Roof", Amount: "1", Recipient: "0x1234"})
	assert.ErrorIs(t, err, ledger.ErrInvalidAddress)

	_, err = o.Create(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, "1.5", good.Amount)
}

func TestSubmitFailureLeavesCacheUnchanged(t *testing.T) {
	f := loadedLedger()
	f.submitErr = ledger.NewError("vote", ledger.ErrLedgerRevert, errors.New("reverted with reason string 'already voted'"))
	o, m := newTestOrchestrator(t, f)
	events, cancel := o.Subscribe(1)
	defer cancel()

	_, err := o.Vote(context.Background(), 1)
	assert.ErrorIs(t, err, ledger.ErrLedgerRevert)
	assert.False(t, o.cache.Get(1))
	assert.False(t, o.Busy())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues(OpVote, "revert")))
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestBusyRejectsConcurrentOperation(t *testing.T) {
	f := loadedLedger()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 1)
	o, m := newTestOrchestrator(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := o.Vote(context.Background(), 1)
		done <- err
	}()
	<-f.entered
	assert.True(t, o.Busy())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busy))

	_, err := o.Finalize(context.Background(), 2)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues(OpFinalize, "busy")))

	close(f.gate)
	require.NoError(t, <-done)
	assert.False(t, o.Busy())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.busy))
}

func TestTimeoutReportsMayStillLand(t *testing.T) {
	f := loadedLedger()
	f.gate = make(chan struct{})
	o, _ := newTestOrchestrator(t, f)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := o.Vote(ctx, 1)
	assert.ErrorIs(t, err, ledger.ErrNetwork)
	assert.ErrorIs(t, err, ledger.ErrMayStillLand)
	assert.False(t, o.Busy())
}

func TestConfirmedMutationPublishesEvent(t *testing.T) {
	f := loadedLedger()
	o, m := newTestOrchestrator(t, f)
	events, cancel := o.Subscribe(2)
	defer cancel()

	_, err := o.Vote(context.Background(), 1)
	require.NoError(t, err)
	ev := <-events
	assert.Equal(t, OpVote, ev.Op)
	assert.Equal(t, uint64(1), ev.ProposalID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues(OpVote, "ok")))
}

func TestReadOnlySessionCannotSubmit(t *testing.T) {
	f := loadedLedger()
	f.member = common.Address{}
	o, _ := newTestOrchestrator(t, f)

	_, err := o.Create(context.Background(), CreateRequest{Name: "Roof", Amount: "1", Recipient: paid.Hex()})
	assert.ErrorIs(t, err, ledger.ErrNoSigner)
	_, err = o.Vote(context.Background(), 1)
	assert.ErrorIs(t, err, ledger.ErrValidation)
	assert.Empty(t, f.submitted)
}
