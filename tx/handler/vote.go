package handler

import (
	"context"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// VoteTxHandler serves both vote and downvote; the envelope type picks
// the direction.
type VoteTxHandler struct {
	logger cmtlog.Logger
}

func NewVoteTxHandler(logger cmtlog.Logger) (h *VoteTxHandler) {
	logger = logger.With("module", "voteTx")
	h = &VoteTxHandler{
		logger: logger,
	}
	return
}

func voteKind(btx *tx.DAOTx) types.VoteKind {
	if btx.Type == tx.DAOTxTypeDownvote {
		return types.VoteDown
	}
	return types.VoteUp
}

func (h *VoteTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx, sender *types.Member) (res *abcitypes.ResponseCheckTx, err error) {
	vtx, ok := btx.Tx.(*tx.VoteTx)
	if !ok {
		return nil, tx.ErrInvalidTx
	}
	_, err1 := st.Vote(vtx, sender, voteKind(btx), true)
	return checkResult(h.logger, "VoteTx", err1), nil
}

func (h *VoteTxHandler) Process(ctx context.Context, st *state.State, btx *tx.DAOTx, sender *types.Member) (res *abcitypes.ExecTxResult, err error) {
	vtx, ok := btx.Tx.(*tx.VoteTx)
	if !ok {
		return nil, tx.ErrInvalidTx
	}
	event, err := st.Vote(vtx, sender, voteKind(btx), false)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventVote(event)},
	}
	return
}
