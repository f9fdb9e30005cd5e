package handler

import (
	"context"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type CreateProposalTxHandler struct {
	logger cmtlog.Logger
}

func NewCreateProposalTxHandler(logger cmtlog.Logger) (h *CreateProposalTxHandler) {
	logger = logger.With("module", "proposalTx")
	h = &CreateProposalTxHandler{
		logger: logger,
	}
	return
}

func (h *CreateProposalTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx, sender *types.Member) (res *abcitypes.ResponseCheckTx, err error) {
	ptx, ok := btx.Tx.(*tx.CreateProposalTx)
	if !ok {
		return nil, tx.ErrInvalidTx
	}
	_, err1 := st.CreateProposal(ptx, sender, true)
	return checkResult(h.logger, "CreateProposalTx", err1), nil
}

func (h *CreateProposalTxHandler) Process(ctx context.Context, st *state.State, btx *tx.DAOTx, sender *types.Member) (res *abcitypes.ExecTxResult, err error) {
	ptx, ok := btx.Tx.(*tx.CreateProposalTx)
	if !ok {
		return nil, tx.ErrInvalidTx
	}
	event, err := st.CreateProposal(ptx, sender, false)
	if err != nil {
		return nil, err
	}
	h.logger.Info("proposal created", "proposal", event.Proposal, "proposer", event.Proposer, "amount", event.Amount)
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventProposal(event)},
	}
	return
}
