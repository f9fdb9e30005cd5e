package handler

import (
	"context"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type FinalizeTxHandler struct {
	logger cmtlog.Logger
}

func NewFinalizeTxHandler(logger cmtlog.Logger) (h *FinalizeTxHandler) {
	logger = logger.With("module", "finalizeTx")
	h = &FinalizeTxHandler{
		logger: logger,
	}
	return
}

func (h *FinalizeTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx, sender *types.Member) (res *abcitypes.ResponseCheckTx, err error) {
	ftx, ok := btx.Tx.(*tx.FinalizeTx)
	if !ok {
		return nil, tx.ErrInvalidTx
	}
	_, err1 := st.Finalize(ftx, sender, true)
	return checkResult(h.logger, "FinalizeTx", err1), nil
}

func (h *FinalizeTxHandler) Process(ctx context.Context, st *state.State, btx *tx.DAOTx, sender *types.Member) (res *abcitypes.ExecTxResult, err error) {
	ftx, ok := btx.Tx.(*tx.FinalizeTx)
	if !ok {
		return nil, tx.ErrInvalidTx
	}
	event, err := st.Finalize(ftx, sender, false)
	if err != nil {
		return nil, err
	}
	h.logger.Info("proposal finalized", "proposal", event.Proposal, "recipient", event.Recipient, "amount", event.Amount)
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventFinalize(event)},
	}
	return
}
