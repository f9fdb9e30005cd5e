package handler

import (
	"context"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// TxHandler applies one transaction type. sender is the verified signer.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.DAOTx, sender *types.Member) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx context.Context, st *state.State, btx *tx.DAOTx, sender *types.Member) (res *abcitypes.ExecTxResult, err error)
}

// NewTxHandlers returns the handler for every known transaction type.
func NewTxHandlers(logger cmtlog.Logger) map[tx.DAOTxType]TxHandler {
	vote := NewVoteTxHandler(logger)
	return map[tx.DAOTxType]TxHandler{
		tx.DAOTxTypeCreateProposal: NewCreateProposalTxHandler(logger),
		tx.DAOTxTypeVote:           vote,
		tx.DAOTxTypeDownvote:       vote,
		tx.DAOTxTypeFinalize:       NewFinalizeTxHandler(logger),
	}
}

func checkResult(logger cmtlog.Logger, name string, err error) *abcitypes.ResponseCheckTx {
	res := &abcitypes.ResponseCheckTx{Code: 0}
	if err != nil {
		logger.Info("CheckTx "+name+" fail", "err", err)
		res.Code = 1
		res.Log = err.Error()
	}
	return res
}
