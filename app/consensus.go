package app

import (
	"context"
	"errors"
	"strconv"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/tx/handler"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrTxTooLarge       = errors.New("tx too large")
	ErrUnsupportedTx    = errors.New("unsupported tx")
	ErrNoPendingState   = errors.New("no pending state to commit")
	ErrUnexpectedResult = errors.New("unexpected tx result")
)

const (
	CodeOK     uint32 = 0
	CodeFailed uint32 = 1
)

func (app *DAOApp) getState() (st *state.State) {
	st = app.db.NewState()
	app.st = st
	return
}

func (app *DAOApp) parseTx(txDat []byte) (btx *tx.DAOTx, h handler.TxHandler, err error) {
	if int64(len(txDat)) > app.cfg.MaxTxBytes {
		return nil, nil, ErrTxTooLarge
	}
	btx, err = tx.UnmarshalDAOTx(txDat)
	if err != nil {
		return nil, nil, err
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		return nil, nil, ErrUnsupportedTx
	}
	return btx, h, nil
}

func (app *DAOApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: CodeOK}
	btx, h, err := app.parseTx(check.Tx)
	if err != nil {
		app.logger.Error("parse tx fail", "err", err)
		res.Code = CodeFailed
		res.Log = err.Error()
		return res, nil
	}
	st := app.db.State()
	sender, err := st.Verify(btx, true)
	if err != nil {
		app.logger.Info("verify tx fail", "type", btx.Type, "err", err)
		res.Code = CodeFailed
		res.Log = err.Error()
		return res, nil
	}
	app.logger.Debug("check tx", "type", btx.Type, "sender", btx.Sender, "nonce", btx.Nonce)
	res, err = h.Check(ctx, st, btx, sender)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		return &abcitypes.ResponseCheckTx{Code: CodeFailed, Log: err.Error()}, nil
	}
	return
}

// PrepareProposal keeps the mempool order and drops what cannot be decoded
// or does not fit the block.
func (app *DAOApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if _, _, err := app.parseTx(stx); err != nil {
			app.logger.Error("unsupported tx, parse fail", "err", err)
			continue
		}
		if size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *DAOApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_ACCEPT}
	for _, stx := range proposal.Txs {
		if _, _, err := app.parseTx(stx); err != nil {
			app.logger.Error("proposal carries undecodable tx", "height", proposal.Height, "err", err)
			res.Status = abcitypes.ResponseProcessProposal_REJECT
			break
		}
	}
	return res, nil
}

// deliver applies one tx. Rule violations are recorded in the result and
// still consume the sender's nonce; any other failure halts the block.
func (app *DAOApp) deliver(ctx context.Context, st *state.State, stx []byte) (*abcitypes.ExecTxResult, error) {
	btx, h, err := app.parseTx(stx)
	if err != nil {
		return &abcitypes.ExecTxResult{Code: CodeFailed, Log: err.Error()}, nil
	}
	sender, err := st.Verify(btx, false)
	if err != nil {
		return &abcitypes.ExecTxResult{Code: CodeFailed, Log: err.Error()}, nil
	}
	result, err := h.Process(ctx, st, btx, sender)
	var revert *state.RevertError
	switch {
	case errors.As(err, &revert):
		app.logger.Info("tx reverted", "type", btx.Type, "sender", btx.Sender, "reason", revert.Reason)
		result = &abcitypes.ExecTxResult{Code: CodeFailed, Log: revert.Error()}
	case err != nil:
		app.logger.Error("process tx fail", "type", btx.Type, "err", err)
		return nil, err
	case result == nil:
		return nil, ErrUnexpectedResult
	}
	if err = st.IncNonce(sender); err != nil {
		return nil, err
	}
	return result, nil
}

func (app *DAOApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.getState()
	st.SetHeight(uint64(req.Height))
	res := make([]*abcitypes.ExecTxResult, len(req.Txs))
	var events []abcitypes.Event
	for i, stx := range req.Txs {
		result, err := app.deliver(ctx, st, stx)
		if err != nil {
			return nil, err
		}
		res[i] = result
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	if count := st.Header().ProposalCount; count > 0 {
		events = append(events, abcitypes.Event{
			Type: types.DAOModuleName,
			Attributes: []abcitypes.EventAttribute{
				{Key: "proposal_count", Value: strconv.FormatUint(count, 10)},
			},
		})
	}
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
		Events:    events,
	}, nil
}

func (app *DAOApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrNoPendingState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
