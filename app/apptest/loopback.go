// Package apptest drives a DAOApp in process, one block per transaction,
// behind the same calls the ledger client makes over CometBFT RPC.
package apptest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/calehh/hac-dao/app"
	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
)

type Loopback struct {
	mtx     sync.Mutex
	app     *app.DAOApp
	chainID string
	height  int64

	// OnBroadcast, when set, runs before each transaction is processed.
	// Returning an error fails the broadcast as a transport error would.
	OnBroadcast func(ctx context.Context) error
}

func New(dir, chainID string, genesis *types.AppGenesis) (*Loopback, error) {
	return NewWithLogger(dir, chainID, genesis, cmtlog.NewNopLogger())
}

func NewWithLogger(dir, chainID string, genesis *types.AppGenesis, logger cmtlog.Logger) (*Loopback, error) {
	daoApp, err := app.NewDAOApp(config.NewDAOAppConfig(dir), logger)
	if err != nil {
		return nil, err
	}
	appState, err := json.Marshal(genesis)
	if err != nil {
		return nil, err
	}
	_, err = daoApp.InitChain(context.Background(), &abcitypes.RequestInitChain{
		Time:          time.Now(),
		ChainId:       chainID,
		AppStateBytes: appState,
	})
	if err != nil {
		daoApp.Stop()
		return nil, err
	}
	return &Loopback{app: daoApp, chainID: chainID}, nil
}

func (l *Loopback) Close() {
	l.app.Stop()
}

func (l *Loopback) Height() int64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.height
}

func (l *Loopback) BroadcastTxCommit(ctx context.Context, tx cmttypes.Tx) (*ctypes.ResultBroadcastTxCommit, error) {
	if l.OnBroadcast != nil {
		if err := l.OnBroadcast(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()

	check, err := l.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: tx, Type: abcitypes.CheckTxType_New})
	if err != nil {
		return nil, err
	}
	res := &ctypes.ResultBroadcastTxCommit{CheckTx: *check, Hash: tx.Hash()}
	if check.Code != abcitypes.CodeTypeOK {
		return res, nil
	}

	height := l.height + 1
	fin, err := l.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{
		Txs:    [][]byte{tx},
		Height: height,
		Time:   time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if _, err = l.app.Commit(ctx, &abcitypes.RequestCommit{}); err != nil {
		return nil, err
	}
	l.height = height
	res.TxResult = *fin.TxResults[0]
	res.Height = height
	return res, nil
}

func (l *Loopback) ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	res, err := l.app.Query(ctx, &abcitypes.RequestQuery{Path: path, Data: data})
	if err != nil {
		return nil, err
	}
	return &ctypes.ResultABCIQuery{Response: *res}, nil
}

func (l *Loopback) Genesis(ctx context.Context) (*ctypes.ResultGenesis, error) {
	return &ctypes.ResultGenesis{Genesis: &cmttypes.GenesisDoc{ChainID: l.chainID}}, nil
}
