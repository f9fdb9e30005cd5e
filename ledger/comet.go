package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/calehh/hac-dao/app"
	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/rpc/client/http"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
)

// CometRPC is the part of the CometBFT RPC client the ledger client uses.
type CometRPC interface {
	BroadcastTxCommit(ctx context.Context, tx cmttypes.Tx) (*ctypes.ResultBroadcastTxCommit, error)
	ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error)
	Genesis(ctx context.Context) (*ctypes.ResultGenesis, error)
}

var (
	_ CometRPC = &http.HTTP{}
	_ Ledger   = &CometClient{}
)

// CometClient talks to the devnet DAO ledger over CometBFT RPC.
type CometClient struct {
	rpc    CometRPC
	signer crypto.Signer
	logger cmtlog.Logger

	// mtx serializes nonce lookup and broadcast.
	mtx     sync.Mutex
	chainId string
}

func NewCometClient(url string, signer crypto.Signer, logger cmtlog.Logger) (*CometClient, error) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return nil, err
	}
	return NewCometClientWithRPC(cli, signer, logger), nil
}

// NewCometClientWithRPC builds a client over rpc. signer may be nil for a
// read-only client.
func NewCometClientWithRPC(rpc CometRPC, signer crypto.Signer, logger cmtlog.Logger) *CometClient {
	return &CometClient{
		rpc:    rpc,
		signer: signer,
		logger: logger.With("module", "cometLedger"),
	}
}

func (c *CometClient) Member() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Address()
}

func (c *CometClient) chainID(ctx context.Context) (string, error) {
	if c.chainId != "" {
		return c.chainId, nil
	}
	res, err := c.rpc.Genesis(ctx)
	if err != nil {
		return "", err
	}
	c.chainId = res.Genesis.ChainID
	return c.chainId, nil
}

func (c *CometClient) query(ctx context.Context, op, path string, data []byte, v any) (code uint32, err error) {
	res, err := c.rpc.ABCIQuery(ctx, path, data)
	if err != nil {
		c.logger.Error("ABCIQuery fail", "path", path, "err", err)
		return 0, Classify(op, err)
	}
	if res.Response.Code != app.QueryCodeOK {
		return res.Response.Code, revertError(op, fmt.Sprintf("query %s failed with code %d: %s", path, res.Response.Code, res.Response.Log))
	}
	if err = json.Unmarshal(res.Response.Value, v); err != nil {
		return 0, NewError(op, ErrNetwork, fmt.Errorf("decode %s response: %w", path, err))
	}
	return 0, nil
}

// QueryMember returns the ledger's record of addr, or nil when addr is
// not a member.
func (c *CometClient) QueryMember(ctx context.Context, addr common.Address) (*types.Member, error) {
	var m types.Member
	code, err := c.query(ctx, "queryMember", "/members/", addr.Bytes(), &m)
	if code == app.QueryCodeNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *CometClient) submit(ctx context.Context, op string, tp tx.DAOTxType, body any) (*Receipt, error) {
	if c.signer == nil {
		return nil, NewError(op, ErrValidation, ErrNoSigner)
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()

	chainId, err := c.chainID(ctx)
	if err != nil {
		return nil, Classify(op, err)
	}
	var nonce uint64
	m, err := c.QueryMember(ctx, c.signer.Address())
	if err != nil {
		return nil, err
	}
	if m != nil {
		nonce = m.Nonce
	}
	btx := &tx.DAOTx{
		Version: tx.DAOTxVersion1,
		Type:    tp,
		Nonce:   nonce,
		Tx:      body,
	}
	if err = btx.Sign(c.signer, []byte(chainId)); err != nil {
		return nil, Classify(op, err)
	}
	dat, err := tx.MarshalDAOTx(btx)
	if err != nil {
		return nil, NewError(op, ErrValidation, err)
	}
	c.logger.Debug("broadcast tx", "op", op, "nonce", nonce, "sender", btx.Sender)
	res, err := c.rpc.BroadcastTxCommit(ctx, dat)
	if err != nil {
		c.logger.Error("broadcast tx fail", "op", op, "err", err)
		return nil, Classify(op, err)
	}
	if res.CheckTx.Code != 0 {
		return nil, revertError(op, res.CheckTx.Log)
	}
	if res.TxResult.Code != 0 {
		return nil, revertError(op, res.TxResult.Log)
	}
	receipt := &Receipt{TxHash: res.Hash.String(), Height: res.Height}
	for _, ev := range res.TxResult.Events {
		if p := types.DecodeEventProposal(ev); p != nil {
			receipt.ProposalID = p.Proposal
		}
	}
	c.logger.Info("tx committed", "op", op, "hash", receipt.TxHash, "height", receipt.Height)
	return receipt, nil
}

func (c *CometClient) SubmitCreateProposal(ctx context.Context, params ProposalParams) (*Receipt, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return c.submit(ctx, "createProposal", tx.DAOTxTypeCreateProposal, &tx.CreateProposalTx{
		Name:        params.Name,
		Description: params.Description,
		Amount:      new(big.Int).Set(params.Amount),
		Recipient:   params.Recipient,
	})
}

func (c *CometClient) SubmitVote(ctx context.Context, id uint64) (*Receipt, error) {
	return c.submit(ctx, "vote", tx.DAOTxTypeVote, &tx.VoteTx{Proposal: id})
}

func (c *CometClient) SubmitDownvote(ctx context.Context, id uint64) (*Receipt, error) {
	return c.submit(ctx, "downvote", tx.DAOTxTypeDownvote, &tx.VoteTx{Proposal: id})
}

func (c *CometClient) SubmitFinalize(ctx context.Context, id uint64) (*Receipt, error) {
	return c.submit(ctx, "finalizeProposal", tx.DAOTxTypeFinalize, &tx.FinalizeTx{Proposal: id})
}

func (c *CometClient) QueryHasVoted(ctx context.Context, member common.Address, id uint64) (voted bool, err error) {
	_, err = c.query(ctx, "hasVoted", "/hasvoted/", app.EncodeVoteQuery(member, id), &voted)
	return
}

func (c *CometClient) QueryQuorum(ctx context.Context) (quorum uint64, err error) {
	_, err = c.query(ctx, "quorum", "/quorum/", nil, &quorum)
	return
}

func (c *CometClient) QueryProposals(ctx context.Context) (proposals []types.Proposal, err error) {
	_, err = c.query(ctx, "proposals", "/proposals/", nil, &proposals)
	return
}

func (c *CometClient) QueryBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	balance := new(big.Int)
	if _, err := c.query(ctx, "balance", "/balances/", addr.Bytes(), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// QueryTreasury returns the undistributed DAO funds.
func (c *CometClient) QueryTreasury(ctx context.Context) (*big.Int, error) {
	treasury := new(big.Int)
	if _, err := c.query(ctx, "treasury", "/balances/", nil, treasury); err != nil {
		return nil, err
	}
	return treasury, nil
}
