package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

// EVMBackend is what EVMClient needs from a JSON-RPC connection.
// *ethclient.Client satisfies it.
type EVMBackend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

var (
	_ EVMBackend = &ethclient.Client{}
	_ Ledger     = &EVMClient{}
)

const proposalReadConcurrency = 8

// EVMClient talks to a DAO contract deployed on an EVM chain.
type EVMClient struct {
	backend  EVMBackend
	address  common.Address
	abi      abi.ABI
	schema   string
	contract *bind.BoundContract
	signer   crypto.Signer
	chainID  *big.Int
	logger   cmtlog.Logger
}

func NewEVMClient(ctx context.Context, url string, contract common.Address, schema string, signer crypto.Signer, logger cmtlog.Logger) (*EVMClient, error) {
	cli, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewEVMClientWithBackend(ctx, cli, contract, schema, signer, logger)
}

func NewEVMClientWithBackend(ctx context.Context, backend EVMBackend, contract common.Address, schema string, signer crypto.Signer, logger cmtlog.Logger) (*EVMClient, error) {
	parsed, err := contractABI(schema)
	if err != nil {
		return nil, err
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	return &EVMClient{
		backend:  backend,
		address:  contract,
		abi:      parsed,
		schema:   schema,
		contract: bind.NewBoundContract(contract, parsed, backend, backend, backend),
		signer:   signer,
		chainID:  chainID,
		logger:   logger.With("module", "evmLedger", "contract", contract.Hex()),
	}, nil
}

func (c *EVMClient) Member() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Address()
}

func (c *EVMClient) transactOpts(ctx context.Context) *bind.TransactOpts {
	from := c.signer.Address()
	txSigner := ethtypes.LatestSignerForChainID(c.chainID)
	return &bind.TransactOpts{
		From:    from,
		Context: ctx,
		Signer: func(addr common.Address, tx *ethtypes.Transaction) (*ethtypes.Transaction, error) {
			if addr != from {
				return nil, bind.ErrNotAuthorized
			}
			sig, err := c.signer.SignHash(txSigner.Hash(tx).Bytes())
			if err != nil {
				return nil, err
			}
			return tx.WithSignature(txSigner, sig)
		},
	}
}

func (c *EVMClient) transact(ctx context.Context, op, method string, args ...any) (*Receipt, *ethtypes.Receipt, error) {
	if c.signer == nil {
		return nil, nil, NewError(op, ErrValidation, ErrNoSigner)
	}
	tx, err := c.contract.Transact(c.transactOpts(ctx), method, args...)
	if err != nil {
		c.logger.Error("send tx fail", "op", op, "err", err)
		return nil, nil, classifyEVM(op, err)
	}
	c.logger.Debug("tx sent", "op", op, "hash", tx.Hash())
	mined, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, nil, classifyEVM(op, err)
	}
	if mined.Status == ethtypes.ReceiptStatusFailed {
		return nil, nil, c.replayRevert(ctx, op, tx, mined.BlockNumber)
	}
	c.logger.Info("tx mined", "op", op, "hash", tx.Hash(), "block", mined.BlockNumber)
	return &Receipt{TxHash: tx.Hash().Hex(), Height: mined.BlockNumber.Int64()}, mined, nil
}

// replayRevert re-runs a failed transaction as a call against the state
// it was mined on, since receipts carry no revert reason.
func (c *EVMClient) replayRevert(ctx context.Context, op string, tx *ethtypes.Transaction, block *big.Int) error {
	fallback := revertError(op, fmt.Sprintf("transaction %s reverted", tx.Hash().Hex()))
	msg := ethereum.CallMsg{
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}
	if c.signer != nil {
		msg.From = c.signer.Address()
	}
	_, err := c.backend.CallContract(ctx, msg, block)
	if err == nil {
		return fallback
	}
	if classified := classifyEVM(op, err); errors.Is(classified, ErrLedgerRevert) {
		return classified
	}
	c.logger.Debug("replay failed tx", "op", op, "hash", tx.Hash(), "err", err)
	return fallback
}

func (c *EVMClient) SubmitCreateProposal(ctx context.Context, params ProposalParams) (*Receipt, error) {
	const op = "createProposal"
	if err := params.Validate(); err != nil {
		return nil, err
	}
	args := []any{params.Name, params.Amount, params.Recipient}
	if c.schema == SchemaExtended {
		args = []any{params.Name, params.Description, params.Amount, params.Recipient}
	}
	receipt, mined, err := c.transact(ctx, op, "createProposal", args...)
	if err != nil {
		return nil, err
	}
	// The contract numbers proposals 1..proposalCount, so the count at
	// the mining block is the new id.
	count, err := c.callUint(&bind.CallOpts{Context: ctx, BlockNumber: mined.BlockNumber}, "proposalCount")
	if err != nil {
		c.logger.Error("read new proposal id fail", "err", err)
	} else {
		receipt.ProposalID = count
	}
	return receipt, nil
}

func (c *EVMClient) SubmitVote(ctx context.Context, id uint64) (*Receipt, error) {
	receipt, _, err := c.transact(ctx, "vote", "vote", new(big.Int).SetUint64(id))
	return receipt, err
}

func (c *EVMClient) SubmitDownvote(ctx context.Context, id uint64) (*Receipt, error) {
	receipt, _, err := c.transact(ctx, "downvote", "downvote", new(big.Int).SetUint64(id))
	return receipt, err
}

func (c *EVMClient) SubmitFinalize(ctx context.Context, id uint64) (*Receipt, error) {
	receipt, _, err := c.transact(ctx, "finalizeProposal", "finalizeProposal", new(big.Int).SetUint64(id))
	return receipt, err
}

func (c *EVMClient) callUint(opts *bind.CallOpts, method string, args ...any) (uint64, error) {
	var out []any
	if err := c.contract.Call(opts, &out, method, args...); err != nil {
		return 0, err
	}
	v, err := asBig(out, 0)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s out of range: %s", method, v)
	}
	return v.Uint64(), nil
}

func (c *EVMClient) QueryHasVoted(ctx context.Context, member common.Address, id uint64) (bool, error) {
	var out []any
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "hasVoted", member, new(big.Int).SetUint64(id))
	if err != nil {
		return false, classifyEVM("hasVoted", err)
	}
	if len(out) != 1 {
		return false, NewError("hasVoted", ErrNetwork, errors.New("unexpected hasVoted result"))
	}
	voted, ok := out[0].(bool)
	if !ok {
		return false, NewError("hasVoted", ErrNetwork, errors.New("unexpected hasVoted result"))
	}
	return voted, nil
}

func (c *EVMClient) QueryQuorum(ctx context.Context) (uint64, error) {
	quorum, err := c.callUint(&bind.CallOpts{Context: ctx}, "quorum")
	if err != nil {
		return 0, classifyEVM("quorum", err)
	}
	return quorum, nil
}

func (c *EVMClient) QueryProposals(ctx context.Context) ([]types.Proposal, error) {
	const op = "proposals"
	count, err := c.callUint(&bind.CallOpts{Context: ctx}, "proposalCount")
	if err != nil {
		return nil, classifyEVM(op, err)
	}
	proposals := make([]types.Proposal, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(proposalReadConcurrency)
	for i := uint64(0); i < count; i++ {
		i := i
		g.Go(func() error {
			var out []any
			err := c.contract.Call(&bind.CallOpts{Context: gctx}, &out, "proposals", new(big.Int).SetUint64(i+1))
			if err != nil {
				return err
			}
			p, err := decodeProposal(c.schema, out)
			if err != nil {
				return err
			}
			proposals[i] = p
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, classifyEVM(op, err)
	}
	return proposals, nil
}

func (c *EVMClient) QueryBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, classifyEVM("balance", err)
	}
	return balance, nil
}

func asBig(out []any, i int) (*big.Int, error) {
	if i >= len(out) {
		return nil, fmt.Errorf("missing output %d", i)
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d is %T, not an integer", i, out[i])
	}
	return v, nil
}

// decodeProposal maps a proposals(uint256) result onto types.Proposal.
// A negative int256 vote count reads as zero.
func decodeProposal(schema string, out []any) (p types.Proposal, err error) {
	want := 6
	if schema == SchemaExtended {
		want = 7
	}
	if len(out) != want {
		return p, fmt.Errorf("proposal tuple has %d fields, want %d", len(out), want)
	}
	id, err := asBig(out, 0)
	if err != nil {
		return p, err
	}
	p.ID = id.Uint64()
	var ok bool
	if p.Name, ok = out[1].(string); !ok {
		return p, fmt.Errorf("proposal name is %T", out[1])
	}
	i := 2
	if schema == SchemaExtended {
		if p.Description, ok = out[2].(string); !ok {
			return p, fmt.Errorf("proposal description is %T", out[2])
		}
		i++
	}
	if p.Amount, err = asBig(out, i); err != nil {
		return p, err
	}
	if p.Recipient, ok = out[i+1].(common.Address); !ok {
		return p, fmt.Errorf("proposal recipient is %T", out[i+1])
	}
	votes, err := asBig(out, i+2)
	if err != nil {
		return p, err
	}
	switch {
	case votes.Sign() < 0:
		p.Votes = 0
	case votes.IsUint64():
		p.Votes = votes.Uint64()
	default:
		p.Votes = math.MaxUint64
	}
	if p.Finalized, ok = out[i+3].(bool); !ok {
		return p, fmt.Errorf("proposal finalized is %T", out[i+3])
	}
	return p, nil
}

// classifyEVM rewrites node revert messages into the canonical revert form
// before classifying.
func classifyEVM(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case revertPattern.MatchString(msg):
		return revertError(op, msg)
	case strings.Contains(msg, "execution reverted"):
		reason := strings.TrimSpace(msg[strings.Index(msg, "execution reverted")+len("execution reverted"):])
		reason = strings.TrimPrefix(reason, ":")
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return revertError(op, msg)
		}
		return revertError(op, fmt.Sprintf("reverted with reason string '%s'", reason))
	}
	return Classify(op, err)
}
