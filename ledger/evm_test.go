package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRecipient = common.HexToAddress("0x00000000000000000000000000000000000000cc")

func TestDecodeProposalLegacy(t *testing.T) {
	out := []any{big.NewInt(3), "Roof", big.NewInt(500), testRecipient, big.NewInt(4), false}
	p, err := decodeProposal(SchemaLegacy, out)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.ID)
	assert.Equal(t, "Roof", p.Name)
	assert.Empty(t, p.Description)
	assert.Equal(t, int64(500), p.Amount.Int64())
	assert.Equal(t, testRecipient, p.Recipient)
	assert.Equal(t, uint64(4), p.Votes)
	assert.False(t, p.Finalized)
}

func TestDecodeProposalExtendedClampsNegativeVotes(t *testing.T) {
	out := []any{big.NewInt(1), "Roof", "fix the leak", big.NewInt(500), testRecipient, big.NewInt(-2), true}
	p, err := decodeProposal(SchemaExtended, out)
	require.NoError(t, err)
	assert.Equal(t, "fix the leak", p.Description)
	assert.Equal(t, uint64(0), p.Votes)
	assert.True(t, p.Finalized)

	_, err = decodeProposal(SchemaLegacy, out)
	assert.Error(t, err)
}

func TestContractABISelectors(t *testing.T) {
	selector := func(sig string) []byte { return ethcrypto.Keccak256([]byte(sig))[:4] }

	legacy, err := contractABI(SchemaLegacy)
	require.NoError(t, err)
	assert.Equal(t, selector("createProposal(string,uint256,address)"), legacy.Methods["createProposal"].ID)
	assert.Equal(t, selector("hasVoted(address,uint256)"), legacy.Methods["hasVoted"].ID)

	extended, err := contractABI(SchemaExtended)
	require.NoError(t, err)
	assert.Equal(t, selector("createProposal(string,string,uint256,address)"), extended.Methods["createProposal"].ID)
	assert.Equal(t, selector("finalizeProposal(uint256)"), extended.Methods["finalizeProposal"].ID)

	_, err = extended.Pack("createProposal", "Roof", "desc", big.NewInt(1), testRecipient)
	assert.NoError(t, err)

	_, err = contractABI("v3")
	assert.Error(t, err)
}

func TestClassifyEVM(t *testing.T) {
	err := classifyEVM("vote", errors.New("execution reverted: already voted"))
	assert.ErrorIs(t, err, ErrLedgerRevert)
	assert.Equal(t, "already voted", Reason(err))

	err = classifyEVM("vote", errors.New("VM Exception while processing transaction: reverted with reason string 'must be token holder'"))
	assert.ErrorIs(t, err, ErrLedgerRevert)
	assert.Equal(t, "must be token holder", Reason(err))

	err = classifyEVM("vote", errors.New("execution reverted"))
	assert.ErrorIs(t, err, ErrLedgerRevert)

	err = classifyEVM("vote", errors.New("dial tcp: connection refused"))
	assert.ErrorIs(t, err, ErrNetwork)
}

type revertingBackend struct {
	EVMBackend
	callErr error
	calls   []ethereum.CallMsg
	blocks  []*big.Int
}

func (b *revertingBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	b.calls = append(b.calls, msg)
	b.blocks = append(b.blocks, block)
	return nil, b.callErr
}

func TestFailedReceiptRecoversRevertReason(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000da")
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: 7, To: &contract, Gas: 90000, Data: []byte{0x01, 0x02}})

	backend := &revertingBackend{callErr: errors.New("execution reverted: already voted")}
	c := &EVMClient{backend: backend, address: contract, logger: cmtlog.NewNopLogger()}
	err := c.replayRevert(context.Background(), "vote", tx, big.NewInt(42))
	assert.ErrorIs(t, err, ErrLedgerRevert)
	assert.Equal(t, "already voted", Reason(err))
	require.Len(t, backend.calls, 1)
	assert.Equal(t, &contract, backend.calls[0].To)
	assert.Equal(t, []byte{0x01, 0x02}, backend.calls[0].Data)
	assert.Equal(t, int64(42), backend.blocks[0].Int64())

	// no reason on replay: still a revert, never a network error
	backend.callErr = errors.New("dial tcp: connection refused")
	err = c.replayRevert(context.Background(), "vote", tx, big.NewInt(42))
	assert.ErrorIs(t, err, ErrLedgerRevert)
	assert.Contains(t, err.Error(), tx.Hash().Hex())

	backend.callErr = nil
	err = c.replayRevert(context.Background(), "vote", tx, big.NewInt(42))
	assert.ErrorIs(t, err, ErrLedgerRevert)
}
