package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainId = "dao-test"

var recipient = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func newSigner(t *testing.T) *crypto.KeySigner {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return crypto.NewKeySigner(key)
}

type fixture struct {
	db      *StateDB
	st      *State
	members []*crypto.KeySigner
}

// newFixture seeds three weight-1 members, quorum 2 and a treasury of 100.
func newFixture(t *testing.T) *fixture {
	db, err := NewStateDB(t.TempDir(), cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db}
	g := &types.AppGenesis{Quorum: 2, Treasury: "100"}
	for i := 0; i < 3; i++ {
		s := newSigner(t)
		f.members = append(f.members, s)
		g.Members = append(g.Members, types.GenesisMember{Address: s.Address(), Weight: 1})
	}
	f.st = db.NewState()
	require.NoError(t, f.st.InitGenesis(testChainId, g))
	f.commit(t)
	return f
}

func (f *fixture) commit(t *testing.T) {
	_, err := f.st.Update()
	require.NoError(t, err)
	_, err = f.db.SetState(f.st)
	require.NoError(t, err)
	f.st = f.db.NewState()
}

func (f *fixture) member(t *testing.T, i int) *types.Member {
	m, err := f.st.GetMember(f.members[i].Address())
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func (f *fixture) propose(t *testing.T, amount int64) uint64 {
	ev, err := f.st.CreateProposal(&tx.CreateProposalTx{
		Name:      "Fund repairs",
		Amount:    big.NewInt(amount),
		Recipient: recipient,
	}, f.member(t, 0), false)
	require.NoError(t, err)
	return ev.Proposal
}

func TestCreateProposal(t *testing.T) {
	f := newFixture(t)
	id := f.propose(t, 40)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(2), f.propose(t, 10))

	p, err := f.st.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, "Fund repairs", p.Name)
	assert.Equal(t, uint64(0), p.Votes)
	assert.False(t, p.Finalized)
}

func TestCreateProposalRejects(t *testing.T) {
	f := newFixture(t)
	sender := f.member(t, 0)
	tests := []struct {
		name string
		ptx  tx.CreateProposalTx
		want error
	}{
		{"empty name", tx.CreateProposalTx{Amount: big.NewInt(1), Recipient: recipient}, ErrEmptyName},
		{"zero amount", tx.CreateProposalTx{Name: "x", Amount: big.NewInt(0), Recipient: recipient}, ErrInvalidAmount},
		{"zero recipient", tx.CreateProposalTx{Name: "x", Amount: big.NewInt(1)}, ErrInvalidRecipient},
		{"over treasury", tx.CreateProposalTx{Name: "x", Amount: big.NewInt(101), Recipient: recipient}, ErrInsufficientFunds},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.st.CreateProposal(&tc.ptx, sender, true)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	outsider := &types.Member{Address: newSigner(t).Address()}
	_, err := f.st.CreateProposal(&tx.CreateProposalTx{Name: "x", Amount: big.NewInt(1), Recipient: recipient}, outsider, false)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestVoteOncePerMember(t *testing.T) {
	f := newFixture(t)
	id := f.propose(t, 40)

	ev, err := f.st.Vote(&tx.VoteTx{Proposal: id}, f.member(t, 0), types.VoteUp, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ev.Votes)

	voted, err := f.st.HasVoted(f.members[0].Address(), id)
	require.NoError(t, err)
	assert.True(t, voted)

	_, err = f.st.Vote(&tx.VoteTx{Proposal: id}, f.member(t, 0), types.VoteDown, true)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	_, err = f.st.Vote(&tx.VoteTx{Proposal: 9}, f.member(t, 1), types.VoteUp, true)
	assert.ErrorIs(t, err, ErrProposalNoexists)
}

func TestDownvoteClampsAtZero(t *testing.T) {
	f := newFixture(t)
	id := f.propose(t, 40)
	ev, err := f.st.Vote(&tx.VoteTx{Proposal: id}, f.member(t, 0), types.VoteDown, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ev.Votes)

	_, err = f.st.Vote(&tx.VoteTx{Proposal: id}, f.member(t, 1), types.VoteUp, false)
	require.NoError(t, err)
	p, err := f.st.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Votes)
}

func TestFinalizeRequiresVotesAboveQuorum(t *testing.T) {
	f := newFixture(t)
	id := f.propose(t, 40)
	for i := 0; i < 2; i++ {
		_, err := f.st.Vote(&tx.VoteTx{Proposal: id}, f.member(t, i), types.VoteUp, false)
		require.NoError(t, err)
	}
	// votes == quorum is not enough
	_, err := f.st.Finalize(&tx.FinalizeTx{Proposal: id}, f.member(t, 0), true)
	assert.ErrorIs(t, err, ErrQuorumNotReached)

	_, err = f.st.Vote(&tx.VoteTx{Proposal: id}, f.member(t, 2), types.VoteUp, false)
	require.NoError(t, err)
	ev, err := f.st.Finalize(&tx.FinalizeTx{Proposal: id}, f.member(t, 0), false)
	require.NoError(t, err)
	assert.Equal(t, recipient, ev.Recipient)

	balance, err := f.st.Balance(recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance.Int64())
	treasury, err := f.st.Treasury()
	require.NoError(t, err)
	assert.Equal(t, int64(60), treasury.Int64())

	_, err = f.st.Finalize(&tx.FinalizeTx{Proposal: id}, f.member(t, 1), true)
	assert.ErrorIs(t, err, ErrProposalFinalized)
	_, err = f.st.Vote(&tx.VoteTx{Proposal: id}, f.member(t, 1), types.VoteUp, true)
	assert.ErrorIs(t, err, ErrProposalFinalized)
}

func TestVerifyNonceAndSignature(t *testing.T) {
	f := newFixture(t)
	signer := f.members[0]
	btx := &tx.DAOTx{
		Version: tx.DAOTxVersion1,
		Type:    tx.DAOTxTypeVote,
		Nonce:   0,
		Tx:      &tx.VoteTx{Proposal: 1},
	}
	require.NoError(t, btx.Sign(signer, []byte(testChainId)))
	m, err := f.st.Verify(btx, false)
	require.NoError(t, err)
	require.NoError(t, f.st.IncNonce(m))

	_, err = f.st.Verify(btx, false)
	assert.ErrorIs(t, err, ErrTxNonceInvalid)

	btx.Nonce = 5
	require.NoError(t, btx.Sign(signer, []byte(testChainId)))
	_, err = f.st.Verify(btx, true)
	assert.NoError(t, err)

	btx.Sender = f.members[1].Address()
	_, err = f.st.Verify(btx, true)
	assert.ErrorIs(t, err, ErrTxSigInvalid)
}

func TestCommittedReadsAndReload(t *testing.T) {
	dir := t.TempDir()
	db, err := NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	signer := newSigner(t)
	st := db.NewState()
	require.NoError(t, st.InitGenesis(testChainId, &types.AppGenesis{
		Quorum:   1,
		Treasury: "50",
		Members:  []types.GenesisMember{{Address: signer.Address(), Weight: 2}},
	}))
	m, err := st.GetMember(signer.Address())
	require.NoError(t, err)
	_, err = st.CreateProposal(&tx.CreateProposalTx{Name: "a", Amount: big.NewInt(5), Recipient: recipient}, m, false)
	require.NoError(t, err)

	// nothing is visible to queries before the first commit
	proposals, _, err := db.GetProposals()
	require.NoError(t, err)
	assert.Empty(t, proposals)

	st.SetHeight(1)
	_, err = st.Update()
	require.NoError(t, err)
	hash, err := db.SetState(st)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, hash, db.State().Hash())

	proposals, height, err := db.GetProposals()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), height)
	require.Len(t, proposals, 1)
	assert.Equal(t, "a", proposals[0].Name)

	quorum, _ := db.Quorum()
	assert.Equal(t, uint64(1), quorum)

	_, _, err = db.GetProposal(2)
	assert.True(t, errors.Is(err, ErrProposalNoexists))
	member, _, err := db.GetMember(signer.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), member.Weight)
}
