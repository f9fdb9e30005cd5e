package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	KeyState        = "s"
	KeyMemberBody   = "m%x"
	KeyProposalBody = "p%v"
	KeyVote         = "v%v/%x"
	KeyBalance      = "b%x"
	KeyTreasury     = "t"
)

// RevertError is a rule violation raised while applying a transaction.
// Its text follows the shape contract clients match on.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("reverted with reason string '%s'", e.Reason)
}

func revert(reason string) *RevertError {
	return &RevertError{Reason: reason}
}

var (
	ErrNotFound       = errors.New("not found")
	ErrTxNonceInvalid = errors.New("nonce invalid")
	ErrTxSigInvalid   = errors.New("signature invalid")
)

var (
	ErrNotMember         = revert("must be token holder")
	ErrEmptyName         = revert("proposal name is empty")
	ErrInvalidAmount     = revert("amount must be positive")
	ErrInvalidRecipient  = revert("recipient is the zero address")
	ErrInsufficientFunds = revert("Insufficient funds")
	ErrProposalNoexists  = revert("proposal does not exist")
	ErrAlreadyVoted      = revert("already voted")
	ErrProposalFinalized = revert("proposal already finalized")
	ErrQuorumNotReached  = revert("must reach quorum to finalize proposal")
)

type StateHeader struct {
	Height        uint64 `json:"height"`
	ChainId       string `json:"chainId"`
	Hash          []byte `json:"hash,omitempty"`
	RootHash      []byte `json:"rootHash,omitempty"`
	ProposalCount uint64 `json:"proposalCount"`
	Quorum        uint64 `json:"quorum"`
}

func (h *StateHeader) clone() *StateHeader {
	n := *h
	n.Hash = append([]byte(nil), h.Hash...)
	n.RootHash = append([]byte(nil), h.RootHash...)
	return &n
}

// State applies DAO transactions to the working tree. Writes go straight
// to the tree and become durable when the owning StateDB saves a version.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header *StateHeader
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		logger: logger,
		db:     db,
		header: new(StateHeader),
	}
}

func (s *State) nextState() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		dbVer:  s.dbVer,
		header: s.header.clone(),
	}
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func (s *State) load() (err error) {
	val, err := get(s.db, []byte(KeyState))
	if err != nil || val == nil {
		return err
	}
	if err = json.Unmarshal(val, s.header); err != nil {
		return
	}
	if h := s.db.Hash(); h != nil {
		s.calcHash(h, true)
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = append(s.header.RootHash[:0], rootHash...)
		s.header.Hash = append(s.header.Hash[:0], h[:]...)
	}
	return
}

// Update writes the header and returns the app hash of the working tree.
func (s *State) Update() (h common.Hash, err error) {
	val, err := json.Marshal(s.header)
	if err != nil {
		return
	}
	if _, err = s.db.Set([]byte(KeyState), val); err != nil {
		s.db.Rollback()
		return
	}
	h = s.calcHash(s.db.WorkingHash(), false)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

// InitGenesis seeds members, quorum and treasury.
func (s *State) InitGenesis(chainId string, g *types.AppGenesis) error {
	if err := g.Validate(); err != nil {
		return err
	}
	treasury, err := g.TreasuryAmount()
	if err != nil {
		return err
	}
	s.header.ChainId = chainId
	s.header.Quorum = g.Quorum
	for _, m := range g.Members {
		weight := m.Weight
		if weight == 0 {
			weight = types.DefaultMemberWeight
		}
		if err = s.setMember(&types.Member{Address: m.Address, Weight: weight}); err != nil {
			return err
		}
	}
	return s.setAmount([]byte(KeyTreasury), treasury)
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetHeight(height uint64) {
	s.header.Height = height
}

func (s *State) Quorum() uint64 {
	return s.header.Quorum
}

func (s *State) GetMember(addr common.Address) (*types.Member, error) {
	return getMember(s.db, addr)
}

func (s *State) GetProposal(id uint64) (*types.Proposal, error) {
	if id == 0 || id > s.header.ProposalCount {
		return nil, ErrProposalNoexists
	}
	return getProposal(s.db, id)
}

func (s *State) Proposals() ([]types.Proposal, error) {
	return getProposals(s.db, s.header.ProposalCount)
}

func (s *State) HasVoted(addr common.Address, id uint64) (bool, error) {
	_, voted, err := getVote(s.db, id, addr)
	return voted, err
}

func (s *State) Balance(addr common.Address) (*big.Int, error) {
	return getAmount(s.db, balanceKey(addr))
}

func (s *State) Treasury() (*big.Int, error) {
	return getAmount(s.db, []byte(KeyTreasury))
}

func (s *State) setMember(m *types.Member) error {
	val, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.Set(memberKey(m.Address), val)
	return err
}

func (s *State) setProposal(p *types.Proposal) error {
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.Set(proposalKey(p.ID), val)
	return err
}

func (s *State) setAmount(key []byte, amount *big.Int) error {
	_, err := s.db.Set(key, []byte(amount.String()))
	return err
}

// Verify checks the envelope signature and nonce and returns the sender.
// allowNonceGap admits nonces ahead of the stored one for mempool checks.
func (s *State) Verify(btx *tx.DAOTx, allowNonceGap bool) (m *types.Member, err error) {
	signer, err := btx.Signer([]byte(s.header.ChainId))
	if err != nil {
		return nil, ErrTxSigInvalid
	}
	if signer != btx.Sender {
		return nil, ErrTxSigInvalid
	}
	m, err = s.GetMember(signer)
	if err != nil {
		return nil, err
	}
	if m == nil {
		// Unknown senders still need a nonce to reject against.
		m = &types.Member{Address: signer}
	}
	if !(m.Nonce == btx.Nonce || (allowNonceGap && m.Nonce < btx.Nonce)) {
		return nil, ErrTxNonceInvalid
	}
	return m, nil
}

// IncNonce consumes the sender's nonce. Only members are stored.
func (s *State) IncNonce(m *types.Member) error {
	m.Nonce += 1
	if m.Weight == 0 {
		return nil
	}
	return s.setMember(m)
}

func (s *State) CreateProposal(ptx *tx.CreateProposalTx, sender *types.Member, checkOnly bool) (event *types.EventProposal, err error) {
	s.logger.Debug("apply create proposal", "sender", sender.Address, "height", s.header.Height)
	if sender.Weight == 0 {
		return nil, ErrNotMember
	}
	if ptx.Name == "" {
		return nil, ErrEmptyName
	}
	if ptx.Amount == nil || ptx.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if ptx.Recipient == (common.Address{}) {
		return nil, ErrInvalidRecipient
	}
	treasury, err := s.Treasury()
	if err != nil {
		return nil, err
	}
	if treasury.Cmp(ptx.Amount) < 0 {
		return nil, ErrInsufficientFunds
	}
	if checkOnly {
		return
	}
	proposal := &types.Proposal{
		ID:          s.header.ProposalCount + 1,
		Name:        ptx.Name,
		Description: ptx.Description,
		Recipient:   ptx.Recipient,
		Amount:      new(big.Int).Set(ptx.Amount),
	}
	if err = s.setProposal(proposal); err != nil {
		return nil, err
	}
	s.header.ProposalCount = proposal.ID
	event = &types.EventProposal{
		Proposal:  proposal.ID,
		Proposer:  sender.Address,
		Name:      proposal.Name,
		Amount:    proposal.Amount,
		Recipient: proposal.Recipient,
	}
	return
}

// Vote records an up or down vote weighted by the member's weight.
// Down votes never take the count below zero.
func (s *State) Vote(vtx *tx.VoteTx, sender *types.Member, kind types.VoteKind, checkOnly bool) (event *types.EventVote, err error) {
	s.logger.Debug("apply vote", "sender", sender.Address, "proposal", vtx.Proposal, "kind", kind, "height", s.header.Height)
	if sender.Weight == 0 {
		return nil, ErrNotMember
	}
	proposal, err := s.GetProposal(vtx.Proposal)
	if err != nil {
		return nil, err
	}
	if proposal.Finalized {
		return nil, ErrProposalFinalized
	}
	voted, err := s.HasVoted(sender.Address, proposal.ID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrAlreadyVoted
	}
	if checkOnly {
		return
	}
	switch kind {
	case types.VoteUp:
		proposal.Votes += sender.Weight
	case types.VoteDown:
		if proposal.Votes > sender.Weight {
			proposal.Votes -= sender.Weight
		} else {
			proposal.Votes = 0
		}
	default:
		return nil, fmt.Errorf("unknown vote kind %d", kind)
	}
	rec, err := rlp.EncodeToBytes(uint8(kind))
	if err != nil {
		return nil, err
	}
	if _, err = s.db.Set(voteKey(proposal.ID, sender.Address), rec); err != nil {
		return nil, err
	}
	if err = s.setProposal(proposal); err != nil {
		return nil, err
	}
	event = &types.EventVote{
		Proposal: proposal.ID,
		Voter:    sender.Address,
		Kind:     kind,
		Votes:    proposal.Votes,
	}
	return
}

// Finalize pays out an eligible proposal from the treasury.
func (s *State) Finalize(ftx *tx.FinalizeTx, sender *types.Member, checkOnly bool) (event *types.EventFinalize, err error) {
	s.logger.Debug("apply finalize", "sender", sender.Address, "proposal", ftx.Proposal, "height", s.header.Height)
	if sender.Weight == 0 {
		return nil, ErrNotMember
	}
	proposal, err := s.GetProposal(ftx.Proposal)
	if err != nil {
		return nil, err
	}
	if proposal.Finalized {
		return nil, ErrProposalFinalized
	}
	if !proposal.Eligible(s.header.Quorum) {
		return nil, ErrQuorumNotReached
	}
	treasury, err := s.Treasury()
	if err != nil {
		return nil, err
	}
	if treasury.Cmp(proposal.Amount) < 0 {
		return nil, ErrInsufficientFunds
	}
	if checkOnly {
		return
	}
	balance, err := s.Balance(proposal.Recipient)
	if err != nil {
		return nil, err
	}
	if err = s.setAmount([]byte(KeyTreasury), treasury.Sub(treasury, proposal.Amount)); err != nil {
		return nil, err
	}
	if err = s.setAmount(balanceKey(proposal.Recipient), balance.Add(balance, proposal.Amount)); err != nil {
		return nil, err
	}
	proposal.Finalized = true
	if err = s.setProposal(proposal); err != nil {
		return nil, err
	}
	event = &types.EventFinalize{
		Proposal:  proposal.ID,
		Recipient: proposal.Recipient,
		Amount:    proposal.Amount,
	}
	return
}
