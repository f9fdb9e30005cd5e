package state

import (
	"math/big"
	"sync"

	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "daodb")
	ldb, err := dbm.NewDB("dao", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	tdb := iavl.NewMutableTree(ldb, 128, true, NewTreeLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger)
	st.dbVer = version
	if err = st.load(); err != nil {
		logger.Error("from daodb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		db:     tdb,
		state:  st,
	}
	return
}

func (db *StateDB) Close() (err error) {
	err = db.db.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().clone()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

// committed returns a read-only view of the last saved version. Queries
// read through it so they never observe a block being executed.
func (db *StateDB) committed() (getter, *StateHeader, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header := db.state.header.clone()
	ver := db.db.Version()
	if ver == 0 {
		return emptyTree{}, header, nil
	}
	tree, err := db.db.GetImmutable(ver)
	if err != nil {
		return nil, nil, err
	}
	return tree, header, nil
}

type emptyTree struct{}

func (emptyTree) Get([]byte) ([]byte, error) { return nil, nil }

func (db *StateDB) GetProposals() (proposals []types.Proposal, height uint64, err error) {
	tree, header, err := db.committed()
	if err != nil {
		return nil, 0, err
	}
	proposals, err = getProposals(tree, header.ProposalCount)
	return proposals, header.Height, err
}

func (db *StateDB) GetProposal(id uint64) (proposal *types.Proposal, height uint64, err error) {
	tree, header, err := db.committed()
	if err != nil {
		return nil, 0, err
	}
	if id == 0 || id > header.ProposalCount {
		return nil, header.Height, ErrProposalNoexists
	}
	proposal, err = getProposal(tree, id)
	return proposal, header.Height, err
}

func (db *StateDB) HasVoted(addr common.Address, id uint64) (voted bool, height uint64, err error) {
	tree, header, err := db.committed()
	if err != nil {
		return false, 0, err
	}
	_, voted, err = getVote(tree, id, addr)
	return voted, header.Height, err
}

func (db *StateDB) GetMember(addr common.Address) (m *types.Member, height uint64, err error) {
	tree, header, err := db.committed()
	if err != nil {
		return nil, 0, err
	}
	m, err = getMember(tree, addr)
	return m, header.Height, err
}

func (db *StateDB) GetBalance(addr common.Address) (balance *big.Int, height uint64, err error) {
	tree, header, err := db.committed()
	if err != nil {
		return nil, 0, err
	}
	balance, err = getAmount(tree, balanceKey(addr))
	return balance, header.Height, err
}

func (db *StateDB) GetTreasury() (treasury *big.Int, height uint64, err error) {
	tree, header, err := db.committed()
	if err != nil {
		return nil, 0, err
	}
	treasury, err = getAmount(tree, []byte(KeyTreasury))
	return treasury, header.Height, err
}

func (db *StateDB) Quorum() (quorum uint64, height uint64) {
	header := db.Header()
	return header.Quorum, header.Height
}
