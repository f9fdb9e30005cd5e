package state

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

// getter is satisfied by both the working tree and committed snapshots.
type getter interface {
	Get(key []byte) ([]byte, error)
}

func memberKey(addr common.Address) []byte {
	return []byte(fmt.Sprintf(KeyMemberBody, addr.Bytes()))
}

func proposalKey(id uint64) []byte {
	return []byte(fmt.Sprintf(KeyProposalBody, id))
}

func voteKey(id uint64, addr common.Address) []byte {
	return []byte(fmt.Sprintf(KeyVote, id, addr.Bytes()))
}

func balanceKey(addr common.Address) []byte {
	return []byte(fmt.Sprintf(KeyBalance, addr.Bytes()))
}

func get(g getter, key []byte) ([]byte, error) {
	val, err := g.Get(key)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func getMember(g getter, addr common.Address) (*types.Member, error) {
	val, err := get(g, memberKey(addr))
	if err != nil || val == nil {
		return nil, err
	}
	m := new(types.Member)
	if err = json.Unmarshal(val, m); err != nil {
		return nil, err
	}
	return m, nil
}

func getProposal(g getter, id uint64) (*types.Proposal, error) {
	val, err := get(g, proposalKey(id))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrNotFound
	}
	p := new(types.Proposal)
	err = json.Unmarshal(val, p)
	return p, err
}

func getProposals(g getter, count uint64) ([]types.Proposal, error) {
	proposals := make([]types.Proposal, 0, count)
	for id := uint64(1); id <= count; id++ {
		p, err := getProposal(g, id)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}
	return proposals, nil
}

func getVote(g getter, id uint64, addr common.Address) (kind types.VoteKind, voted bool, err error) {
	val, err := get(g, voteKey(id, addr))
	if err != nil || val == nil {
		return 0, false, err
	}
	var k uint8
	if err = rlp.DecodeBytes(val, &k); err != nil {
		return 0, false, err
	}
	return types.VoteKind(k), true, nil
}

func getAmount(g getter, key []byte) (*big.Int, error) {
	val, err := get(g, key)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int)
	if val == nil {
		return amount, nil
	}
	if _, ok := amount.SetString(string(val), 10); !ok {
		return nil, fmt.Errorf("corrupt amount at key %s", key)
	}
	return amount, nil
}
