package app

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"strings"

	"github.com/calehh/hac-dao/state"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	QueryCodeOK       uint32 = 0
	QueryCodeNotFound uint32 = 1
	QueryCodeBadData  uint32 = 2
	QueryCodeInternal uint32 = 3
	QueryCodeNoRoute  uint32 = 404
)

func (app *DAOApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = QueryCodeNoRoute
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// EncodeVoteQuery builds the /hasvoted/ request data.
func EncodeVoteQuery(member common.Address, id uint64) []byte {
	return binary.BigEndian.AppendUint64(member.Bytes(), id)
}

func EncodeProposalQuery(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

func respond(res *abcitypes.ResponseQuery, v any, height uint64, err error) *abcitypes.ResponseQuery {
	res.Height = int64(height)
	if err != nil {
		res.Log = err.Error()
		if errors.Is(err, state.ErrProposalNoexists) || errors.Is(err, state.ErrNotFound) {
			res.Code = QueryCodeNotFound
		} else {
			res.Code = QueryCodeInternal
		}
		return res
	}
	res.Value, err = json.Marshal(v)
	if err != nil {
		res.Code = QueryCodeInternal
		res.Log = err.Error()
	}
	return res
}

func badData(res *abcitypes.ResponseQuery, want string) *abcitypes.ResponseQuery {
	res.Code = QueryCodeBadData
	res.Log = "query data must be " + want
	return res
}

type ProposalQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewProposalQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ProposalQuerier) {
	q = &ProposalQuerier{
		db:     db,
		logger: logger,
	}
	return
}

// Query returns every proposal, or the one whose big-endian id is in Data.
func (q *ProposalQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	switch len(req.Data) {
	case 0:
		proposals, height, err := q.db.GetProposals()
		return respond(res, proposals, height, err), nil
	case 8:
		proposal, height, err := q.db.GetProposal(binary.BigEndian.Uint64(req.Data))
		return respond(res, proposal, height, err), nil
	default:
		return badData(res, "empty or an 8 byte proposal id"), nil
	}
}

type VoteQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewVoteQuerier(db *state.StateDB, logger cmtlog.Logger) (q *VoteQuerier) {
	q = &VoteQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *VoteQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.AddressLength+8 {
		return badData(res, "a 20 byte address followed by an 8 byte proposal id"), nil
	}
	addr := common.BytesToAddress(req.Data[:common.AddressLength])
	id := binary.BigEndian.Uint64(req.Data[common.AddressLength:])
	voted, height, err := q.db.HasVoted(addr, id)
	return respond(res, voted, height, err), nil
}

type QuorumQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewQuorumQuerier(db *state.StateDB, logger cmtlog.Logger) (q *QuorumQuerier) {
	q = &QuorumQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *QuorumQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	quorum, height := q.db.Quorum()
	return respond(&abcitypes.ResponseQuery{}, quorum, height, nil), nil
}

type MemberQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewMemberQuerier(db *state.StateDB, logger cmtlog.Logger) (q *MemberQuerier) {
	q = &MemberQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *MemberQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.AddressLength {
		return badData(res, "a 20 byte address"), nil
	}
	m, height, err := q.db.GetMember(common.BytesToAddress(req.Data))
	if err == nil && m == nil {
		err = state.ErrNotFound
	}
	return respond(res, m, height, err), nil
}

type BalanceQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewBalanceQuerier(db *state.StateDB, logger cmtlog.Logger) (q *BalanceQuerier) {
	q = &BalanceQuerier{
		db:     db,
		logger: logger,
	}
	return
}

// Query returns the recipient balance, or the treasury when Data is empty.
func (q *BalanceQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	switch len(req.Data) {
	case 0:
		treasury, height, err := q.db.GetTreasury()
		return respond(res, treasury, height, err), nil
	case common.AddressLength:
		balance, height, err := q.db.GetBalance(common.BytesToAddress(req.Data))
		return respond(res, balance, height, err), nil
	default:
		return badData(res, "empty or a 20 byte address"), nil
	}
}
