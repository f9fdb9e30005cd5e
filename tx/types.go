package tx

import (
	"errors"
)

type DAOTxType uint8

const (
	DAOTxTypeUnknown        DAOTxType = 0
	DAOTxTypeCreateProposal DAOTxType = 1
	DAOTxTypeVote           DAOTxType = 2
	DAOTxTypeDownvote       DAOTxType = 3
	DAOTxTypeFinalize       DAOTxType = 4
)

func (t DAOTxType) String() string {
	switch t {
	case DAOTxTypeCreateProposal:
		return "createProposal"
	case DAOTxTypeVote:
		return "vote"
	case DAOTxTypeDownvote:
		return "downvote"
	case DAOTxTypeFinalize:
		return "finalizeProposal"
	default:
		return "unknown"
	}
}

const (
	DAOTxVersion0 uint8 = 0
	DAOTxVersion1 uint8 = 1
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrMissingSignature     = errors.New("missing signature")
)
