package tx

import (
	"encoding/json"
	"math/big"

	"github.com/calehh/hac-dao/crypto"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// DAOTx is the signed envelope submitted to the DAO ledger.
type DAOTx struct {
	Version uint8          `json:"version"`
	Type    DAOTxType      `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Tx      any            `json:"tx"`
	Sig     []byte         `json:"sig"`
}

type CreateProposalTx struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Amount      *big.Int       `json:"amount"`
	Recipient   common.Address `json:"recipient"`
}

type VoteTx struct {
	Proposal uint64 `json:"proposal"`
}

type FinalizeTx struct {
	Proposal uint64 `json:"proposal"`
}

type daoTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    DAOTxType      `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Tx      Tx             `json:"tx"`
	Sig     []byte         `json:"sig"`
}

// SigData returns the bytes covered by the signature. ext binds the
// signature to a chain id.
func (tx *DAOTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

func (tx *DAOTx) SigHash(chainId []byte) ([]byte, error) {
	dat, err := tx.SigData(chainId)
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(dat), nil
}

func (tx *DAOTx) Sign(signer crypto.Signer, chainId []byte) error {
	tx.Sender = signer.Address()
	hash, err := tx.SigHash(chainId)
	if err != nil {
		return err
	}
	sig, err := signer.SignHash(hash)
	if err != nil {
		return err
	}
	tx.Sig = sig
	return nil
}

// Signer recovers the address that signed the envelope.
func (tx *DAOTx) Signer(chainId []byte) (common.Address, error) {
	if len(tx.Sig) == 0 {
		return common.Address{}, ErrMissingSignature
	}
	hash, err := tx.SigHash(chainId)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.RecoverAddress(hash, tx.Sig)
}

func (tx *DAOTx) Proposal() uint64 {
	switch t := tx.Tx.(type) {
	case *VoteTx:
		return t.Proposal
	case *FinalizeTx:
		return t.Proposal
	}
	return 0
}

func parseDAOTxType(dat []byte) DAOTxType {
	var tx struct {
		Type DAOTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return DAOTxTypeUnknown
	}
	return tx.Type
}

func unmarshalDAOTx[Tx any](dat []byte) (btx *DAOTx, err error) {
	var txt daoTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != DAOTxVersion1 {
		return nil, ErrUnsupportedTxVersion
	}
	btx = new(DAOTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Sender = txt.Sender
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalDAOTx(dat []byte) (btx *DAOTx, err error) {
	tp := parseDAOTxType(dat)
	switch tp {
	case DAOTxTypeCreateProposal:
		return unmarshalDAOTx[CreateProposalTx](dat)
	case DAOTxTypeVote, DAOTxTypeDownvote:
		return unmarshalDAOTx[VoteTx](dat)
	case DAOTxTypeFinalize:
		return unmarshalDAOTx[FinalizeTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalDAOTx(btx *DAOTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
