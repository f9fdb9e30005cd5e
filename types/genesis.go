package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	if len(ag.AppState) > 0 {
		var app AppGenesis
		if err := json.Unmarshal(ag.AppState, &app); err != nil {
			return fmt.Errorf("invalid app_state: %w", err)
		}
		if err := app.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

// AppGenesis is the DAO section of the genesis app_state.
type AppGenesis struct {
	Quorum   uint64          `json:"quorum"`
	Treasury string          `json:"treasury"`
	Members  []GenesisMember `json:"members"`
}

type GenesisMember struct {
	Address common.Address `json:"address"`
	Weight  uint64         `json:"weight"`
}

func (g *AppGenesis) TreasuryAmount() (*big.Int, error) {
	if g.Treasury == "" {
		return new(big.Int), nil
	}
	amount, ok := new(big.Int).SetString(g.Treasury, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid treasury amount %q", g.Treasury)
	}
	return amount, nil
}

func (g *AppGenesis) Validate() error {
	if _, err := g.TreasuryAmount(); err != nil {
		return err
	}
	seen := make(map[common.Address]bool, len(g.Members))
	for _, m := range g.Members {
		if m.Address == (common.Address{}) {
			return errors.New("genesis member with zero address")
		}
		if m.Weight == 0 {
			return fmt.Errorf("genesis member %s has zero weight", m.Address.Hex())
		}
		if seen[m.Address] {
			return fmt.Errorf("duplicate genesis member %s", m.Address.Hex())
		}
		seen[m.Address] = true
	}
	return nil
}

const DAOModuleName = "dao"
const DefaultPower = 1000
const DefaultMemberWeight = 1
