package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/ledger"
	"github.com/calehh/hac-dao/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type printInfo struct {
	Moniker    string          `json:"moniker" yaml:"moniker"`
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	Member     string          `json:"member" yaml:"member"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

type initArguments struct {
	Home      string
	ChainID   string
	Overwrite bool
	Quorum    uint64
	Treasury  string
	Members   []string
}

var initArgs initArguments

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, member key, genesis, and application configuration files",
	Long: `Initialize the devnet ledger node. The local member key is always a
genesis member; --member adds more.`,
	Args: cobra.NoArgs,
	RunE: initRun,
}

func init() {
	homeFlag(initCmd, &initArgs.Home)
	initCmd.Flags().BoolVarP(&initArgs.Overwrite, FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().StringVar(&initArgs.ChainID, FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().Uint64Var(&initArgs.Quorum, "quorum", 1, "votes a proposal must exceed to be finalized")
	initCmd.Flags().StringVar(&initArgs.Treasury, "treasury", "1000", "initial treasury in token units")
	initCmd.Flags().StringSliceVar(&initArgs.Members, "member", nil, "additional genesis member address (repeatable)")
}

func initRun(cmd *cobra.Command, args []string) error {
	chainID := initArgs.ChainID
	if chainID == "" {
		chainID = fmt.Sprintf("dao-chain-%v", rand.Uint64())
	}
	cfg := config.DefaultConfig(initArgs.Home)

	genFile := cfg.GenesisFile()
	if _, err := os.Stat(genFile); err == nil && !initArgs.Overwrite {
		return fmt.Errorf("genesis file %v already exists, use --%s to replace it", genFile, FlagOverwrite)
	}

	nodeID, pk, err := config.InitializeNodeValidatorFiles(cfg, nil)
	if err != nil {
		return err
	}
	member, err := config.InitializeMemberKey(cfg)
	if err != nil {
		return fmt.Errorf("initialize member key: %w", err)
	}

	appGenesis := types.AppGenesis{
		Quorum:  initArgs.Quorum,
		Members: []types.GenesisMember{{Address: member, Weight: types.DefaultMemberWeight}},
	}
	// an empty treasury is allowed, proposals then fail with insufficient funds
	if initArgs.Treasury != "" && initArgs.Treasury != "0" {
		treasury, err := ledger.ParseAmount(initArgs.Treasury, ledger.DefaultDecimals)
		if err != nil {
			return fmt.Errorf("invalid treasury: %w", err)
		}
		appGenesis.Treasury = treasury.String()
	}
	for _, m := range initArgs.Members {
		if !common.IsHexAddress(m) {
			return fmt.Errorf("invalid member address %q", m)
		}
		appGenesis.Members = append(appGenesis.Members, types.GenesisMember{
			Address: common.HexToAddress(m),
			Weight:  types.DefaultMemberWeight,
		})
	}
	appState, err := json.Marshal(appGenesis)
	if err != nil {
		return err
	}

	genesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      []types.GenesisValidator{{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower}},
		AppState:        appState,
	}
	if err = types.ExportGenesisFile(genesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	if err = config.WriteConfigFile(cfg.ConfigFile(), cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return displayInfo(printInfo{
		ChainID:    chainID,
		NodeID:     nodeID,
		Member:     member.Hex(),
		AppMessage: appState,
	})
}
