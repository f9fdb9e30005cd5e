package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/hac-dao/crypto"
	"github.com/cometbft/cometbft/config"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

const (
	DefaultHomeDir    = "$HOME/.hacdao"
	DefaultDBDir      = "data/dao"
	DefaultMaxTxBytes = 64 * 1024
	MemberKeyFile     = "member_key"
)

// DAOAppConfig is the [app] section of the node's config.toml.
type DAOAppConfig struct {
	Home       string `mapstructure:"-"`
	DBDir      string `mapstructure:"db_dir"`
	MaxTxBytes int64  `mapstructure:"max_tx_bytes"`
}

func NewDAOAppConfig(home string) *DAOAppConfig {
	return &DAOAppConfig{
		Home:       home,
		DBDir:      DefaultDBDir,
		MaxTxBytes: DefaultMaxTxBytes,
	}
}

func (c *DAOAppConfig) DBPath() string {
	if filepath.IsAbs(c.DBDir) {
		return c.DBDir
	}
	return filepath.Join(c.Home, c.DBDir)
}

func (c *DAOAppConfig) ValidateBasic() error {
	if c.DBDir == "" {
		return fmt.Errorf("app.db_dir must not be empty")
	}
	if c.MaxTxBytes <= 0 {
		return fmt.Errorf("app.max_tx_bytes must be positive, got %d", c.MaxTxBytes)
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *DAOAppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	_ = os.MkdirAll(filepath.Join(home, "config"), 0o755)
	cfg := &Config{
		DefaultDAOCometConfig(),
		NewDAOAppConfig(home),
	}
	cfg.SetRoot(home)
	return cfg
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

func (c *Config) ConfigFile() string {
	return filepath.Join(c.RootDir, "config", "config.toml")
}

func (c *Config) MemberKeyFile() string {
	return filepath.Join(c.RootDir, "config", MemberKeyFile)
}

// LoadConfig reads home/config/config.toml over the defaults.
func LoadConfig(home string) (*Config, error) {
	cfg := DefaultConfig(home)
	v := viper.New()
	v.SetConfigFile(cfg.ConfigFile())
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.SetRoot(cfg.App.Home)
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return cfg, nil
}

// InitializeMemberKey creates the member signing key under home/config
// unless one exists, and returns its address.
func InitializeMemberKey(cfg *Config) (common.Address, error) {
	if _, err := os.Stat(cfg.MemberKeyFile()); err == nil {
		signer, err := crypto.LoadKeySigner(cfg.MemberKeyFile())
		if err != nil {
			return common.Address{}, err
		}
		return signer.Address(), nil
	}
	signer, err := crypto.GenerateKeyFile(cfg.MemberKeyFile(), false)
	if err != nil {
		return common.Address{}, err
	}
	return signer.Address(), nil
}

func InitializeNodeValidatorFiles(config *Config, privKey cmtcrypto.PrivKey) (nodeID string, pk cmtcrypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pk, err = filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}
	return nodeID, pk, nil
}

// DefaultDAOCometConfig shortens the consensus timeouts for a small devnet.
func DefaultDAOCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
