package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendComet = "comet"
	BackendEVM   = "evm"

	SchemaLegacy   = "legacy"
	SchemaExtended = "extended"

	EnvPrefix = "HACDAO"
)

// ClientConfig configures the governance client, CLI and HTTP service.
type ClientConfig struct {
	Backend       string        `mapstructure:"backend"`
	RPC           string        `mapstructure:"rpc"`
	KeyFile       string        `mapstructure:"key_file"`
	Contract      string        `mapstructure:"contract"`
	Schema        string        `mapstructure:"schema"`
	Decimals      int32         `mapstructure:"decimals"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
	Confirm       bool          `mapstructure:"confirm"`
	Listen        string        `mapstructure:"listen"`
	LogLevel      string        `mapstructure:"log_level"`
}

// clientFlags maps config keys to command line flag names.
var clientFlags = map[string]string{
	"backend":        "backend",
	"rpc":            "rpc",
	"key_file":       "key",
	"contract":       "contract",
	"schema":         "schema",
	"decimals":       "decimals",
	"submit_timeout": "timeout",
	"confirm":        "confirm",
	"listen":         "listen",
	"log_level":      "log-level",
}

func setClientDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendComet)
	v.SetDefault("rpc", "http://127.0.0.1:26657")
	v.SetDefault("key_file", os.ExpandEnv(DefaultHomeDir+"/config/"+MemberKeyFile))
	v.SetDefault("contract", "")
	v.SetDefault("schema", SchemaExtended)
	v.SetDefault("decimals", 18)
	v.SetDefault("submit_timeout", 60*time.Second)
	v.SetDefault("confirm", false)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
}

// LoadClientConfig resolves the client configuration from defaults, an
// optional config file, HACDAO_* environment variables and flags, in
// increasing precedence. Only flags the user actually set override.
func LoadClientConfig(file string, flags *pflag.FlagSet) (*ClientConfig, error) {
	v := viper.New()
	setClientDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading client config: %w", err)
		}
	}
	if flags != nil {
		for key, name := range clientFlags {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := new(ClientConfig)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding client config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	switch c.Backend {
	case BackendComet:
	case BackendEVM:
		if !common.IsHexAddress(c.Contract) {
			return fmt.Errorf("evm backend needs a contract address, got %q", c.Contract)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.RPC == "" {
		return fmt.Errorf("rpc url must not be empty")
	}
	if c.Schema != SchemaLegacy && c.Schema != SchemaExtended {
		return fmt.Errorf("unknown contract schema %q", c.Schema)
	}
	if c.Decimals < 0 || c.Decimals > 36 {
		return fmt.Errorf("decimals out of range: %d", c.Decimals)
	}
	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("submit_timeout must be positive")
	}
	return nil
}

// RegisterClientFlags adds the flags LoadClientConfig understands.
func RegisterClientFlags(flags *pflag.FlagSet) {
	flags.String("backend", BackendComet, "ledger backend: comet or evm")
	flags.StringP("rpc", "u", "http://127.0.0.1:26657", "ledger rpc url")
	flags.StringP("key", "k", "", "member key file")
	flags.String("contract", "", "DAO contract address (evm backend)")
	flags.String("schema", SchemaExtended, "contract surface: legacy or extended")
	flags.Int32("decimals", 18, "token decimals used for amounts")
	flags.Duration("timeout", 60*time.Second, "how long to wait for a transaction to be committed")
	flags.Bool("confirm", false, "prompt before signing each transaction")
	flags.String("listen", ":8080", "http listen address")
	flags.String("log-level", "info", "log level")
}
