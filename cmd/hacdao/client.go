package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/governance"
	"github.com/calehh/hac-dao/ledger"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newLogger(level string) (cmtlog.Logger, error) {
	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stderr))
	return cmtflags.ParseLogLevel(level, logger, "info")
}

// loadSigner returns nil when the key file does not exist, which leaves
// the client read-only.
func loadSigner(cfg *config.ClientConfig) (crypto.Signer, error) {
	key, err := crypto.LoadKeySigner(cfg.KeyFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.Confirm {
		return crypto.NewConfirmSigner(key, os.Stdin, os.Stderr), nil
	}
	return key, nil
}

func newLedger(ctx context.Context, cfg *config.ClientConfig, logger cmtlog.Logger) (ledger.Ledger, error) {
	signer, err := loadSigner(cfg)
	if err != nil {
		return nil, fmt.Errorf("load member key: %w", err)
	}
	switch cfg.Backend {
	case config.BackendEVM:
		return ledger.NewEVMClient(ctx, cfg.RPC, common.HexToAddress(cfg.Contract), cfg.Schema, signer, logger)
	default:
		return ledger.NewCometClient(cfg.RPC, signer, logger)
	}
}

type clientEnv struct {
	cfg     *config.ClientConfig
	logger  cmtlog.Logger
	session *governance.Session
}

func newClientEnv(ctx context.Context, cmd *cobra.Command, file string, reg prometheus.Registerer) (*clientEnv, error) {
	cfg, err := config.LoadClientConfig(file, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	l, err := newLedger(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &clientEnv{
		cfg:     cfg,
		logger:  logger,
		session: governance.NewSession(l, cfg.Decimals, reg, logger),
	}, nil
}

// submitContext bounds how long a command waits for its transaction.
// Cancelling the command (Ctrl-C) cancels the wait too.
func (e *clientEnv) submitContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, e.cfg.SubmitTimeout)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// userError replaces a governance failure with the message a member sees.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(governance.Message(err))
}
