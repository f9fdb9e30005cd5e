package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/hac-dao/app"
	"github.com/calehh/hac-dao/config"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/spf13/cobra"
)

const (
	nodeStartupWait  = 5 * time.Second
	nodeShutdownWait = 10 * time.Second
)

var rootCmd = &cobra.Command{
	Use:   "hacdao",
	Short: "HAC DAO treasury governance",
	Long: `Propose, vote on and finalize treasury funding proposals, and run
a single-node devnet ledger for them.`,
	SilenceUsage: true,
}

type nodeArguments struct {
	Home string
}

var nodeArgs nodeArguments

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the devnet DAO ledger node",
	Args:  cobra.NoArgs,
	RunE:  nodeRun,
}

func init() {
	homeFlag(nodeCmd, &nodeArgs.Home)
}

func nodeRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(nodeArgs.Home)
	if err != nil {
		return err
	}

	pv := privval.LoadFilePV(
		cfg.PrivValidatorKeyFile(),
		cfg.PrivValidatorStateFile(),
	)
	nodeKey, err := p2p.LoadNodeKey(cfg.NodeKeyFile())
	if err != nil {
		return fmt.Errorf("failed to load node's key: %w", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(cfg.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	daoApp, err := app.NewDAOApp(cfg.App, logger)
	if err != nil {
		return fmt.Errorf("new app: %w", err)
	}

	node, err := nm.NewNode(
		cfg.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(daoApp),
		nm.DefaultGenesisDocProviderFunc(cfg.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(cfg.Instrumentation),
		logger,
	)
	if err != nil {
		daoApp.Stop()
		return fmt.Errorf("creating node: %w", err)
	}

	daoApp.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		daoApp.Stop()
		return fmt.Errorf("start comet node: %w", err)
	}
	time.Sleep(nodeStartupWait)
	if !node.IsRunning() {
		daoApp.Stop()
		return fmt.Errorf("comet node unable to run")
	}
	logger.Info("dao ledger node running", "rpc", cfg.RPC.ListenAddress, "home", cfg.RootDir)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("shut down...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := node.Stop(); err != nil {
			logger.Error("stop comet node fail", "err", err)
		}
		node.Wait()
		daoApp.Stop()
	}()
	select {
	case <-time.After(nodeShutdownWait):
		return fmt.Errorf("node did not stop within %v", nodeShutdownWait)
	case <-done:
		return nil
	}
}
