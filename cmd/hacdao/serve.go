package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/calehh/hac-dao/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveArguments struct {
	ClientConfig string
}

var serveArgs serveArguments

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the member's governance session over HTTP",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

func init() {
	clientFlags(serveCmd, &serveArgs.ClientConfig)
}

func serveRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	env, err := newClientEnv(ctx, cmd, serveArgs.ClientConfig, reg)
	if err != nil {
		return err
	}
	svc := service.NewService(env.cfg.Listen, env.session, reg, env.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return env.session.Run(gctx)
	})
	g.Go(func() error {
		return svc.Run(gctx)
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		env.logger.Info("service stopped")
		return nil
	}
	return err
}
