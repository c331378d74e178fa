// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
)

// shutdownTimeout bounds graceful shutdown of the observability server.
const shutdownTimeout = 5 * time.Second

// newServeCmd creates the serve subcommand.
func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the auth core process",
		Long: `Connect to the database, serve metrics and health probes, and sweep
expired password reset tokens until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, deps)
		},
	}
}

// runServe hosts the auth service until ctx is cancelled, SIGINT or SIGTERM
// arrives, or the observability server fails.
func runServe(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var backend *Backend
	obsServer := deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool {
		return backend != nil && (backend.Ready == nil || backend.Ready())
	})
	obsServer.SetLogger(logger)
	metrics := auth.NewMetrics(obsServer.Registry())

	backend, err = deps.BackendFactory(ctx, cfg, logger, metrics)
	if err != nil {
		return oops.With("operation", "start backend").Wrap(err)
	}
	defer backend.Close()

	logger.Info("connected to storage")

	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, logger, obsErrCh, "observability")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		backend.Service.ResetTokens().RunSweeper(ctx, cfg.Auth.SweepInterval, func(removed int) {
			metrics.RecordSwept(removed)
			if removed > 0 {
				logger.Debug("swept expired reset tokens", "removed", removed)
			}
		})
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("authcore serving on " + obsServer.Addr())
	logger.Info("authcore ready",
		"metrics_addr", obsServer.Addr(),
		"sweep_interval", cfg.Auth.SweepInterval.String(),
	)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := obsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when the server reports an error. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
