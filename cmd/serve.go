package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/docwatch/internal/logger"
	"github.com/jonesrussell/docwatch/internal/metrics"
	"github.com/jonesrussell/docwatch/internal/server"
	"github.com/jonesrussell/docwatch/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

// newServeCommand creates the serve command.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync daemon with scheduled passes and a status endpoint",
		Long: `Serve runs sync passes on a fixed interval and orphan cleanup on a cron
schedule, and exposes health, readiness, and Prometheus metrics over HTTP.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	deps, err := newCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	registry := prometheus.NewRegistry()
	runner, err := deps.buildRunner(metrics.New(registry))
	if err != nil {
		return err
	}

	daemon := syncer.NewDaemon(syncer.DaemonParams{
		Runner:          runner,
		Cleaner:         syncer.NewCleaner(deps.Cache, deps.Documents, deps.Logger),
		Logger:          deps.Logger,
		SyncInterval:    deps.Config.Sync.RunInterval,
		CleanupSchedule: deps.Config.Sync.CleanupSchedule,
		SyncOptions:     syncer.Options{MaxDocuments: deps.Config.Sync.MaxDocuments},
	})

	srv := server.New(server.Params{
		Config: server.Config{
			Address:      deps.Config.Server.Address,
			ReadTimeout:  deps.Config.Server.ReadTimeout,
			WriteTimeout: deps.Config.Server.WriteTimeout,
			IdleTimeout:  deps.Config.Server.IdleTimeout,
		},
		Gatherer: registry,
		Checks:   deps.readinessChecks(),
		Logger:   deps.Logger,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := daemon.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sync daemon: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case serveErr = <-serverErrors:
		if serveErr != nil {
			deps.Logger.Error("HTTP server failed", logger.Error(serveErr))
		}
	case sig := <-shutdown:
		deps.Logger.Info("Shutdown signal received", logger.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("HTTP server shutdown failed", logger.Error(err))
		}
	}

	if err := daemon.Stop(); err != nil {
		deps.Logger.Error("Failed to stop sync daemon", logger.Error(err))
	}

	return serveErr
}
