package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudquote/cloudquote/pkg/server"
	"github.com/cloudquote/cloudquote/pkg/telemetry"
	"github.com/cloudquote/cloudquote/pkg/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP estimation API",
	Long: `Starts the CloudQuote HTTP API.

A persisted cache snapshot is restored on boot and written back on
shutdown, so restarts do not begin with an empty cache.

Example:
  cloudquote serve
  cloudquote serve --port 9090`,
	Run: func(cmd *cobra.Command, args []string) {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Server.Port = port
		}

		logger := newLogger(true)
		ctx := cmd.Context()

		shutdownTelemetry, err := telemetry.Init(ctx, "cloudquote", version.Current, cfg.Telemetry.Endpoint)
		if err != nil {
			logger.Warn("telemetry init failed", "error", err)
		}

		eng, awsAdapter, err := buildEngine(logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
			os.Exit(1)
		}
		verifyAWS(ctx, logger, awsAdapter)

		if err := eng.Cache().LoadSnapshot(ctx); err != nil {
			logger.Warn("cache snapshot restore failed", "error", err)
		}

		srv := server.New(logger, eng, cfg.Server)
		if err := srv.StartWithGracefulShutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
			os.Exit(1)
		}

		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eng.Cache().SaveSnapshot(saveCtx); err != nil {
			logger.Warn("cache snapshot save failed", "error", err)
		}
		if shutdownTelemetry != nil {
			if err := shutdownTelemetry(saveCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
		}
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Listen port (overrides config)")
}
