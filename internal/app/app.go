// Package app assembles the tool server from its parts: config,
// logging, the artifact index, metrics, and the MCP facade.
package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"seismcp/internal/infra/artifact"
	"seismcp/internal/infra/config"
	"seismcp/internal/infra/facade"
	"seismcp/internal/infra/telemetry"
)

// Version is stamped at build time.
var Version = "dev"

// RunServer serves the seismology toolbox over stdio until the
// context is cancelled.
func RunServer(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("seismd")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	index, err := artifact.OpenIndex(filepath.Join(cfg.DataDir, "artifacts.db"))
	if err != nil {
		return err
	}
	defer index.Close()

	metrics := telemetry.New(nil)
	svc, err := facade.New(cfg, logger, index, metrics)
	if err != nil {
		return err
	}

	if cfg.MetricsListen != "" {
		go func() {
			if serr := telemetry.Serve(ctx, cfg.MetricsListen, logger); serr != nil {
				logger.Error("metrics listener failed", zap.Error(serr))
			}
		}()
	}

	logger.Info("tool server starting",
		zap.String("data_dir", cfg.DataDir),
		zap.String("provider", cfg.Provider),
		zap.Int("max_seconds", cfg.Limits.MaxSeconds),
		zap.Int("max_traces", cfg.Limits.MaxTraces))

	server := svc.NewServer(Version)
	return server.Run(ctx, &mcp.StdioTransport{})
}
