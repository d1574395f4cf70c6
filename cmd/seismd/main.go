package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seismcp/internal/app"
	"seismcp/internal/infra/artifact"
	"seismcp/internal/infra/config"
	"seismcp/internal/infra/validate"
)

func main() {
	var (
		configPath string
		debug      bool
		logger     = zap.NewNop()
	)

	root := &cobra.Command{
		Use:   "seismd",
		Short: "FDSN seismology tool server speaking MCP over stdio",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			log, err := app.NewLogger(debug)
			if err != nil {
				return err
			}
			logger = log
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return app.RunServer(ctx, cfg, logger)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(validateCommand(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// validateCommand checks a window against the configured limits
// without starting the server or touching the network.
func validateCommand(configPath *string) *cobra.Command {
	var (
		start    string
		end      string
		rateHint float64
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a download window against the configured limits",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			startTime, err := artifact.ParseTime(start)
			if err != nil {
				return fmt.Errorf("bad --start: %w", err)
			}
			endTime, err := artifact.ParseTime(end)
			if err != nil {
				return fmt.Errorf("bad --end: %w", err)
			}

			estimate, verr := validate.Request(startTime, endTime,
				validate.Options{SampleRateHint: rateHint}, cfg.Limits)
			out := map[string]any{
				"ok":       verr == nil,
				"estimate": estimate,
				"limits":   cfg.Limits,
			}
			if verr != nil {
				out["message"] = verr.Error()
			}
			raw, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(raw))
			if verr != nil {
				os.Exit(2)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "window start, ISO-8601")
	cmd.Flags().StringVar(&end, "end", "", "window end, ISO-8601")
	cmd.Flags().Float64Var(&rateHint, "rate-hint", 0, "expected sampling rate in Hz")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
