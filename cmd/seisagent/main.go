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
	"seismcp/internal/infra/agent"
	"seismcp/internal/infra/config"
)

type agentOptions struct {
	configPath   string
	debug        bool
	serverCmd    string
	serverArgs   []string
	provider     string
	minMagnitude float64
	lookbackDays int
	radiusDeg    float64
	channel      string
	maxStations  int
	narrate      bool
}

func main() {
	opts := agentOptions{}
	logger := zap.NewNop()

	root := &cobra.Command{
		Use:   "seisagent",
		Short: "Automated waveform acquisition agent driving the seismd tool server",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			log, err := app.NewLogger(opts.debug)
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
			return run(ctx, opts, logger)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to YAML config file")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.serverCmd, "server", "seismd", "tool server command")
	flags.StringSliceVar(&opts.serverArgs, "server-arg", nil, "extra argument for the tool server (repeatable)")
	flags.StringVar(&opts.provider, "provider", "", "preferred FDSN provider, tried before the fallbacks")
	flags.Float64Var(&opts.minMagnitude, "min-magnitude", 7.0, "minimum event magnitude")
	flags.IntVar(&opts.lookbackDays, "lookback-days", 90, "event search window in days")
	flags.Float64Var(&opts.radiusDeg, "radius", 2.0, "station search radius around the event, degrees")
	flags.StringVar(&opts.channel, "channel", "BH?", "channel pattern")
	flags.IntVar(&opts.maxStations, "max-stations", 25, "station candidates to consider")
	flags.BoolVar(&opts.narrate, "narrate", true, "summarize the run with the configured LLM")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts agentOptions, logger *zap.Logger) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	var narrator *agent.Narrator
	if opts.narrate {
		narrator, err = agent.NewNarrator(ctx, cfg.LLM, logger, nil)
		if err != nil {
			logger.Warn("narration disabled", zap.Error(err))
			narrator = nil
		}
	}

	client, err := agent.Connect(ctx, opts.serverCmd, opts.serverArgs, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	workflow := agent.NewWorkflow(client, narrator, logger, agent.Params{
		Provider:     opts.provider,
		MinMagnitude: opts.minMagnitude,
		LookbackDays: opts.lookbackDays,
		RadiusDeg:    opts.radiusDeg,
		Channel:      opts.channel,
		MaxStations:  opts.maxStations,
	})

	summary, runErr := workflow.Run(ctx)
	if summary != nil {
		raw, merr := json.MarshalIndent(summary, "", "  ")
		if merr == nil {
			fmt.Println(string(raw))
		}
		if summary.Narrative != "" {
			fmt.Println()
			fmt.Println(summary.Narrative)
		}
	}
	return runErr
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
