package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
	"github.com/sriharsha8991/adv-attack-simulation/internal/config"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ability-agent",
	Short: "MITRE ATT&CK adversary simulation ability generator",
	Long: `ability-agent generates MITRE ATT&CK-mapped adversary simulation
abilities through a two-phase LLM pipeline backed by a Neo4j knowledge
graph and MISP galaxy threat intelligence.

Generated abilities are documentation artifacts: always PENDING,
simulation-only, and attributed to the agent. A deterministic safety
pipeline can validate every ability before it is persisted.`,
	Version:           ability.AgentVersion,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration and installs the process-wide logger before any
// subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}

	var err error
	cfg, err = config.LoadWithDefaults(configPath)
	if err != nil {
		return err
	}

	level := parseLogLevel(cfg.Logging.Level)
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logging.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))

	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
}
