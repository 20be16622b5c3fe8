package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/firmckpt/internal/checkpoint"
	"github.com/Sumatoshi-tech/firmckpt/internal/config"
	"github.com/Sumatoshi-tech/firmckpt/internal/mcp"
	"github.com/Sumatoshi-tech/firmckpt/internal/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes one tool:
  - checkpoint_scan: summarize a checkpoint directory by pipeline stage

Logs go to stderr as JSON; stdout carries the protocol.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(stringFlag(cobraCmd, flagConfig))
			if err != nil {
				return err
			}

			cfg.Logging.JSON = true

			if debug {
				cfg.Logging.Level = slog.LevelDebug.String()
				cfg.Observability.DebugTrace = true
			}

			providers, err := initObservability(cobraCmd, cfg, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer shutdownObservability(providers)

			srv, err := newMCPServer(cfg, providers)
			if err != nil {
				return err
			}

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging and full trace sampling")

	return cmd
}

func newMCPServer(cfg *config.Config, providers observability.Providers) (*mcp.Server, error) {
	maxRecordSize, err := cfg.MaxRecordBytes()
	if err != nil {
		return nil, err
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	scanMetrics, err := observability.NewScanMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	return mcp.NewServer(mcp.ServerDeps{
		Logger:     providers.Logger,
		Metrics:    red,
		Tracer:     providers.Tracer,
		DefaultDir: cfg.Checkpoint.Dir,
		ScanOptions: checkpoint.Options{
			Pattern:       cfg.Checkpoint.Pattern,
			Strict:        cfg.Checkpoint.Strict,
			MaxRecordSize: maxRecordSize,
			Logger:        providers.Logger,
			Tracer:        providers.Tracer,
			Metrics:       scanMetrics,
		},
	}), nil
}
