package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/firmckpt/internal/config"
	"github.com/Sumatoshi-tech/firmckpt/internal/observability"
	"github.com/Sumatoshi-tech/firmckpt/pkg/version"
)

// initObservability sets up logging, tracing, and metrics for one command run.
// Config values apply first; --verbose, --quiet, and --log-json win over them.
func initObservability(cmd *cobra.Command, cfg *config.Config, mode observability.AppMode) (observability.Providers, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogWriter = cmd.ErrOrStderr()

	cfg.ApplyToObservability(&obsCfg)

	switch {
	case boolFlag(cmd, flagVerbose):
		obsCfg.LogLevel = slog.LevelDebug
	case boolFlag(cmd, flagQuiet):
		obsCfg.LogLevel = slog.LevelError
	}

	if boolFlag(cmd, flagLogJSON) {
		obsCfg.LogJSON = true
	}

	return observability.Init(obsCfg)
}

func shutdownObservability(providers observability.Providers) {
	err := providers.Shutdown(context.Background())
	if err != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}
