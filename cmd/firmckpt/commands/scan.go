package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/firmckpt/internal/checkpoint"
	"github.com/Sumatoshi-tech/firmckpt/internal/config"
	"github.com/Sumatoshi-tech/firmckpt/internal/observability"
	"github.com/Sumatoshi-tech/firmckpt/internal/report"
	"github.com/Sumatoshi-tech/firmckpt/pkg/persist"
)

const (
	summaryBasename = "summary"
	outputDirPerm   = 0o750
)

// ScanCommand holds the flags of the scan command.
type ScanCommand struct {
	strict      bool
	pattern     string
	format      string
	firms       bool
	htmlPath    string
	saveDir     string
	metricsFile string
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	sc := &ScanCommand{}

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Summarize a checkpoint directory by pipeline stage",
		Long: `Read every checkpoint file in dir and print how many firms are at each
pipeline stage.

Without dir, $FIRMCKPT_CHECKPOINT_DIR is used, then $checkpoint_dir, then
checkpoint.dir from the config file, then ` + checkpoint.DefaultDir + `.
Unreadable checkpoints are skipped and counted unless --strict is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: sc.run,
	}

	cmd.Flags().BoolVar(&sc.strict, "strict", false, "Fail on the first unreadable checkpoint")
	cmd.Flags().StringVar(&sc.pattern, "pattern", checkpoint.DefaultPattern, "Glob for checkpoint file names")
	cmd.Flags().StringVarP(&sc.format, "format", "f", config.FormatText, "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&sc.firms, "firms", false, "List the firms in each stage")
	cmd.Flags().StringVar(&sc.htmlPath, "html", "", "Also write an HTML bar chart to this file")
	cmd.Flags().StringVar(&sc.saveDir, "save", "", "Also write "+summaryBasename+".json into this directory")
	cmd.Flags().StringVar(&sc.metricsFile, "metrics-file", "", "Write Prometheus metrics for this scan to this file")

	return cmd
}

func (sc *ScanCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(stringFlag(cmd, flagConfig))
	if err != nil {
		return err
	}

	sc.applyFlags(cmd, cfg, args)

	err = cfg.Validate()
	if err != nil {
		return err
	}

	maxRecordSize, err := cfg.MaxRecordBytes()
	if err != nil {
		return err
	}

	providers, err := initObservability(cmd, cfg, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer shutdownObservability(providers)

	meter := providers.Meter

	var textfile *observability.Textfile

	if sc.metricsFile != "" {
		textfile, err = observability.NewTextfile()
		if err != nil {
			return err
		}

		meter = textfile.Meter()
	}

	scanner, err := newScanner(cfg, maxRecordSize, providers, meter)
	if err != nil {
		return err
	}

	summary, err := scanner.Scan(cmd.Context(), cfg.Checkpoint.Dir)
	if err != nil {
		return err
	}

	err = report.Write(cmd.OutOrStdout(), summary, report.Options{
		Format:    cfg.Report.Format,
		ShowFirms: cfg.Report.ShowFirms,
	})
	if err != nil {
		return err
	}

	return sc.writeArtifacts(summary, textfile)
}

// applyFlags lets explicitly set flags and the dir argument override config.
func (sc *ScanCommand) applyFlags(cmd *cobra.Command, cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Checkpoint.Dir = args[0]
	}

	flags := cmd.Flags()

	if flags.Changed("strict") {
		cfg.Checkpoint.Strict = sc.strict
	}

	if flags.Changed("pattern") {
		cfg.Checkpoint.Pattern = sc.pattern
	}

	if flags.Changed("format") {
		cfg.Report.Format = sc.format
	}

	if flags.Changed("firms") {
		cfg.Report.ShowFirms = sc.firms
	}
}

func newScanner(
	cfg *config.Config, maxRecordSize int64, providers observability.Providers, meter metric.Meter,
) (*checkpoint.Scanner, error) {
	scanMetrics, err := observability.NewScanMetrics(meter)
	if err != nil {
		return nil, err
	}

	scanner, err := checkpoint.NewScanner(checkpoint.Options{
		Pattern:       cfg.Checkpoint.Pattern,
		Strict:        cfg.Checkpoint.Strict,
		MaxRecordSize: maxRecordSize,
		Logger:        providers.Logger,
		Tracer:        providers.Tracer,
		Metrics:       scanMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	return scanner, nil
}

func (sc *ScanCommand) writeArtifacts(summary *checkpoint.Summary, textfile *observability.Textfile) error {
	if sc.htmlPath != "" {
		err := writeHTML(sc.htmlPath, summary)
		if err != nil {
			return err
		}
	}

	if sc.saveDir != "" {
		err := os.MkdirAll(sc.saveDir, outputDirPerm)
		if err != nil {
			return fmt.Errorf("create save dir: %w", err)
		}

		err = persist.NewPersister[checkpoint.Summary](summaryBasename, persist.NewJSONCodec()).Save(sc.saveDir, summary)
		if err != nil {
			return fmt.Errorf("save summary: %w", err)
		}
	}

	if textfile != nil {
		return textfile.Write(sc.metricsFile)
	}

	return nil
}

func writeHTML(path string, summary *checkpoint.Summary) error {
	err := os.MkdirAll(filepath.Dir(path), outputDirPerm)
	if err != nil {
		return fmt.Errorf("create html dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html file: %w", err)
	}

	err = report.WriteHTML(file, summary)
	if err != nil {
		file.Close()

		return err
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close html file: %w", err)
	}

	return nil
}
