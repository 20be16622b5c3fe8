// Package config loads firmckpt settings from defaults, an optional YAML
// file, and FIRMCKPT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/firmckpt/pkg/safeconv"
)

// Config is the top-level configuration struct for firmckpt.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Checkpoint    CheckpointConfig    `mapstructure:"checkpoint"`
	Report        ReportConfig        `mapstructure:"report"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// CheckpointConfig selects which checkpoints are read and how errors are treated.
type CheckpointConfig struct {
	Dir           string `mapstructure:"dir"`
	Pattern       string `mapstructure:"pattern"`
	Strict        bool   `mapstructure:"strict"`
	MaxRecordSize string `mapstructure:"max_record_size"`
}

// ReportConfig holds presentation settings.
type ReportConfig struct {
	Format    string `mapstructure:"format"`
	ShowFirms bool   `mapstructure:"show_firms"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig holds OTLP export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
}

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the accepted report formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidFormat indicates report.format is not a known format.
	ErrInvalidFormat = errors.New("report.format must be text, json, or yaml")
	// ErrInvalidPattern indicates checkpoint.pattern is not a valid glob.
	ErrInvalidPattern = errors.New("checkpoint.pattern must be a valid glob")
	// ErrInvalidRecordSize indicates checkpoint.max_record_size cannot be parsed.
	ErrInvalidRecordSize = errors.New("checkpoint.max_record_size must be a byte size such as 64MB")
	// ErrInvalidLogLevel indicates logging.level is not a slog level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn, or error")
	// ErrInvalidSampleRatio indicates the sample ratio is out of range.
	ErrInvalidSampleRatio = errors.New("observability.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Report.Format != "" && !slices.Contains(Formats, c.Report.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Report.Format)
	}

	if _, err := filepath.Match(c.Checkpoint.Pattern, ""); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPattern, c.Checkpoint.Pattern)
	}

	if _, err := c.MaxRecordBytes(); err != nil {
		return err
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

// MaxRecordBytes parses checkpoint.max_record_size. Empty or "0" means unlimited.
func (c *Config) MaxRecordBytes() (int64, error) {
	if c.Checkpoint.MaxRecordSize == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(c.Checkpoint.MaxRecordSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRecordSize, c.Checkpoint.MaxRecordSize)
	}

	size, err := safeconv.Uint64ToInt64(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRecordSize, c.Checkpoint.MaxRecordSize)
	}

	return size, nil
}

// LogLevel parses logging.level. Empty means info.
func (c *Config) LogLevel() (slog.Level, error) {
	if c.Logging.Level == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level

	err := level.UnmarshalText([]byte(c.Logging.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}
