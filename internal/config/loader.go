package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/firmckpt/internal/checkpoint"
)

// configName is the config file name without extension.
const configName = ".firmckpt"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for firmckpt settings.
const envPrefix = "FIRMCKPT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// pipelineDirEnv is the variable the processing pipeline itself reads.
const pipelineDirEnv = "checkpoint_dir"

// Default values.
const (
	DefaultMaxRecordSize = "0"
	DefaultFormat        = FormatText
	DefaultLogLevel      = "info"
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	// FIRMCKPT_CHECKPOINT_DIR wins over the pipeline's own variable.
	bindErr := viperCfg.BindEnv("checkpoint.dir", envPrefix+envKeySeparator+"CHECKPOINT_DIR", pipelineDirEnv)
	if bindErr != nil {
		return nil, fmt.Errorf("bind env: %w", bindErr)
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("checkpoint.dir", checkpoint.DefaultDir)
	viperCfg.SetDefault("checkpoint.pattern", checkpoint.DefaultPattern)
	viperCfg.SetDefault("checkpoint.strict", false)
	viperCfg.SetDefault("checkpoint.max_record_size", DefaultMaxRecordSize)

	viperCfg.SetDefault("report.format", DefaultFormat)
	viperCfg.SetDefault("report.show_firms", false)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.sample_ratio", 0.0)
	viperCfg.SetDefault("observability.debug_trace", false)
}
