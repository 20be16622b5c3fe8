package config

import "github.com/Sumatoshi-tech/firmckpt/internal/observability"

// ApplyToObservability merges config values into an observability config.
// Empty strings and zero ratios leave the existing value alone; booleans
// are only applied when true so flags already set by the caller survive.
func (c *Config) ApplyToObservability(obs *observability.Config) {
	o := c.Observability

	if o.OTLPEndpoint != "" {
		obs.OTLPEndpoint = o.OTLPEndpoint
	}

	if headers := observability.ParseOTLPHeaders(o.OTLPHeaders); headers != nil {
		obs.OTLPHeaders = headers
	}

	if o.Environment != "" {
		obs.Environment = o.Environment
	}

	if o.SampleRatio > 0 {
		obs.SampleRatio = o.SampleRatio
	}

	obs.OTLPInsecure = obs.OTLPInsecure || o.OTLPInsecure
	obs.DebugTrace = obs.DebugTrace || o.DebugTrace
	obs.LogJSON = obs.LogJSON || c.Logging.JSON

	if level, err := c.LogLevel(); err == nil {
		obs.LogLevel = level
	}
}
