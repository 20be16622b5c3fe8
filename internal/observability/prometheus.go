package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Textfile collects OTel metrics into a private Prometheus registry so a
// one-shot CLI run can leave them behind for the node_exporter textfile
// collector.
type Textfile struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// NewTextfile creates a Prometheus-backed meter provider. Each call uses an
// independent registry.
func NewTextfile() (*Textfile, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
		promexporter.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &Textfile{
		registry: registry,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
	}, nil
}

// Meter returns a meter whose instruments land in the textfile.
func (tf *Textfile) Meter() metric.Meter {
	return tf.provider.Meter(scopeName)
}

// Write gathers the registry and atomically writes it to path.
func (tf *Textfile) Write(path string) error {
	err := prometheus.WriteToTextfile(path, tf.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}

	return nil
}
