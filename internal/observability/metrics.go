package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "firmckpt.requests.total"
	metricRequestDuration  = "firmckpt.request.duration.seconds"
	metricErrorsTotal      = "firmckpt.errors.total"
	metricInflightRequests = "firmckpt.inflight.requests"

	metricScanFiles    = "firmckpt.scan.files.total"
	metricScanCorrupt  = "firmckpt.scan.corrupt.total"
	metricScanBytes    = "firmckpt.scan.bytes.total"
	metricScanDuration = "firmckpt.scan.duration.seconds"
	metricStageFirms   = "firmckpt.stage.firms"

	attrOp     = "op"
	attrStatus = "status"
	attrStage  = "stage"

	// StatusOK marks a successful request.
	StatusOK = "ok"
	// StatusError marks a failed request.
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 60s. A scan decodes one small
// pickle per firm, so even large Drive folders finish within a minute.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// REDMetrics holds the OTel instruments for Rate, Error, Duration metrics.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &REDMetrics{
		requestsTotal:    b.counter(metricRequestsTotal, "Total number of requests", "{request}"),
		requestDuration:  b.histogram(metricRequestDuration, "Request duration in seconds", "s", durationBucketBoundaries...),
		errorsTotal:      b.counter(metricErrorsTotal, "Total number of errors", "{error}"),
		inflightRequests: b.upDownCounter(metricInflightRequests, "Number of in-flight requests", "{request}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRequest records a completed request with its operation, status, and duration.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// TrackInflight increments the in-flight counter and returns a function to decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	if rm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// ScanStats is the outcome of one directory scan.
type ScanStats struct {
	Files    int
	Corrupt  int
	Bytes    int64
	Duration time.Duration
	Stages   map[string]int
}

// ScanMetrics holds the instruments describing checkpoint scans.
type ScanMetrics struct {
	files      metric.Int64Counter
	corrupt    metric.Int64Counter
	bytes      metric.Int64Counter
	duration   metric.Float64Histogram
	stageFirms metric.Int64Gauge

	mu         sync.Mutex
	seenStages map[string]struct{}
}

// NewScanMetrics creates scan instruments from the given meter.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &ScanMetrics{
		files:      b.counter(metricScanFiles, "Checkpoint files matched by scans", "{file}"),
		corrupt:    b.counter(metricScanCorrupt, "Checkpoint files that failed to decode", "{file}"),
		bytes:      b.counter(metricScanBytes, "Bytes of checkpoint data read", "By"),
		duration:   b.histogram(metricScanDuration, "Scan duration in seconds", "s", durationBucketBoundaries...),
		stageFirms: b.gauge(metricStageFirms, "Firms whose latest checkpoint is at a stage", "{firm}"),
		seenStages: map[string]struct{}{},
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// RecordScan records one finished scan. Stages reported by an earlier scan
// but absent from this one drop to zero. A nil receiver is a no-op.
func (sm *ScanMetrics) RecordScan(ctx context.Context, st ScanStats) {
	if sm == nil {
		return
	}

	sm.files.Add(ctx, int64(st.Files))
	sm.corrupt.Add(ctx, int64(st.Corrupt))
	sm.bytes.Add(ctx, st.Bytes)
	sm.duration.Record(ctx, st.Duration.Seconds())

	sm.mu.Lock()
	defer sm.mu.Unlock()

	for stage := range sm.seenStages {
		if _, ok := st.Stages[stage]; !ok {
			sm.stageFirms.Record(ctx, 0, metric.WithAttributes(attribute.String(attrStage, stage)))
		}
	}

	for stage, n := range st.Stages {
		sm.seenStages[stage] = struct{}{}
		sm.stageFirms.Record(ctx, int64(n), metric.WithAttributes(attribute.String(attrStage, stage)))
	}
}
