package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/firmckpt/internal/observability"
	"github.com/Sumatoshi-tech/firmckpt/pkg/persist"
)

const tracerName = "firmckpt/checkpoint"

// Options configures a Scanner. Zero values pick the defaults.
type Options struct {
	// Pattern is the glob checkpoint file names must match. Empty means DefaultPattern.
	Pattern string

	// Strict aborts the scan on the first unreadable record instead of skipping it.
	Strict bool

	// MaxRecordSize rejects files larger than this many bytes. Zero or less means unlimited.
	MaxRecordSize int64

	// Registry picks a decoder by file extension. Nil means persist.DefaultRegistry.
	Registry *persist.Registry

	// Validator checks decoded payloads. Nil compiles the embedded schema.
	Validator *Validator

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.ScanMetrics
}

// Scanner reads a checkpoint directory. It holds no per-scan state and is
// safe for concurrent use.
type Scanner struct {
	pattern       string
	strict        bool
	maxRecordSize int64
	registry      *persist.Registry
	validator     *Validator
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *observability.ScanMetrics
}

// NewScanner validates opts and builds a Scanner.
func NewScanner(opts Options) (*Scanner, error) {
	sc := &Scanner{
		pattern:       opts.Pattern,
		strict:        opts.Strict,
		maxRecordSize: opts.MaxRecordSize,
		registry:      opts.Registry,
		validator:     opts.Validator,
		logger:        opts.Logger,
		tracer:        opts.Tracer,
		metrics:       opts.Metrics,
	}

	if sc.pattern == "" {
		sc.pattern = DefaultPattern
	}

	if _, err := filepath.Match(sc.pattern, ""); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, sc.pattern)
	}

	if sc.registry == nil {
		sc.registry = persist.DefaultRegistry()
	}

	if sc.validator == nil {
		v, err := NewValidator()
		if err != nil {
			return nil, err
		}

		sc.validator = v
	}

	if sc.logger == nil {
		sc.logger = slog.Default()
	}

	if sc.tracer == nil {
		sc.tracer = otel.Tracer(tracerName)
	}

	return sc, nil
}

// Files lists the regular files in dir whose names match the pattern, in
// file-name order.
func (sc *Scanner) Files(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDirectoryNotFound, dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDirectoryNotFound, dir, err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// The pattern was checked in NewScanner, so Match cannot fail here.
		if ok, _ := filepath.Match(sc.pattern, entry.Name()); ok {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// Records lists dir and returns a sequence that decodes one file per step.
// Each step yields either a record or a *RecordError. The sequence stops
// early with ctx.Err() once ctx is done.
func (sc *Scanner) Records(ctx context.Context, dir string) (iter.Seq2[Record, error], error) {
	files, err := sc.Files(dir)
	if err != nil {
		return nil, err
	}

	return func(yield func(Record, error) bool) {
		for _, path := range files {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(Record{}, ctxErr)

				return
			}

			rec, readErr := sc.ReadRecord(path)
			if readErr != nil {
				if !yield(Record{Path: path}, readErr) {
					return
				}

				continue
			}

			if !yield(rec, nil) {
				return
			}
		}
	}, nil
}

// ReadRecord decodes and validates a single checkpoint file.
// Failures are returned as *RecordError.
func (sc *Scanner) ReadRecord(path string) (Record, error) {
	rec := Record{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return rec, &RecordError{Path: path, Err: err}
	}

	rec.Size = info.Size()

	if sc.maxRecordSize > 0 && rec.Size > sc.maxRecordSize {
		return rec, &RecordError{
			Path: path,
			Err:  fmt.Errorf("%w: %d > %d bytes", ErrRecordTooLarge, rec.Size, sc.maxRecordSize),
		}
	}

	decoder, ok := sc.registry.Lookup(filepath.Base(path))
	if !ok {
		return rec, &RecordError{Path: path, Err: fmt.Errorf("%w: %s", ErrNoDecoder, filepath.Base(path))}
	}

	var doc any

	err = persist.DecodeFile(path, decoder, &doc)
	if err != nil {
		return rec, &RecordError{Path: path, Err: err}
	}

	fields, err := sc.validator.Validate(doc)
	if err != nil {
		return rec, &RecordError{Path: path, Err: err}
	}

	resolve(fields, &rec)

	return rec, nil
}

// Scan reads every matching checkpoint in dir and returns the stage summary.
// An empty dir means DefaultDir.
func (sc *Scanner) Scan(ctx context.Context, dir string) (*Summary, error) {
	if dir == "" {
		dir = DefaultDir
	}

	start := time.Now()

	ctx, span := sc.tracer.Start(ctx, "firmckpt.scan",
		trace.WithAttributes(
			attribute.String("scan.dir", dir),
			attribute.String("scan.pattern", sc.pattern),
			attribute.Bool("scan.strict", sc.strict),
		))
	defer span.End()

	records, err := sc.Records(ctx, dir)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeNotFound)

		return nil, err
	}

	agg := NewAggregator(dir)
	files := 0

	for rec, recErr := range records {
		if recErr != nil {
			var rerr *RecordError
			if !errors.As(recErr, &rerr) {
				observability.RecordSpanError(span, recErr, observability.ErrTypeCanceled)

				return nil, recErr
			}

			files++

			if sc.strict {
				observability.RecordSpanError(span, recErr, observability.ErrTypeCorrupt)

				return nil, recErr
			}

			sc.logger.WarnContext(ctx, "skipping corrupt checkpoint", "path", rerr.Path, "error", rerr.Err)
			agg.AddCorrupt(rerr.Path, rerr.Err)

			continue
		}

		files++

		agg.Add(rec)
	}

	summary := agg.Summary()

	span.SetAttributes(
		attribute.Int("scan.files", files),
		attribute.Int("scan.total", summary.Total),
		attribute.Int("scan.corrupt", summary.Corrupt),
	)

	sc.metrics.RecordScan(ctx, observability.ScanStats{
		Files:    files,
		Corrupt:  summary.Corrupt,
		Bytes:    summary.Bytes,
		Duration: time.Since(start),
		Stages:   summary.Counts,
	})

	sc.logger.DebugContext(ctx, "scan complete",
		"dir", dir, "files", files, "total", summary.Total, "corrupt", summary.Corrupt)

	return summary, nil
}

// Scan is a convenience wrapper that scans dir with default lenient options.
func Scan(ctx context.Context, dir string) (*Summary, error) {
	sc, err := NewScanner(Options{})
	if err != nil {
		return nil, err
	}

	return sc.Scan(ctx, dir)
}
