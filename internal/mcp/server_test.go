package mcp_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/firmckpt/internal/checkpoint"
	"github.com/Sumatoshi-tech/firmckpt/internal/mcp"
	"github.com/Sumatoshi-tech/firmckpt/internal/observability"
	"github.com/Sumatoshi-tech/firmckpt/pkg/persist/persisttest"
)

func TestNewServer_ToolsRegistered(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	require.NotNil(t, srv)

	assert.Equal(t, []string{"checkpoint_scan"}, srv.ListToolNames())
}

func TestServer_Run_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Run(ctx)
	require.Error(t, err)
}

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) (context.Context, *mcpsdk.ClientSession) {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return ctx, session
}

func textOf(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])

	return text.Text
}

func TestScanTool_ListsInputSchema(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)

	assert.Equal(t, "checkpoint_scan", tools.Tools[0].Name)
	assert.NotNil(t, tools.Tools[0].InputSchema)
}

func TestScanTool_ReturnsSummary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	persisttest.WritePickle(t, dir, "a_checkpoint.pkl", "embedding", "Acme")
	persisttest.WritePickle(t, dir, "b_checkpoint.pkl", "topic_modeling", "Globex")
	persisttest.WritePickle(t, dir, "c_checkpoint.pkl", "topic_modeling", "Initech")

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameScan,
		Arguments: map[string]any{"dir": dir},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	var summary checkpoint.Summary
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &summary))

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, map[string]int{"embedding": 1, "topic_modeling": 2}, summary.Counts)
	assert.Equal(t, []string{"Globex", "Initech"}, summary.Firms["topic_modeling"])
}

func TestScanTool_DefaultDirAndStrictOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	persisttest.WritePickle(t, dir, "a_checkpoint.pkl", "embeddings", "Acme")
	persisttest.WriteFile(t, dir, "b_checkpoint.pkl", []byte("broken"))

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{DefaultDir: dir}))

	lenient, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameScan,
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.False(t, lenient.IsError)
	assert.Contains(t, textOf(t, lenient), `"corrupt": 1`)

	strict, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameScan,
		Arguments: map[string]any{"strict": true},
	})
	require.NoError(t, err)
	assert.True(t, strict.IsError)
	assert.Contains(t, textOf(t, strict), "b_checkpoint.pkl")
}

func TestScanTool_MissingDirectory(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameScan,
		Arguments: map[string]any{"dir": filepath.Join(t.TempDir(), "gone")},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "checkpoint directory not found")
}

func TestScanTool_RejectsRelativeDir(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameScan,
		Arguments: map[string]any{"dir": "checkpoints"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "absolute path")
}

func TestScanTool_TracingAndMetrics(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	persisttest.WritePickle(t, dir, "a_checkpoint.pkl", "embeddings", "Acme")

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	srv := mcp.NewServer(mcp.ServerDeps{Tracer: tp.Tracer("test"), Metrics: red})
	ctx, session := connect(t, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameScan,
		Arguments: map[string]any{"dir": dir},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	last, ok := result.Content[len(result.Content)-1].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, last.Text, "trace_id=")

	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}

	assert.Contains(t, names, "mcp.checkpoint_scan")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := false

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == "firmckpt.requests.total" {
				found = true
			}
		}
	}

	assert.True(t, found)
}

func TestNewServer_CompilesValidatorOnce(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	require.NotNil(t, srv.ScanValidator())

	custom, err := checkpoint.NewValidatorFromBytes([]byte(`{"type":"object","required":["stage"]}`))
	require.NoError(t, err)

	injected := mcp.NewServer(mcp.ServerDeps{ScanOptions: checkpoint.Options{Validator: custom}})
	assert.Same(t, custom, injected.ScanValidator())
}

func TestScanTool_UsesSharedValidator(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	persisttest.WritePickle(t, dir, "a_checkpoint.pkl", "embeddings", "Acme")
	persisttest.WritePickle(t, dir, "b_checkpoint.pkl", "", "Globex")

	custom, err := checkpoint.NewValidatorFromBytes([]byte(`{"type":"object","required":["stage"]}`))
	require.NoError(t, err)

	srv := mcp.NewServer(mcp.ServerDeps{
		DefaultDir:  dir,
		ScanOptions: checkpoint.Options{Validator: custom},
	})
	ctx, session := connect(t, srv)

	for range 2 {
		result, callErr := session.CallTool(ctx, &mcpsdk.CallToolParams{
			Name:      mcp.ToolNameScan,
			Arguments: map[string]any{},
		})
		require.NoError(t, callErr)
		require.False(t, result.IsError)

		var summary checkpoint.Summary
		require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &summary))
		assert.Equal(t, 1, summary.Total)
		assert.Equal(t, 1, summary.Corrupt)
	}
}
