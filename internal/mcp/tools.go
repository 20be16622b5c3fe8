package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/firmckpt/internal/checkpoint"
)

// ToolNameScan is the checkpoint scan tool.
const ToolNameScan = "checkpoint_scan"

// ErrDirNotAbsolute indicates the dir parameter is a relative path.
var ErrDirNotAbsolute = errors.New("dir must be an absolute path")

// ScanInput is the input schema for the checkpoint_scan tool.
type ScanInput struct {
	Dir     string `json:"dir,omitempty"     jsonschema:"absolute path of the checkpoint directory (default: the configured directory)"`
	Strict  bool   `json:"strict,omitempty"  jsonschema:"fail on the first corrupt checkpoint instead of skipping it"`
	Pattern string `json:"pattern,omitempty" jsonschema:"glob for checkpoint file names (default: *_checkpoint.pkl)"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleScan(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ScanInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	dir := input.Dir
	if dir == "" {
		dir = s.defaultDir
	}

	if !filepath.IsAbs(dir) {
		return errorResult(fmt.Errorf("%w: %q", ErrDirNotAbsolute, dir))
	}

	opts := s.scanOptions
	opts.Strict = opts.Strict || input.Strict

	if input.Pattern != "" {
		opts.Pattern = input.Pattern
	}

	scanner, err := checkpoint.NewScanner(opts)
	if err != nil {
		return errorResult(err)
	}

	summary, err := scanner.Scan(ctx, dir)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(summary)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
