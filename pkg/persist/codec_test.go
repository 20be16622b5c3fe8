package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testState mirrors a summary snapshot for round-trip codec testing.
type testState struct {
	Dir    string         `json:"dir"`
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	original := testState{
		Dir:    "/tmp/ckpt",
		Total:  42,
		Counts: map[string]int{"embeddings": 1, "topic_modeling": 2},
	}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testState

	require.NoError(t, codec.Decode(&buf, &decoded))

	assert.Equal(t, original, decoded)
}

func TestJSONCodec_Extension(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	assert.Equal(t, ".json", codec.Extension())
}

func TestJSONCodec_CompactNoIndent(t *testing.T) {
	t.Parallel()

	codec := &JSONCodec{Indent: ""}

	state := testState{Dir: "/tmp/compact", Total: 1}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, state))

	// json.Encoder adds one trailing newline.
	assert.LessOrEqual(t, strings.Count(buf.String(), "\n"), 1)
}

func TestJSONCodec_PrettyPrint(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	state := testState{Dir: "/tmp/pretty", Total: 1}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, state))

	assert.Contains(t, buf.String(), defaultIndent)
}

func TestJSONCodec_DecodeError(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	var decoded testState

	err := codec.Decode(strings.NewReader("not valid json{{{"), &decoded)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "json decode")
}

func TestJSONCodec_EncodeError(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	var buf bytes.Buffer

	// Channels cannot be JSON-encoded.
	err := codec.Encode(&buf, make(chan int))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "json encode")
}

func TestSaveState_JSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := NewJSONCodec()

	state := testState{Dir: "/tmp/save", Total: 99}

	require.NoError(t, SaveState(dir, "summary", codec, state))

	_, err := os.Stat(filepath.Join(dir, "summary.json"))

	assert.NoError(t, err)
}

func TestLoadState_JSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := NewJSONCodec()

	original := testState{Dir: "/tmp/load", Total: 77, Counts: map[string]int{"validation": 5}}

	require.NoError(t, SaveState(dir, "summary", codec, original))

	var loaded testState

	require.NoError(t, LoadState(dir, "summary", codec, &loaded))

	assert.Equal(t, original.Dir, loaded.Dir)
	assert.Equal(t, original.Total, loaded.Total)
	assert.Equal(t, original.Counts, loaded.Counts)
}

func TestDecodeFile_JSONCheckpoint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "acme_checkpoint.json")

	require.NoError(t, os.WriteFile(path,
		[]byte(`{"stage": "validation", "firm_name": "Acme", "processed_batches": 3}`), 0o600))

	var doc any

	require.NoError(t, DecodeFile(path, NewJSONCodec(), &doc))

	record, ok := doc.(map[string]any)
	require.True(t, ok, "got %T", doc)
	assert.Equal(t, "validation", record["stage"])
	assert.Equal(t, "Acme", record["firm_name"])
}

func TestLoadState_FileNotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := NewJSONCodec()

	var state testState

	err := LoadState(dir, "nonexistent", codec, &state)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}

func TestSaveState_InvalidDirectory(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()
	state := testState{Dir: "/tmp/ckpt"}

	err := SaveState("/nonexistent/path/that/does/not/exist", "summary", codec, state)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}

func TestSaveState_EncodeError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := NewJSONCodec()

	// Channels cannot be JSON-encoded.
	err := SaveState(dir, "bad", codec, make(chan int))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode")
}

func TestLoadState_DecodeError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("not json{{{"), 0o600))

	codec := NewJSONCodec()

	var state testState

	err := LoadState(dir, "corrupt", codec, &state)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
