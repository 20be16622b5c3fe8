package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/firmckpt/cmd/firmckpt/commands"
	"github.com/Sumatoshi-tech/firmckpt/internal/checkpoint"
	"github.com/Sumatoshi-tech/firmckpt/pkg/persist/persisttest"
)

// execute runs the root command with an empty config file so the result
// does not depend on files in the working or home directory.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "firmckpt.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("report:\n  format: text\n"), 0o600))

	var stdout, stderr bytes.Buffer

	cmd := commands.NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func checkpointDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	persisttest.WritePickle(t, dir, "a_checkpoint.pkl", "embeddings", "Acme")
	persisttest.WritePickle(t, dir, "b_checkpoint.pkl", "topic_modeling", "Globex")
	persisttest.WritePickle(t, dir, "c_checkpoint.pkl", "topic_modeling", "Initech")

	return dir
}

func TestScanCommand_Text(t *testing.T) {
	dir := checkpointDir(t)

	out, _, err := execute(t, "scan", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Total checkpoints: 3")
	assert.Contains(t, out, "topic_modeling")
	assert.Contains(t, out, "embeddings")
	assert.NotContains(t, out, "Globex")
}

func TestScanCommand_FirmsFlag(t *testing.T) {
	dir := checkpointDir(t)

	out, _, err := execute(t, "scan", dir, "--firms")
	require.NoError(t, err)

	assert.Contains(t, out, "Globex, Initech")
}

func TestScanCommand_JSON(t *testing.T) {
	dir := checkpointDir(t)

	out, _, err := execute(t, "scan", dir, "--format", "json")
	require.NoError(t, err)

	var summary checkpoint.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, map[string]int{"embeddings": 1, "topic_modeling": 2}, summary.Counts)
}

func TestScanCommand_YAML(t *testing.T) {
	dir := checkpointDir(t)

	out, _, err := execute(t, "scan", dir, "-f", "yaml")
	require.NoError(t, err)

	var summary checkpoint.Summary
	require.NoError(t, yaml.Unmarshal([]byte(out), &summary))

	assert.Equal(t, dir, summary.Dir)
	assert.Equal(t, 2, summary.Counts["topic_modeling"])
}

func TestScanCommand_InvalidFormat(t *testing.T) {
	_, _, err := execute(t, "scan", t.TempDir(), "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.format")
}

func TestScanCommand_MissingDirectory(t *testing.T) {
	_, _, err := execute(t, "scan", filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, checkpoint.ErrDirectoryNotFound)
	assert.Contains(t, err.Error(), "checkpoint directory not found")
}

func TestScanCommand_LenientSkipsCorrupt(t *testing.T) {
	dir := checkpointDir(t)
	persisttest.WriteFile(t, dir, "d_checkpoint.pkl", []byte("\x80\x02}q"))

	out, stderr, err := execute(t, "scan", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Total checkpoints: 3")
	assert.Contains(t, out, "Skipped 1 corrupt checkpoint(s)")
	assert.Contains(t, stderr, "skipping corrupt checkpoint")
}

func TestScanCommand_QuietKeepsReportDropsWarnings(t *testing.T) {
	dir := checkpointDir(t)
	persisttest.WriteFile(t, dir, "d_checkpoint.pkl", []byte("\x80\x02}q"))

	out, stderr, err := execute(t, "--quiet", "scan", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Total checkpoints: 3")
	assert.Contains(t, out, "Skipped 1 corrupt checkpoint(s)")
	assert.NotContains(t, stderr, "skipping corrupt checkpoint")
}

func TestScanCommand_StrictFails(t *testing.T) {
	dir := checkpointDir(t)
	persisttest.WriteFile(t, dir, "d_checkpoint.pkl", []byte("\x80\x02}q"))

	_, _, err := execute(t, "scan", dir, "--strict")
	require.ErrorIs(t, err, checkpoint.ErrRecordCorrupt)
	assert.Contains(t, err.Error(), "d_checkpoint.pkl")
}

func TestScanCommand_Pattern(t *testing.T) {
	dir := checkpointDir(t)

	out, _, err := execute(t, "scan", dir, "--pattern", "b_*")
	require.NoError(t, err)

	assert.Contains(t, out, "Total checkpoints: 1")
}

func TestScanCommand_Artifacts(t *testing.T) {
	dir := checkpointDir(t)
	outDir := t.TempDir()
	htmlPath := filepath.Join(outDir, "chart", "stages.html")
	saveDir := filepath.Join(outDir, "saved")
	promPath := filepath.Join(outDir, "firmckpt.prom")

	_, _, err := execute(t, "scan", dir,
		"--html", htmlPath, "--save", saveDir, "--metrics-file", promPath)
	require.NoError(t, err)

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Firms per pipeline stage")

	raw, err := os.ReadFile(filepath.Join(saveDir, "summary.json"))
	require.NoError(t, err)

	var saved checkpoint.Summary
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, 3, saved.Total)

	prom, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "firmckpt_scan_files")
	assert.Contains(t, string(prom), `stage="topic_modeling"`)
}

func TestScanCommand_VerboseLogsScanComplete(t *testing.T) {
	dir := checkpointDir(t)

	_, stderr, err := execute(t, "-v", "--log-json", "scan", dir)
	require.NoError(t, err)

	assert.Contains(t, stderr, `"msg":"scan complete"`)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "firmckpt ")
	assert.Contains(t, out, "commit:")
}

func TestMCPCommand_Flags(t *testing.T) {
	cmd := commands.NewMCPCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	flag := cmd.Flags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestRootCommand_Subcommands(t *testing.T) {
	var names []string

	for _, sub := range commands.NewRootCommand().Commands() {
		names = append(names, sub.Name())
	}

	assert.Subset(t, names, []string{"scan", "mcp", "version"})
}
