package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

func runTestCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"test"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// copyScenario copies one scenario from the shared testdata into a temp dir.
func copyScenario(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join(scenariosDir, name+".yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0644))
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, err := runTestCommand(t, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := runTestCommand(t, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "--format", "json", t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandRunsScenarios(t *testing.T) {
	out, err := runTestCommand(t, scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ outbid_credits_escrow")
	assert.Contains(t, out, "✓ withdraw_at_most_once")
	assert.Contains(t, out, "0 failed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := runTestCommand(t, "--format", "json", "--filter", "finalize_*", scenariosDir)
	require.NoError(t, err, out)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	for _, s := range resp.Data.Scenarios {
		assert.Contains(t, []string{"finalize_gated", "finalize_without_bids"}, s.Name)
	}
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := runTestCommand(t, "--filter", "[", scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := copyScenario(t, "outbid_credits_escrow")
	golden := filepath.Join(dir, "golden", "outbid_credits_escrow.golden")

	out, err := runTestCommand(t, "--update", dir)
	require.NoError(t, err, out)
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"outbid_credits_escrow"`)

	out, err = runTestCommand(t, dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 passed")

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"outbid_credits_escrow","trace":[]}`), 0644))
	out, err = runTestCommand(t, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, WasReported(err))
	assert.Contains(t, out, "✗ outbid_credits_escrow")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong_expectation
description: "A zero bid is rejected, so expecting success fails"
steps:
  - action: create
    auction: a
    identity: alice
    duration: 1h
  - action: bid
    auction: a
    identity: bob
    amount: 0
assertions:
  - type: conservation
`), 0644))

	out, err := runTestCommand(t, "--format", "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTestFailed, resp.Error.Code)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("name: [unterminated"), 0644))

	out, err := runTestCommand(t, dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yml")
	assert.Contains(t, out, "failed to load scenario")
}
