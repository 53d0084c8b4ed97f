package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/gavel/internal/testutil"
)

// cliEnv runs commands against one temp database with a shared fake clock
// and sequential auction ids, so ids are auction-1, auction-2, ...
type cliEnv struct {
	t      *testing.T
	db     string
	clock  *testutil.FakeClock
	ids    *testutil.SequentialIDs
	config string
	stderr bytes.Buffer
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	return &cliEnv{
		t:     t,
		db:    filepath.Join(t.TempDir(), "gavel.db"),
		clock: testutil.NewFakeClock(),
		ids:   testutil.NewSequentialIDs("auction"),
	}
}

// run executes one gavel invocation and returns its stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	opts := &RootOptions{Clock: e.clock, IDs: e.ids}
	cmd := newRootCommand(opts)

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&e.stderr)

	full := []string{"--db", e.db}
	if e.config != "" {
		full = append(full, "--config", e.config)
	}
	cmd.SetArgs(append(full, args...))

	err := cmd.Execute()
	return buf.String(), err
}

// jsonResponse mirrors CLIResponse with a raw payload.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// runJSON executes args with --format json and decodes the response.
func (e *cliEnv) runJSON(args ...string) (jsonResponse, error) {
	e.t.Helper()
	out, err := e.run(append([]string{"--format", "json"}, args...)...)
	var resp jsonResponse
	require.NoError(e.t, json.Unmarshal([]byte(out), &resp), "stdout: %s", out)
	return resp, err
}

// mustJSON runs args, requires success, and decodes the payload into v.
func (e *cliEnv) mustJSON(v any, args ...string) {
	e.t.Helper()
	resp, err := e.runJSON(args...)
	require.NoError(e.t, err)
	require.Equal(e.t, "ok", resp.Status)
	if v != nil {
		require.NoError(e.t, json.Unmarshal(resp.Data, v))
	}
}

// rejected runs args and requires a reported failure with code and exit.
func (e *cliEnv) rejected(code string, exit int, args ...string) {
	e.t.Helper()
	resp, err := e.runJSON(args...)
	require.Error(e.t, err)
	require.Equal(e.t, exit, GetExitCode(err))
	require.True(e.t, WasReported(err))
	require.Equal(e.t, "error", resp.Status)
	require.NotNil(e.t, resp.Error)
	require.Equal(e.t, code, resp.Error.Code, resp.Error.Message)
}
