package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/testutil"
)

// cliEnv runs commands against one temp database with a frozen clock and
// sequential ids shared across invocations.
type cliEnv struct {
	t      *testing.T
	dir    string
	db     string
	config string
	clock  *testutil.ManualClock
	ids    *testutil.SequenceGenerator
}

func newCLIEnv(t *testing.T, today string) *cliEnv {
	t.Helper()
	t.Setenv("DEPLOYFIN_SYNC_ENDPOINT", "")

	dir := t.TempDir()
	return &cliEnv{
		t:      t,
		dir:    dir,
		db:     filepath.Join(dir, "state.db"),
		config: filepath.Join(dir, "config.toml"),
		clock:  testutil.NewManualClock(datemath.MustDate(today)),
		ids:    testutil.NewSequenceGenerator("id"),
	}
}

// run executes one command line and returns stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()

	cmd := newRootCommand(&RootOptions{Clock: e.clock, IDs: e.ids})
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--db", e.db, "--config", e.config}, args...))

	err := cmd.Execute()
	return out.String(), err
}

// mustRun executes a command that must succeed.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "deployfin %v\n%s", args, out)
	return out
}

// runJSON executes a command with --format json and decodes the response.
func (e *cliEnv) runJSON(args ...string) (CLIResponse, error) {
	e.t.Helper()
	out, err := e.run(append([]string{"--format", "json"}, args...)...)

	var resp CLIResponse
	require.NoError(e.t, json.Unmarshal([]byte(out), &resp), "decoding %q", out)
	return resp, err
}

// data decodes a successful JSON response's data object.
func (e *cliEnv) data(args ...string) map[string]any {
	e.t.Helper()
	resp, err := e.runJSON(args...)
	require.NoError(e.t, err)
	require.Equal(e.t, "ok", resp.Status)

	m, ok := resp.Data.(map[string]any)
	require.True(e.t, ok, "data is %T", resp.Data)
	return m
}

func assertAmount(t *testing.T, want string, got any) {
	t.Helper()
	s, ok := got.(string)
	require.True(t, ok, "amount is %T (%v)", got, got)
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString(want).Equal(d), "want %s, got %s", want, s)
}
