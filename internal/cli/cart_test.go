package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartsync/internal/config"
)

// cartEnv runs commands against a private SQLite database and session file.
type cartEnv struct {
	t   *testing.T
	dir string
}

func newCartEnv(t *testing.T) *cartEnv {
	t.Helper()
	for _, key := range []string{config.EnvBackend, config.EnvDatabase, config.EnvSession, config.EnvProjectID} {
		t.Setenv(key, "")
	}
	return &cartEnv{t: t, dir: t.TempDir()}
}

func (e *cartEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	base := []string{
		"--db", filepath.Join(e.dir, "cart.db"),
		"--session", filepath.Join(e.dir, "session.yaml"),
		"--env-file", filepath.Join(e.dir, "missing.env"),
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cartEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, stderr, err := e.run(args...)
	require.NoError(e.t, err, "stdout: %s\nstderr: %s", out, stderr)
	return out
}

type cartResponse struct {
	Status string    `json:"status"`
	Data   CartView  `json:"data"`
	Error  *CLIError `json:"error"`
}

func decodeCart(t *testing.T, out string) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestShowSignedOut(t *testing.T) {
	env := newCartEnv(t)

	out := env.mustRun("show")
	assert.Contains(t, out, "Signed out")
	assert.Contains(t, out, "(empty)")
	assert.Contains(t, out, "Total: 0.00 (0 items)")
}

func TestAddCreatesAnonymousCart(t *testing.T) {
	env := newCartEnv(t)

	out := env.mustRun("add", "apple", "--name", "Apple", "--price", "1.50")
	assert.Contains(t, out, "Apple added to cart!")
	assert.Contains(t, out, "(anonymous)")
	assert.Contains(t, out, "Total: 1.50 (1 item)")

	// The session and the cart outlive the process.
	out = env.mustRun("--format", "json", "show")
	resp := decodeCart(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Anonymous)
	assert.NotEmpty(t, resp.Data.Identity)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "apple", resp.Data.Items[0].ProductID)
	assert.Equal(t, 1, resp.Data.Items[0].Quantity)
	assert.Equal(t, "1.50", resp.Data.Total)
	assert.Nil(t, resp.Data.Applied)
}

func TestIncrementAndDecrement(t *testing.T) {
	env := newCartEnv(t)
	env.mustRun("add", "apple", "--name", "Apple", "--price", "1.50")

	resp := decodeCart(t, env.mustRun("--format", "json", "inc", "apple"))
	require.NotNil(t, resp.Data.Applied)
	assert.True(t, *resp.Data.Applied)
	assert.Equal(t, 2, resp.Data.Count)
	assert.Equal(t, "3.00", resp.Data.Total)
	assert.Equal(t, "Increased Apple quantity", resp.Data.Toast)

	env.mustRun("dec", "apple")
	out := env.mustRun("dec", "apple")
	assert.Contains(t, out, "Apple removed from cart")
	assert.Contains(t, out, "(empty)")
}

func TestRemoveAndClear(t *testing.T) {
	env := newCartEnv(t)
	env.mustRun("add", "apple", "--name", "Apple", "--price", "1.50")
	env.mustRun("add", "pear", "--name", "Pear", "--price", "2.00")

	resp := decodeCart(t, env.mustRun("--format", "json", "remove", "apple"))
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "pear", resp.Data.Items[0].ProductID)

	resp = decodeCart(t, env.mustRun("--format", "json", "clear"))
	assert.Empty(t, resp.Data.Items)
	assert.Equal(t, "0.00", resp.Data.Total)
}

func TestItemCommandRequiresLineItem(t *testing.T) {
	env := newCartEnv(t)

	out, _, err := env.run("inc", "apple")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `product "apple" is not in the cart`)
}

func TestAddRejectsBadInput(t *testing.T) {
	env := newCartEnv(t)

	_, _, err := env.run("add", "apple", "--price", "cheap")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err := env.run("--format", "json", "add", "  ", "--price", "1.00")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decodeCart(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PRECONDITION_FAILED", resp.Error.Code)
}

func TestLoginSwitchesCart(t *testing.T) {
	env := newCartEnv(t)

	out := env.mustRun("login", "alice")
	assert.Contains(t, out, "Cart of alice")
	assert.NotContains(t, out, "anonymous")

	env.mustRun("add", "apple", "--name", "Apple", "--price", "1.50")

	out = env.mustRun("logout")
	assert.Contains(t, out, "Signed out")
	assert.Contains(t, out, "(empty)")

	// Signing back in restores the stored cart.
	resp := decodeCart(t, env.mustRun("--format", "json", "login", "alice"))
	assert.Equal(t, "alice", resp.Data.Identity)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "apple", resp.Data.Items[0].ProductID)
}

func TestLoginRejectsEmptyCredential(t *testing.T) {
	env := newCartEnv(t)

	_, _, err := env.run("login", " ")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidBackend(t *testing.T) {
	env := newCartEnv(t)

	_, _, err := env.run("--backend", "postgres", "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestVerboseLogsToStderr(t *testing.T) {
	env := newCartEnv(t)

	out, stderr, err := env.run("-v", "--format", "json", "login", "alice")
	require.NoError(t, err)
	assert.Contains(t, stderr, "signed in")
	decodeCart(t, out)
}
