package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	startTime     = 1700000000
	week          = 604800
	aliceHex      = "0x0000000000000000000000000000000000000a01"
	bobHex        = "0x0000000000000000000000000000000000000b0b"
	governorHex   = "0x000000000000000000000000000000000000000C"
	registryHex   = "0x0000000000000000000000000000000000000070"
	controllerHex = "0x00000000000000000000000000000000000000C1"
)

// checksum is the form commands print addresses in.
func checksum(s string) string {
	return common.HexToAddress(s).Hex()
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// cliEnv runs commands against one temporary database at a settable clock.
type cliEnv struct {
	t   *testing.T
	db  string
	now uint64
}

func newEnv(t *testing.T) *cliEnv {
	return &cliEnv{t: t, db: filepath.Join(t.TempDir(), "test.db"), now: startTime}
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	base := []string{"--db", e.db, "--now", fmt.Sprint(e.now), "--format", "json"}
	return execute(e.t, append(base, args...)...)
}

// ok runs a command that must succeed and returns its data object.
func (e *cliEnv) ok(args ...string) map[string]any {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "%v: %s", args, out)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(e.t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(e.t, "ok", resp.Status)
	return resp.Data
}

// reject runs a command that must be rejected and returns the error code.
func (e *cliEnv) reject(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.Error(e.t, err, "%v should fail", args)

	var exitErr *ExitError
	require.True(e.t, errors.As(err, &exitErr))
	require.Equal(e.t, ExitFailure, exitErr.Code, err.Error())
	require.True(e.t, exitErr.Reported)

	var resp CLIResponse
	require.NoError(e.t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(e.t, "error", resp.Status)
	require.NotNil(e.t, resp.Error)
	return resp.Error.Code
}
