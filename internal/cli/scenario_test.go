package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestScenarioCommandRunsHarnessScenarios(t *testing.T) {
	out, err := execute(t, "scenario", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ small-holder")
	assert.Contains(t, out, "Summary: 6 passed, 0 failed, 6 total")
	assert.NotContains(t, out, "no golden file")
}

func TestScenarioCommandJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "scenario", harnessScenarios, "--filter", "light-*")
	require.NoError(t, err, out)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "light-anchor", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)
}

const failingScenario = `name: wrong-amount
description: Expects the wrong balance
start: 1700000000
actors:
  alice: "0x0000000000000000000000000000000000000a01"
steps:
  - {op: fund, account: alice, amount: "100"}
assertions:
  - {type: balance, account: alice, amount: "99"}
`

func TestScenarioCommandFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wrong-amount.yaml")
	require.NoError(t, os.WriteFile(path, []byte(failingScenario), 0644))

	out, err := execute(t, "scenario", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Reported)

	assert.Contains(t, out, "✗ wrong-amount (no golden file)")
	assert.Contains(t, out, "balance = 99")
	assert.Contains(t, out, "Summary: 0 passed, 1 failed, 1 total")
}

func TestScenarioCommandUpdateWritesGolden(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))

	src, err := os.ReadFile(filepath.Join(harnessScenarios, "small-holder.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "small-holder.yaml"), src, 0644))

	out, err := execute(t, "scenario", scenarios, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "(golden updated)")

	got, err := os.ReadFile(filepath.Join(root, "golden", "small-holder.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/small-holder.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	// A second run compares against what was written.
	out, err = execute(t, "scenario", scenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ small-holder\n")
}

func TestScenarioCommandGoldenMismatch(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	golden := filepath.Join(root, "golden")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	require.NoError(t, os.MkdirAll(golden, 0755))

	src, err := os.ReadFile(filepath.Join(harnessScenarios, "small-holder.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "small-holder.yaml"), src, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(golden, "small-holder.golden"), []byte("stale\n"), 0644))

	out, err := execute(t, "scenario", scenarios)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestScenarioCommandBadInput(t *testing.T) {
	_, err := execute(t, "scenario", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\nbogus: 1\n"), 0644))
	out, err := execute(t, "scenario", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed to load scenario")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "c.txt", "light-x.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = findScenarioFiles(dir, "light-*")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "light-x.yaml", filepath.Base(files[0]))

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}
