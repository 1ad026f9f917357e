package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tiermigrate", cmd.Use)
	assert.Contains(t, cmd.Long, "legacy time-locked vault")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"init"}, {"fund"}, {"finalize"}, {"migrate"}, {"withdraw-v1"},
		{"issue"}, {"transfer"}, {"withdraw"}, {"holder"}, {"records"},
		{"balance"}, {"classify"}, {"authority"}, {"trace"}, {"scenario"}, {"serve"},
		{"legacy", "deposit"}, {"legacy", "approve"}, {"legacy", "withdraw"},
		{"legacy", "redeem"}, {"legacy", "show"}, {"legacy", "set-pool-creator"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "tiermigrate.db", dbFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)

	nowFlag := cmd.PersistentFlags().Lookup("now")
	require.NotNil(t, nowFlag)
	assert.Equal(t, "0", nowFlag.DefValue)
}

func TestLegacyDepositFlags(t *testing.T) {
	cmd := NewRootCommand()
	depositCmd, _, err := cmd.Find([]string{"legacy", "deposit"})
	require.NoError(t, err)

	for _, name := range []string{"start", "cliff", "finish"} {
		f := depositCmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "0", f.DefValue)
	}
}

func TestCallerFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, path := range [][]string{{"issue"}, {"transfer"}, {"withdraw"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		f := sub.Flags().Lookup("caller")
		require.NotNil(t, f, path[0])
		assert.Equal(t, []string{"true"}, f.Annotations[cobra.BashCompOneRequiredFlag], path[0])
	}

	// Privileged callers default to the deployment's addresses.
	for _, path := range [][]string{{"finalize"}, {"legacy", "redeem"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		f := sub.Flags().Lookup("caller")
		require.NotNil(t, f)
		assert.Empty(t, f.Annotations)
	}
}

func TestScenarioCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	scenarioCmd, _, err := cmd.Find([]string{"scenario"})
	require.NoError(t, err)

	assert.NotNil(t, scenarioCmd.Flags().Lookup("update"))
	assert.NotNil(t, scenarioCmd.Flags().Lookup("filter"))
	assert.NotNil(t, scenarioCmd.Flags().Lookup("golden"))
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	listen := serveCmd.Flags().Lookup("listen")
	require.NotNil(t, listen)
	assert.Equal(t, ":9464", listen.DefValue)
	interval := serveCmd.Flags().Lookup("interval")
	require.NotNil(t, interval)
	assert.Equal(t, "0s", interval.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "authority")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("text"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
