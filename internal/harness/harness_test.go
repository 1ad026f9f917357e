package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alice = "0x0000000000000000000000000000000000000a01"

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Start:       1000,
		Actors:      map[string]string{"alice": alice},
		Steps: []Step{
			{Op: OpFund, Account: "alice", Amount: "10"},
		},
		Assertions: []Assertion{
			{Type: AssertBalance, Account: "alice", Amount: "10"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, "Funded", result.Trace[0].Kind)
	assert.Equal(t, "minimal/1", result.Trace[0].Flow)
	assert.Equal(t, uint64(1000), result.Trace[0].At)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
}

func TestRun_FlowTokenPrefix(t *testing.T) {
	scenario := &Scenario{
		Name:        "prefixed",
		Description: "Custom flow prefix",
		FlowToken:   "flow-x",
		Actors:      map[string]string{"alice": alice},
		Steps: []Step{
			{Op: OpFund, Account: "alice", Amount: "1"},
			{Op: OpFund, Account: "alice", Amount: "2"},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Kind: "Funded", Count: 2}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "flow-x/1", result.Trace[0].Flow)
	assert.Equal(t, "flow-x/2", result.Trace[1].Flow)
}

func TestRun_ExpectErrorMatched(t *testing.T) {
	scenario := &Scenario{
		Name:        "gate",
		Description: "Migration before finalize",
		Actors:      map[string]string{"alice": alice},
		Steps: []Step{
			{Op: OpFullMigrate, Caller: "alice", ExpectError: "NOT_INITIALIZED"},
		},
		Assertions: []Assertion{{Type: AssertAuthority, State: "pending"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Trace)
}

func TestRun_ExpectErrorMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Wrong expected code",
		Actors:      map[string]string{"alice": alice},
		Steps: []Step{
			{Op: OpFullMigrate, Caller: "alice", ExpectError: "ZERO_AMOUNT"},
			{Op: OpFund, Account: "alice", Amount: "5", ExpectError: "ZERO_AMOUNT"},
		},
		Assertions: []Assertion{{Type: AssertAuthority, State: "pending"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected ZERO_AMOUNT, got NOT_INITIALIZED")
	assert.Contains(t, result.Errors[1], "got success")
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "Transfer of a record that does not exist",
		Actors:      map[string]string{"alice": alice, "bob": "0x0000000000000000000000000000000000000b0b"},
		Steps: []Step{
			{Op: OpTransfer, Caller: "alice", Record: 7, To: "bob"},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Kind: "RecordTransferred", Count: 0}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_ExpectAmountMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "amount",
		Description: "Wrong expected migrated amount",
		Actors:      map[string]string{"alice": alice},
		Steps: []Step{
			{Op: OpFinalize, Caller: "controller", Target: "registry"},
			{Op: OpApprove, Holder: "alice"},
			{Op: OpFullMigrate, Caller: "alice", ExpectAmount: "5"},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Kind: "MigrationSkipped", Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected amount 5, got 0")
}

func TestRun_AdvanceMovesClock(t *testing.T) {
	scenario := &Scenario{
		Name:        "advance",
		Description: "Clock moves between steps",
		Start:       100,
		Actors:      map[string]string{"alice": alice},
		Steps: []Step{
			{Op: OpAdvance, Seconds: 50},
			{Op: OpFund, Account: "alice", Amount: "1"},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Kind: "Funded", Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, uint64(150), result.Trace[0].At)
	assert.Equal(t, "advance/2", result.Trace[0].Flow)
}

func TestRun_UnknownAddressAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "unknown",
		Description: "Step names an address nobody defined",
		Steps:       []Step{{Op: OpFund, Account: "mallory", Amount: "1"}},
		Assertions:  []Assertion{{Type: AssertTraceCount, Kind: "Funded", Count: 0}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown address "mallory"`)
}

func TestRun_BadConfigAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad-config",
		Description: "Unknown pool creator",
		Config:      ScenarioConfig{PoolCreator: "nobody"},
		Steps:       []Step{{Op: OpAdvance, Seconds: 1}},
		Assertions:  []Assertion{{Type: AssertAuthority, State: "pending"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario config")
}

func TestRun_DirectIssuance(t *testing.T) {
	scenario := &Scenario{
		Name:        "direct",
		Description: "Direct issuance lets any funded caller issue",
		Config:      ScenarioConfig{DirectIssuance: true},
		Actors:      map[string]string{"alice": alice},
		Steps: []Step{
			{Op: OpFund, Account: "alice", Amount: "20000"},
			{Op: OpIssue, Caller: "alice", Holder: "alice", Amount: "20000"},
		},
		Assertions: []Assertion{
			{Type: AssertHolder, Holder: "alice", Tier: tierPtr(2), Amount: "20000", Records: intPtr(1)},
			{Type: AssertRecord, Record: 0, Strategy: "timed", Withdrawable: "0"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario errors: %v", result.Errors)
		})
	}
}

func tierPtr(v uint8) *uint8 { return &v }

func intPtr(v int) *int { return &v }
