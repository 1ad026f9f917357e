package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	doc := `
name: valid
description: A valid scenario
start: 1700000000
config:
  pool_creator: light
  zero_balance: fail
actors:
  alice: "0x0000000000000000000000000000000000000a01"
steps:
  - {op: fund, account: alice, amount: "250"}
  - {op: approve, holder: alice, approved: false}
  - {op: advance, seconds: 60}
assertions:
  - {type: holder, holder: alice, tier: 0}
`
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "valid", s.Name)
	assert.Equal(t, uint64(1700000000), s.Start)
	assert.Equal(t, "light", s.Config.PoolCreator)
	assert.Equal(t, "fail", s.Config.ZeroBalance)
	require.Len(t, s.Steps, 3)
	require.NotNil(t, s.Steps[1].Approved)
	assert.False(t, *s.Steps[1].Approved)
	assert.Equal(t, uint64(60), s.Steps[2].Seconds)
	require.NotNil(t, s.Assertions[0].Tier)
	assert.Equal(t, uint8(0), *s.Assertions[0].Tier)
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "unknown field",
			doc:     "name: x\ndescription: d\nstepz: []\n",
			wantErr: "field stepz not found",
		},
		{
			name:    "missing name",
			doc:     "description: d\nsteps: [{op: advance, seconds: 1}]\nassertions: [{type: authority, state: pending}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			doc:     "name: x\nsteps: [{op: advance, seconds: 1}]\nassertions: [{type: authority, state: pending}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			doc:     "name: x\ndescription: d\nassertions: [{type: authority, state: pending}]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			doc:     "name: x\ndescription: d\nsteps: [{op: advance, seconds: 1}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown op",
			doc:     "name: x\ndescription: d\nsteps: [{op: mint}]\nassertions: [{type: authority, state: pending}]\n",
			wantErr: `unknown op "mint"`,
		},
		{
			name:    "missing step field",
			doc:     "name: x\ndescription: d\nsteps: [{op: fund, account: a}]\nassertions: [{type: authority, state: pending}]\n",
			wantErr: "amount is required for fund",
		},
		{
			name:    "advance without seconds",
			doc:     "name: x\ndescription: d\nsteps: [{op: advance}]\nassertions: [{type: authority, state: pending}]\n",
			wantErr: "seconds is required for advance",
		},
		{
			name:    "unknown assertion",
			doc:     "name: x\ndescription: d\nsteps: [{op: advance, seconds: 1}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "bad authority state",
			doc:     "name: x\ndescription: d\nsteps: [{op: advance, seconds: 1}]\nassertions: [{type: authority, state: done}]\n",
			wantErr: "state must be pending or finalized",
		},
		{
			name:    "trace_order without kinds",
			doc:     "name: x\ndescription: d\nsteps: [{op: advance, seconds: 1}]\nassertions: [{type: trace_order}]\n",
			wantErr: "kinds list is required",
		},
		{
			name:    "actor shadows component",
			doc:     "name: x\ndescription: d\nactors: {registry: \"0x01\"}\nsteps: [{op: advance, seconds: 1}]\nassertions: [{type: authority, state: pending}]\n",
			wantErr: `"registry" is a component name`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	doc := "name: file\ndescription: from disk\nsteps: [{op: advance, seconds: 5}]\nassertions: [{type: authority, state: pending}]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name)
}
