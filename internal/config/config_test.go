package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tiermigrate/internal/ir"
	"github.com/roach88/tiermigrate/internal/migrator"
	"github.com/roach88/tiermigrate/internal/strategy"
)

const week = 7 * 24 * 60 * 60

func TestDefaultDeployment(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	require.Len(t, d.Tiers, 3)
	assert.Equal(t, strategy.Deal, d.Tiers[0].Strategy)
	assert.Equal(t, "250", d.Tiers[0].Limit.Dec())
	assert.Empty(t, d.Tiers[0].Template)
	assert.Equal(t, []uint64{week}, d.Tiers[1].Template)
	assert.Equal(t, "3500", d.Tiers[1].Limit.Dec())
	assert.Equal(t, []uint64{week, 4 * week}, d.Tiers[2].Template)
	assert.Equal(t, "20000", d.Tiers[2].Limit.Dec())

	assert.Equal(t, migrator.ZeroNoop, d.ZeroBalance)
	assert.False(t, d.DirectIssuance)
	assert.Equal(t, PoolCreatorNone, d.PoolCreator)
	assert.Equal(t, "LightInterceptor", d.LightName)
	assert.Equal(t, "1.0.0", d.LightVersion)
	assert.Equal(t, d.Addresses.Orchestrator, d.Addresses.Governor)

	_, err = d.Classifier(strategy.Default())
	require.NoError(t, err)
}

func TestLoadFileOverrides(t *testing.T) {
	src := strings.Replace(string(DefaultSource()), `asset:`, `zero_balance: "fail"
direct_issuance: true
pool_creator: "light"
light: version: "2.0.0"
asset:`, 1)

	path := filepath.Join(t.TempDir(), "deploy.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, migrator.ZeroFail, d.ZeroBalance)
	assert.True(t, d.DirectIssuance)
	assert.Equal(t, PoolCreatorLight, d.PoolCreator)
	assert.Equal(t, "LightInterceptor", d.LightName)
	assert.Equal(t, "2.0.0", d.LightVersion)
	assert.Equal(t, []byte(src), d.Source)
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	d, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSource(), d.Source)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	base := string(DefaultSource())

	tests := []struct {
		name string
		src  string
	}{
		{"syntax", "asset: ["},
		{"unknown field", base + "\nextra: 1\n"},
		{"bad address", strings.Replace(base, `"0x00000000000000000000000000000000000000A5"`, `"0x12"`, 1)},
		{"bad policy", base + "\nzero_balance: \"retry\"\n"},
		{"bad strategy", strings.Replace(base, `strategy: "deal"`, `strategy: "vest"`, 1)},
		{"non-increasing limits", strings.Replace(base, `limit: "3500"`, `limit: "100"`, 1)},
		{"two tiers", strings.Replace(base, `{strategy: "deal", limit: "250"},`, ``, 1)},
		{"lock without offset", strings.Replace(base, `template: [week], `, ``, 1)},
		{"shared address", strings.Replace(base,
			`registry:     "0x0000000000000000000000000000000000000070"`,
			`registry:     "0x00000000000000000000000000000000000000EE"`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("deploy.cue", []byte(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, ir.ErrInvalidConfig)

			var cfgErr *Error
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestErrorNamesField(t *testing.T) {
	_, err := Parse("deploy.cue", []byte(string(DefaultSource())+"\nextra: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra")
}

func TestParsePoolCreator(t *testing.T) {
	for _, name := range []string{"none", "orchestrator", "light"} {
		pc, err := ParsePoolCreator(name)
		require.NoError(t, err)
		assert.Equal(t, PoolCreator(name), pc)
	}

	_, err := ParsePoolCreator("registry")
	assert.ErrorIs(t, err, ir.ErrInvalidConfig)
}
