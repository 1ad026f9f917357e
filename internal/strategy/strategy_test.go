package strategy

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tiermigrate/internal/ir"
)

const week = 7 * 24 * 60 * 60

func amounts(vs ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(vs))
	for i, v := range vs {
		out[i] = uint256.NewInt(v)
	}
	return out
}

func decs(params []*uint256.Int) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Dec()
	}
	return out
}

func TestDefaultSet(t *testing.T) {
	s := Default()
	assert.Equal(t, []ir.StrategyID{Deal, Lock, Timed}, s.IDs())

	_, err := s.Get("linear")
	assert.ErrorIs(t, err, ir.ErrNotFound)
}

func TestDeal(t *testing.T) {
	params, err := DealStrategy{}.Instantiate(uint256.NewInt(250), nil, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"250"}, decs(params))

	rel, err := DealStrategy{}.Releasable(params, 0)
	require.NoError(t, err)
	assert.Equal(t, "250", rel.Dec())

	_, err = DealStrategy{}.Instantiate(uint256.NewInt(1), []uint64{5}, 0)
	assert.Error(t, err)
}

func TestLock(t *testing.T) {
	params, err := LockStrategy{}.Instantiate(uint256.NewInt(3500), []uint64{week}, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"3500", "605800"}, decs(params))

	tests := []struct {
		now  uint64
		want string
	}{
		{1000, "0"},
		{605799, "0"},
		{605800, "3500"},
		{999999, "3500"},
	}
	for _, tt := range tests {
		rel, err := LockStrategy{}.Releasable(params, tt.now)
		require.NoError(t, err)
		assert.Equal(t, tt.want, rel.Dec(), "now=%d", tt.now)
	}

	assert.Error(t, LockStrategy{}.ValidateTemplate(nil))
}

func TestTimedTwoOffsetTemplate(t *testing.T) {
	params, err := TimedStrategy{}.Instantiate(uint256.NewInt(20000), []uint64{week, 4 * week}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"20000", "604800", "604800", "2419200", "20000"}, decs(params))
}

func TestTimedReleasable(t *testing.T) {
	// start 100, cliff 150, finish 200, total 1000
	params := amounts(1000, 100, 150, 200, 1000)

	tests := []struct {
		name string
		now  uint64
		want string
	}{
		{"before start", 50, "0"},
		{"before cliff", 149, "0"},
		{"at cliff", 150, "500"},
		{"three quarters", 175, "750"},
		{"at finish", 200, "1000"},
		{"after finish", 500, "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := TimedStrategy{}.Releasable(params, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rel.Dec())
		})
	}
}

func TestTimedAfterPartialWithdraw(t *testing.T) {
	params := amounts(1000, 100, 100, 200, 1000)

	debited, err := Debit(params, uint256.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, "1000", params[0].Dec(), "Debit must not mutate its input")

	rel, err := TimedStrategy{}.Releasable(debited, 150)
	require.NoError(t, err)
	assert.Equal(t, "0", rel.Dec())

	rel, err = TimedStrategy{}.Releasable(debited, 175)
	require.NoError(t, err)
	assert.Equal(t, "250", rel.Dec())

	rel, err = TimedStrategy{}.Releasable(debited, 200)
	require.NoError(t, err)
	assert.Equal(t, "500", rel.Dec())
}

func TestTimedRejectsBadTemplates(t *testing.T) {
	for _, tmpl := range [][]uint64{nil, {1}, {5, 1}, {1, 9, 3}, {1, 2, 3, 4}} {
		assert.Error(t, TimedStrategy{}.ValidateTemplate(tmpl), "template %v", tmpl)
	}
}

func TestDebitInsufficient(t *testing.T) {
	_, err := Debit(amounts(10), uint256.NewInt(11))
	assert.ErrorIs(t, err, ir.ErrInsufficientBalance)
}

func TestReleasableChecksParamCount(t *testing.T) {
	_, err := LockStrategy{}.Releasable(amounts(1), 0)
	assert.Error(t, err)
	_, err = TimedStrategy{}.Releasable(amounts(1, 2), 0)
	assert.Error(t, err)
}
