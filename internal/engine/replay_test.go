package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runMigration produces a log with several flows and multi-event calls.
func runMigration(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.Init(ctx))
	depositAndApprove(t, e, alice, 5000)
	finalize(t, e)
	_, err := e.FullMigrate(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, e.Transfer(ctx, alice, 0, bob))
}

func TestVerifyLogEmpty(t *testing.T) {
	e := newTestEngine(t)
	report, err := e.VerifyLog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LogReport{}, report)
}

func TestVerifyLogAcceptsCommittedEvents(t *testing.T) {
	e := newTestEngine(t)
	runMigration(t, e)

	events, err := e.Events(context.Background(), "")
	require.NoError(t, err)

	report, err := e.VerifyLog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(events), report.Events)
	assert.Equal(t, int64(len(events)), report.LastSeq)
	// fund, deposit, approve, finalize, migrate, transfer
	assert.Equal(t, 6, report.Flows)
}

func TestVerifyLogDetectsEditedPayload(t *testing.T) {
	e := newTestEngine(t)
	runMigration(t, e)

	_, err := e.Store().DB().Exec(
		`UPDATE events SET payload = replace(payload, '"5000"', '"50000"') WHERE kind = 'Issued'`)
	require.NoError(t, err)

	_, err = e.VerifyLog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Issued")
	assert.Contains(t, err.Error(), "does not match content")
}

func TestVerifyLogDetectsMissingEvent(t *testing.T) {
	e := newTestEngine(t)
	runMigration(t, e)

	_, err := e.Store().DB().Exec(`DELETE FROM events WHERE seq = 2`)
	require.NoError(t, err)

	_, err = e.VerifyLog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seq 3, expected 2")
}
