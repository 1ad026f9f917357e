package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	token := UUIDv7Generator{}.Generate()

	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, token)
	parsed, err := uuid.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Generator_UniqueAcrossGoroutines(t *testing.T) {
	const goroutines, perGoroutine = 20, 50

	var (
		mu   sync.Mutex
		seen = make(map[string]bool, goroutines*perGoroutine)
		wg   sync.WaitGroup
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				token := UUIDv7Generator{}.Generate()
				mu.Lock()
				seen[token] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestScriptedFlows(t *testing.T) {
	gen := NewScriptedFlows("deposit", "finalize")

	assert.Equal(t, "deposit", gen.Generate())
	assert.Equal(t, "finalize", gen.Generate())
	assert.PanicsWithValue(t, "ScriptedFlows: call 3 has no token (2 scripted)", func() {
		gen.Generate()
	})
}

func TestScriptedFlows_Empty(t *testing.T) {
	assert.Panics(t, func() { NewScriptedFlows().Generate() })
}

func TestEngine_NewFlow(t *testing.T) {
	e := newTestEngine(t, WithFlowGenerator(NewScriptedFlows("migrate-alice", "migrate-bob")))

	assert.Equal(t, "migrate-alice", e.NewFlow())
	assert.Equal(t, "migrate-bob", e.NewFlow())
}

func TestEngine_NewFlow_DefaultsToUUIDv7(t *testing.T) {
	e := newTestEngine(t)

	parsed, err := uuid.Parse(e.NewFlow())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFlowContext(t *testing.T) {
	_, ok := FlowFrom(context.Background())
	assert.False(t, ok)

	_, ok = FlowFrom(WithFlow(context.Background(), ""))
	assert.False(t, ok, "empty token falls back to the generator")

	token, ok := FlowFrom(WithFlow(context.Background(), "withdraw-v1/bob"))
	assert.True(t, ok)
	assert.Equal(t, "withdraw-v1/bob", token)
}

// A flow token set on the context names every event of that call.
func TestFlowFromContextNamesEvents(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Init(context.Background()))
	ctx := WithFlow(context.Background(), "fund-alice")

	require.NoError(t, e.Fund(ctx, alice, amt(100)))

	events, err := e.Events(context.Background(), "fund-alice")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, "fund-alice", ev.FlowToken)
	}
}
