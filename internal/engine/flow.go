package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// FlowTokenGenerator names the flow an entry point call writes its events
// under when the caller did not pick one with WithFlow.
type FlowTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator is the default generator. UUIDv7 tokens sort by creation
// time, so flows list in call order in `tiermigrate trace`.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. It panics only if the system
// random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ScriptedFlows hands out a fixed list of tokens in order and panics once
// the list runs out, which catches a test making more calls than it
// scripted. Safe for concurrent use.
type ScriptedFlows struct {
	mu     sync.Mutex
	tokens []string
	next   int
}

// NewScriptedFlows returns a generator that yields tokens in order.
func NewScriptedFlows(tokens ...string) *ScriptedFlows {
	return &ScriptedFlows{tokens: tokens}
}

func (g *ScriptedFlows) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.next >= len(g.tokens) {
		panic(fmt.Sprintf("ScriptedFlows: call %d has no token (%d scripted)", g.next+1, len(g.tokens)))
	}
	token := g.tokens[g.next]
	g.next++
	return token
}

type flowKey struct{}

// WithFlow makes the next entry point called with ctx run under token
// instead of a generated one.
func WithFlow(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, flowKey{}, token)
}

// FlowFrom returns the token set by WithFlow, if any.
func FlowFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(flowKey{}).(string)
	return token, ok && token != ""
}
