package testutil

// FixedFlowGenerator returns one token for every call. Engines built with
// it write every event under that token, so a scenario replayed on a fresh
// store produces a byte-identical log.
type FixedFlowGenerator struct {
	token string
}

// NewFixedFlowGenerator returns a generator for token, or for
// "test-flow-default" when token is empty.
func NewFixedFlowGenerator(token string) FixedFlowGenerator {
	if token == "" {
		token = "test-flow-default"
	}
	return FixedFlowGenerator{token: token}
}

// Generate implements engine.FlowTokenGenerator.
func (g FixedFlowGenerator) Generate() string {
	return g.token
}
