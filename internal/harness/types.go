package harness

import "github.com/roach88/tiermigrate/internal/ir"

// TraceEvent is one audit event as the scenario observed it.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Flow    string         `json:"flow"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
	At      uint64         `json:"at"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace is the full audit log in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvents appends audit events to the trace.
func (r *Result) AddEvents(events []ir.Event) {
	for _, ev := range events {
		r.Trace = append(r.Trace, TraceEvent{
			Seq:     ev.Seq,
			Flow:    ev.FlowToken,
			Kind:    ev.Kind,
			Payload: ev.Payload,
			At:      ev.At,
		})
	}
}
