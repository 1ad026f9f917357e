package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tiermigrate/internal/ir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	FlowToken string
	Kind      string // optional - filter to one event kind
	Verify    bool
}

// TraceEvent is one audit event in the trace timeline.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	ID      string         `json:"id"`
	Flow    string         `json:"flow"`
	Kind    string         `json:"kind"`
	At      uint64         `json:"at"`
	Payload map[string]any `json:"payload"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	FlowToken string       `json:"flow_token,omitempty"`
	Timeline  []TraceEvent `json:"timeline"`
	Stats     TraceStats   `json:"stats"`
	Verified  *LogCheck    `json:"verified,omitempty"`
}

// LogCheck reports a successful audit log verification.
type LogCheck struct {
	Events  int   `json:"events"`
	Flows   int   `json:"flows"`
	LastSeq int64 `json:"last_seq"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Flows       int            `json:"flows"`
	ByKind      map[string]int `json:"by_kind"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the audit log",
		Long: `Show the audit log, optionally for a single flow.

Every command that changes state reports its flow token. All events
emitted by one call share that token and appear in emission order.

Examples:
  tiermigrate trace
  tiermigrate trace --flow 0192b8a4-7c1e-7d3a-9f00-5c1d2e3f4a5b
  tiermigrate trace --kind Issued --format json
  tiermigrate trace --verify`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "flow token to trace (default: all flows)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute every event id and check seq numbering")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	s, err := openSession(commandContext(cmd), opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	events, err := s.engine.Events(commandContext(cmd), opts.FlowToken)
	if err != nil {
		return s.out.Fail("failed to read events", err)
	}

	result := TraceResult{
		FlowToken: opts.FlowToken,
		Timeline:  buildTimeline(events, opts.Kind),
	}
	result.Stats = traceStats(result.Timeline)

	if opts.Verify {
		report, err := s.engine.VerifyLog(commandContext(cmd))
		if err != nil {
			return s.out.Fail("audit log verification failed", err)
		}
		result.Verified = &LogCheck{Events: report.Events, Flows: report.Flows, LastSeq: report.LastSeq}
	}

	return s.out.Result(result, func(w io.Writer) {
		outputTraceText(w, result, opts.Verbose)
	})
}

// buildTimeline converts audit events to timeline events, keeping only
// kind when it is set.
func buildTimeline(events []ir.Event, kind string) []TraceEvent {
	timeline := []TraceEvent{}
	for _, ev := range events {
		if kind != "" && ev.Kind != kind {
			continue
		}
		timeline = append(timeline, TraceEvent{
			Seq:     ev.Seq,
			ID:      ev.ID,
			Flow:    ev.FlowToken,
			Kind:    ev.Kind,
			At:      ev.At,
			Payload: ev.Payload,
		})
	}
	return timeline
}

func traceStats(timeline []TraceEvent) TraceStats {
	stats := TraceStats{TotalEvents: len(timeline), ByKind: map[string]int{}}
	flows := map[string]bool{}
	for _, ev := range timeline {
		flows[ev.Flow] = true
		stats.ByKind[ev.Kind]++
	}
	stats.Flows = len(flows)
	return stats
}

// outputTraceText prints the timeline grouped by flow, in seq order.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	if result.FlowToken != "" {
		fmt.Fprintf(w, "Trace for Flow: %s\n", result.FlowToken)
	} else {
		fmt.Fprintln(w, "Trace")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	flow := ""
	for _, event := range result.Timeline {
		if event.Flow != flow {
			flow = event.Flow
			fmt.Fprintf(w, "  flow %s\n", flow)
		}
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Flows:        %d\n", result.Stats.Flows)
	kinds := make([]string, 0, len(result.Stats.ByKind))
	for k := range result.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-18s %d\n", k+":", result.Stats.ByKind[k])
	}

	if v := result.Verified; v != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "✓ Audit log verified: %d events in %d flows, last seq %d\n", v.Events, v.Flows, v.LastSeq)
	}
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	fmt.Fprintf(w, "    [%d] %s %s\n", event.Seq, event.Kind, formatArgs(event.Payload))
	if verbose {
		fmt.Fprintf(w, "         at %d, id %s\n", event.At, truncateID(event.ID))
	}
}

// formatArgs formats a payload for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
