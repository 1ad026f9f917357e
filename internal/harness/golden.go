package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tiermigrate/internal/config"
	"github.com/roach88/tiermigrate/internal/ir"
)

// Aliases maps addresses to the names golden traces print for them.
type Aliases map[common.Address]string

// ScenarioAliases names the deployment components and the scenario's
// actors. When two components share an address the first in
// componentOrder wins.
func ScenarioAliases(s *Scenario) (Aliases, error) {
	d, err := s.deployment()
	if err != nil {
		return nil, err
	}
	return buildAliases(d, s.Actors)
}

func buildAliases(d *config.Deployment, actors map[string]string) (Aliases, error) {
	aliases := make(Aliases, len(componentOrder)+len(actors))
	for _, name := range componentOrder {
		addr := componentNames[name](d)
		if _, taken := aliases[addr]; !taken {
			aliases[addr] = name
		}
	}
	for name, hex := range actors {
		if !common.IsHexAddress(hex) {
			return nil, fmt.Errorf("actor %s: %q is not a hex address", name, hex)
		}
		aliases[common.HexToAddress(hex)] = name
	}
	return aliases, nil
}

// rename replaces every address string in v that has an alias.
func (a Aliases) rename(v any) any {
	switch val := v.(type) {
	case string:
		if common.IsHexAddress(val) {
			if name, ok := a[common.HexToAddress(val)]; ok {
				return name
			}
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = a.rename(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = a.rename(item)
		}
		return out
	}
	return v
}

// FormatTrace renders a trace as one canonical JSON object per line, with
// addresses replaced by their aliases. This is the golden file format.
func FormatTrace(trace []TraceEvent, aliases Aliases) ([]byte, error) {
	var buf bytes.Buffer
	for _, event := range trace {
		line, err := ir.MarshalCanonical(map[string]any{
			"seq":     event.Seq,
			"flow":    event.Flow,
			"kind":    event.Kind,
			"at":      event.At,
			"payload": aliases.rename(event.Payload),
		})
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", event.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass; a trace mismatch
// fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	aliases, err := ScenarioAliases(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result, aliases)
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, name string, result *Result, aliases Aliases) error {
	t.Helper()

	traceText, err := FormatTrace(result.Trace, aliases)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceText)

	return nil
}
