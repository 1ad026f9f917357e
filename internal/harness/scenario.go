package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted migration run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the clock reading, unix seconds, before the first step.
	Start uint64 `yaml:"start"`

	// Config overrides fields of the built-in deployment.
	Config ScenarioConfig `yaml:"config,omitempty"`

	// Actors names scenario addresses. Component addresses (registry,
	// orchestrator, ...) are always available by name.
	Actors map[string]string `yaml:"actors,omitempty"`

	// Steps run in order. Each successful step is one entry point call.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`

	// FlowToken prefixes the per-step flow tokens. Defaults to Name.
	FlowToken string `yaml:"flow_token,omitempty"`
}

// ScenarioConfig overrides deployment fields. Empty fields keep the
// default.
type ScenarioConfig struct {
	PoolCreator    string `yaml:"pool_creator,omitempty"`
	ZeroBalance    string `yaml:"zero_balance,omitempty"`
	DirectIssuance bool   `yaml:"direct_issuance,omitempty"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`

	Caller  string `yaml:"caller,omitempty"`
	Holder  string `yaml:"holder,omitempty"`
	Account string `yaml:"account,omitempty"`
	To      string `yaml:"to,omitempty"`
	Target  string `yaml:"target,omitempty"`
	Amount  string `yaml:"amount,omitempty"`
	Record  uint64 `yaml:"record,omitempty"`

	// Legacy deposit delays, seconds.
	Start  uint64 `yaml:"start,omitempty"`
	Cliff  uint64 `yaml:"cliff,omitempty"`
	Finish uint64 `yaml:"finish,omitempty"`

	// Seconds is how far advance moves the clock.
	Seconds uint64 `yaml:"seconds,omitempty"`

	// Approved is the approve flag. Defaults to true.
	Approved *bool `yaml:"approved,omitempty"`

	// Creator is the pool creator set_pool_creator selects.
	Creator string `yaml:"creator,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	// ExpectAmount is the amount the step must report: paid out by
	// withdraw_record, migrated by full_migrate and withdraw_v1, withdrawn
	// by legacy_withdraw.
	ExpectAmount string `yaml:"expect_amount,omitempty"`
}

// Step operations.
const (
	OpFund           = "fund"
	OpDeposit        = "deposit"
	OpApprove        = "approve"
	OpLegacyWithdraw = "legacy_withdraw"
	OpRedeem         = "redeem"
	OpSetPoolCreator = "set_pool_creator"
	OpFinalize       = "finalize"
	OpFullMigrate    = "full_migrate"
	OpWithdrawV1     = "withdraw_v1"
	OpIssue          = "issue"
	OpTransfer       = "transfer"
	OpWithdrawRecord = "withdraw_record"
	OpAdvance        = "advance"
)

// requiredFields lists the step fields each op reads.
var requiredFields = map[string][]string{
	OpFund:           {"account", "amount"},
	OpDeposit:        {"holder", "amount"},
	OpApprove:        {"holder"},
	OpLegacyWithdraw: {"holder"},
	OpRedeem:         {"caller", "holder", "amount"},
	OpSetPoolCreator: {"creator"},
	OpFinalize:       {"caller", "target"},
	OpFullMigrate:    {"caller"},
	OpWithdrawV1:     {"caller"},
	OpIssue:          {"caller", "holder", "amount"},
	OpTransfer:       {"caller", "to"},
	OpWithdrawRecord: {"caller"},
	OpAdvance:        {"seconds"},
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "holder": registry state of Holder
	// - "balance": custody balance of Account
	// - "record": ledger record Record
	// - "authority": migration handoff State
	// - "trace_count": Kind appears exactly Count times
	// - "trace_order": Kinds appear in order
	Type string `yaml:"type"`

	Holder  string `yaml:"holder,omitempty"`
	Account string `yaml:"account,omitempty"`
	Record  uint64 `yaml:"record,omitempty"`

	// Expected values. Unset fields are not checked.
	Tier         *uint8 `yaml:"tier,omitempty"`
	Amount       string `yaml:"amount,omitempty"`
	Total        string `yaml:"total,omitempty"`
	Records      *int   `yaml:"records,omitempty"`
	Owner        string `yaml:"owner,omitempty"`
	Strategy     string `yaml:"strategy,omitempty"`
	Withdrawable string `yaml:"withdrawable,omitempty"`
	State        string `yaml:"state,omitempty"`

	Kind  string   `yaml:"kind,omitempty"`
	Count int      `yaml:"count,omitempty"`
	Kinds []string `yaml:"kinds,omitempty"`
}

// Assertion type constants.
const (
	AssertHolder     = "holder"
	AssertBalance    = "balance"
	AssertRecord     = "record"
	AssertAuthority  = "authority"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for name := range s.Actors {
		if _, ok := componentNames[name]; ok {
			return fmt.Errorf("actors: %q is a component name", name)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	if st.Op == "" {
		return fmt.Errorf("steps[%d]: op is required", index)
	}
	fields, ok := requiredFields[st.Op]
	if !ok {
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	for _, f := range fields {
		if stepField(st, f) == "" {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, f, st.Op)
		}
	}
	return nil
}

func stepField(st *Step, name string) string {
	switch name {
	case "caller":
		return st.Caller
	case "holder":
		return st.Holder
	case "account":
		return st.Account
	case "to":
		return st.To
	case "target":
		return st.Target
	case "amount":
		return st.Amount
	case "creator":
		return st.Creator
	case "seconds":
		if st.Seconds == 0 {
			return ""
		}
		return "set"
	}
	return ""
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertHolder:
		if a.Holder == "" {
			return fmt.Errorf("assertions[%d]: holder is required for holder", index)
		}
	case AssertBalance:
		if a.Account == "" || a.Amount == "" {
			return fmt.Errorf("assertions[%d]: account and amount are required for balance", index)
		}
	case AssertRecord:
	case AssertAuthority:
		if a.State != "pending" && a.State != "finalized" {
			return fmt.Errorf("assertions[%d]: state must be pending or finalized", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
