package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted run against a fresh registry.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step actions.
const (
	ActionCreate        = "create"
	ActionBid           = "bid"
	ActionWithdraw      = "withdraw"
	ActionFinalize      = "finalize"
	ActionAdvance       = "advance"
	ActionFailTransfers = "fail_transfers"
)

// ExpectTransferFailed is the expect value for a withdraw whose payout fails.
const ExpectTransferFailed = "TRANSFER_FAILED"

// Step is one operation. Which fields apply depends on Action.
type Step struct {
	Action string `yaml:"action"`

	// Auction is the reference given at create time.
	Auction string `yaml:"auction,omitempty"`

	// Identity is the seller (create), bidder (bid) or caller.
	Identity string `yaml:"identity,omitempty"`

	Amount   int64  `yaml:"amount,omitempty"`
	Duration string `yaml:"duration,omitempty"` // create, advance
	Item     string `yaml:"item,omitempty"`     // create
	Fail     bool   `yaml:"fail,omitempty"`     // fail_transfers

	// Expect is the error code the step must fail with. Empty means the
	// step must succeed.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates final state or the trace.
type Assertion struct {
	Type     string `yaml:"type"`
	Auction  string `yaml:"auction,omitempty"`
	Identity string `yaml:"identity,omitempty"`

	// Equals is the expected amount (balance, highest_bid, paid).
	Equals *int64 `yaml:"equals,omitempty"`

	// Value is the expected string (highest_bidder, state).
	Value string `yaml:"value,omitempty"`

	Kind  string   `yaml:"kind,omitempty"`  // trace_count
	Count int      `yaml:"count,omitempty"` // trace_count
	Kinds []string `yaml:"kinds,omitempty"` // trace_order
}

// Assertion type constants.
const (
	AssertBalance       = "balance"
	AssertHighestBid    = "highest_bid"
	AssertHighestBidder = "highest_bidder"
	AssertState         = "state"
	AssertPaid          = "paid"
	AssertConservation  = "conservation"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
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

// ParseScenario parses scenario YAML.
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

	refs := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, step, refs); err != nil {
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

func validateStep(i int, step Step, refs map[string]bool) error {
	switch step.Action {
	case ActionCreate:
		if step.Auction == "" {
			return fmt.Errorf("steps[%d]: auction reference is required for create", i)
		}
		if refs[step.Auction] {
			return fmt.Errorf("steps[%d]: auction reference %q already used", i, step.Auction)
		}
		refs[step.Auction] = true
		if _, err := time.ParseDuration(step.Duration); err != nil {
			return fmt.Errorf("steps[%d]: duration: %w", i, err)
		}
	case ActionBid, ActionWithdraw, ActionFinalize:
		if !refs[step.Auction] {
			return fmt.Errorf("steps[%d]: unknown auction reference %q", i, step.Auction)
		}
	case ActionAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return fmt.Errorf("steps[%d]: duration: %w", i, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d]: cannot advance the clock backwards", i)
		}
	case ActionFailTransfers:
	case "":
		return fmt.Errorf("steps[%d]: action is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBalance:
		if a.Auction == "" || a.Identity == "" || a.Equals == nil {
			return fmt.Errorf("assertions[%d]: balance needs auction, identity and equals", index)
		}
	case AssertHighestBid:
		if a.Auction == "" || a.Equals == nil {
			return fmt.Errorf("assertions[%d]: highest_bid needs auction and equals", index)
		}
	case AssertHighestBidder, AssertState:
		if a.Auction == "" {
			return fmt.Errorf("assertions[%d]: %s needs auction", index, a.Type)
		}
	case AssertPaid:
		if a.Identity == "" || a.Equals == nil {
			return fmt.Errorf("assertions[%d]: paid needs identity and equals", index)
		}
	case AssertConservation:
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
