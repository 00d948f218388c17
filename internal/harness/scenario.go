package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/esungul/UniveralValidator/internal/ir"
)

// DefaultRunID is the run id used when a scenario does not set one.
const DefaultRunID = "scenario-run"

// Scenario is a conformance case: a rule file, the snapshots to validate
// and what the batch must report.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Rules is the rule document path, relative to the scenario file.
	Rules string `yaml:"rules"`

	// RunID fixes the batch run id. Defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	Snapshots []ir.Snapshot `yaml:"snapshots"`

	// Expect holds per-subscriber expectations. Subscribers without an
	// entry are not checked.
	Expect []Expectation `yaml:"expect"`

	// Summary optionally checks the batch tallies.
	Summary *SummaryExpectation `yaml:"summary,omitempty"`

	// dir is the directory the scenario was loaded from.
	dir string
}

// Expectation describes one subscriber's result. Empty fields are not
// checked.
type Expectation struct {
	Subscriber string `yaml:"subscriber"`
	Status     string `yaml:"status"`
	OrderID    string `yaml:"order_id,omitempty"`
	OrderType  string `yaml:"order_type,omitempty"`
	ErrorCode  string `yaml:"error_code,omitempty"`

	// Outcomes maps rule id to the expected result tag.
	Outcomes map[string]string `yaml:"outcomes,omitempty"`

	// Reasons maps rule id to a substring the outcome reason must contain.
	Reasons map[string]string `yaml:"reasons,omitempty"`

	HasMultipleOrders *bool `yaml:"has_multiple_orders,omitempty"`
	OrderCount        *int  `yaml:"order_count,omitempty"`
}

// SummaryExpectation checks batch counts. Nil fields are not checked.
type SummaryExpectation struct {
	Total              *int     `yaml:"total,omitempty"`
	Passed             *int     `yaml:"passed,omitempty"`
	PassedWithWarnings *int     `yaml:"passed_with_warnings,omitempty"`
	Failed             *int     `yaml:"failed,omitempty"`
	NotValidated       *int     `yaml:"not_validated,omitempty"`
	Errors             *int     `yaml:"errors,omitempty"`
	SuccessRate        *float64 `yaml:"success_rate,omitempty"`
}

var (
	validStatuses = map[string]bool{
		string(ir.StatusPass): true, string(ir.StatusPassWithWarnings): true, string(ir.StatusFail): true,
		string(ir.StatusNotValidated): true, string(ir.StatusError): true,
	}
	validResults = map[string]bool{
		string(ir.ResultPass): true, string(ir.ResultFail): true,
		string(ir.ResultAmbiguous): true, string(ir.ResultNotApplicable): true,
	}
)

// LoadScenario reads and validates a scenario file. Unknown keys are
// rejected so a typo cannot silently disable a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	s.dir = filepath.Dir(path)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// RulesPath returns the rule document path resolved against the scenario
// file's directory.
func (s *Scenario) RulesPath() string {
	if filepath.IsAbs(s.Rules) || s.dir == "" {
		return s.Rules
	}
	return filepath.Join(s.dir, s.Rules)
}

// Validate checks required fields and expectation values.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Rules == "" {
		return fmt.Errorf("rules is required")
	}
	if _, err := os.Stat(s.RulesPath()); err != nil {
		return fmt.Errorf("rules file not found: %s", s.RulesPath())
	}
	if len(s.Snapshots) == 0 {
		return fmt.Errorf("snapshots list is required and must be non-empty")
	}
	if len(s.Expect) == 0 && s.Summary == nil {
		return fmt.Errorf("expect or summary is required")
	}

	seen := make(map[string]bool)
	for i, snap := range s.Snapshots {
		if snap.Subscriber == "" {
			return fmt.Errorf("snapshots[%d]: subscriber is required", i)
		}
		if seen[snap.Subscriber] {
			return fmt.Errorf("snapshots[%d]: duplicate subscriber %q", i, snap.Subscriber)
		}
		seen[snap.Subscriber] = true
	}

	for i, e := range s.Expect {
		if err := validateExpectation(i, e, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateExpectation(index int, e Expectation, subscribers map[string]bool) error {
	if e.Subscriber == "" {
		return fmt.Errorf("expect[%d]: subscriber is required", index)
	}
	if !subscribers[e.Subscriber] {
		return fmt.Errorf("expect[%d]: subscriber %q has no snapshot", index, e.Subscriber)
	}
	if !validStatuses[e.Status] {
		return fmt.Errorf("expect[%d]: unknown status %q", index, e.Status)
	}
	for rule, res := range e.Outcomes {
		if !validResults[res] {
			return fmt.Errorf("expect[%d].outcomes.%s: unknown result %q", index, rule, res)
		}
	}
	return nil
}
