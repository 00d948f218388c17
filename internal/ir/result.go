package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is the tag of a single rule evaluation.
type Result string

const (
	ResultPass          Result = "pass"
	ResultFail          Result = "fail"
	ResultAmbiguous     Result = "ambiguous"
	ResultNotApplicable Result = "not-applicable"
)

// Severity decides whether a failing rule invalidates the order.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// Status is the overall verdict for one subscriber.
type Status string

const (
	StatusPass             Status = "pass"
	StatusPassWithWarnings Status = "pass-with-warnings"
	StatusFail             Status = "fail"
	StatusNotValidated     Status = "not-validated"
	StatusError            Status = "error" // selection or hierarchy failure, see Error
)

// RuleOutcome is the verdict of one rule against one order.
// Actual is nil when the target could not be resolved to a single value.
type RuleOutcome struct {
	RuleID      string   `json:"rule_id"`
	Description string   `json:"description,omitempty"`
	Target      string   `json:"target"`
	Operator    string   `json:"operator"`
	Actual      Value    `json:"actual,omitempty"`
	Result      Result   `json:"result"`
	Severity    Severity `json:"severity"`
	Reason      string   `json:"reason,omitempty"`
}

// IsFailure reports whether the outcome is a fail or an ambiguity.
func (o RuleOutcome) IsFailure() bool {
	return o.Result == ResultFail || o.Result == ResultAmbiguous
}

// UnmarshalJSON restores Actual from its JSON form. An absent actual stays
// nil; an explicit null becomes Null.
func (o *RuleOutcome) UnmarshalJSON(data []byte) error {
	type plain RuleOutcome
	var aux struct {
		plain
		Actual json.RawMessage `json:"actual,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = RuleOutcome(aux.plain)
	o.Actual = nil
	if len(aux.Actual) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(aux.Actual))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("actual: %w", err)
	}
	v, err := FromAny(raw)
	if err != nil {
		return fmt.Errorf("actual: %w", err)
	}
	o.Actual = v
	return nil
}

// Checks counts outcomes by result.
type Checks struct {
	Total         int     `json:"total"`
	Passed        int     `json:"passed"`
	Failed        int     `json:"failed"`
	Warnings      int     `json:"warnings"`
	NotApplicable int     `json:"not_applicable"`
	SuccessRate   float64 `json:"success_rate"`
}

// ResultError describes why a subscriber could not be validated.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the immutable verdict for one subscriber in one run.
type ValidationResult struct {
	RunID             string        `json:"run_id,omitempty"`
	Subscriber        string        `json:"subscriber"`
	OrderID           string        `json:"order_id,omitempty"`
	OrderType         string        `json:"order_type,omitempty"`
	Status            Status        `json:"status"`
	Outcomes          []RuleOutcome `json:"outcomes"`
	Checks            Checks        `json:"checks"`
	HasMultipleOrders bool          `json:"has_multiple_orders"`
	OrderCount        int           `json:"order_count"`
	Error             *ResultError  `json:"error,omitempty"`
	Digest            string        `json:"digest,omitempty"`
}

// Failures returns the failing and ambiguous outcomes in rule order.
func (r ValidationResult) Failures() []RuleOutcome {
	failures := make([]RuleOutcome, 0)
	for _, o := range r.Outcomes {
		if o.IsFailure() {
			failures = append(failures, o)
		}
	}
	return failures
}

// CanonicalMap returns the digestable form of the result. RunID and Digest
// are excluded so the same input digests identically across runs.
func (r ValidationResult) CanonicalMap() map[string]any {
	outcomes := make([]any, len(r.Outcomes))
	for i, o := range r.Outcomes {
		m := map[string]any{
			"rule_id":  o.RuleID,
			"target":   o.Target,
			"operator": o.Operator,
			"result":   string(o.Result),
			"severity": string(o.Severity),
		}
		if o.Actual != nil {
			m["actual"] = o.Actual
		}
		if o.Reason != "" {
			m["reason"] = o.Reason
		}
		outcomes[i] = m
	}

	m := map[string]any{
		"subscriber":          r.Subscriber,
		"status":              string(r.Status),
		"outcomes":            outcomes,
		"has_multiple_orders": r.HasMultipleOrders,
		"order_count":         r.OrderCount,
	}
	if r.OrderID != "" {
		m["order_id"] = r.OrderID
	}
	if r.OrderType != "" {
		m["order_type"] = r.OrderType
	}
	if r.Error != nil {
		m["error"] = map[string]any{"code": r.Error.Code, "message": r.Error.Message}
	}
	return m
}
