package harness

import (
	"fmt"

	"github.com/esungul/UniveralValidator/internal/engine"
)

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Errors lists every mismatch; empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Run is the batch the engine produced for the scenario's snapshots.
	Run engine.Run `json:"run"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
