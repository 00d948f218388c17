package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/esungul/UniveralValidator/internal/engine"
	"github.com/esungul/UniveralValidator/internal/rules"
	"github.com/esungul/UniveralValidator/internal/testutil"
)

// Run validates the scenario's snapshots with the real engine and checks
// every expectation.
//
// Runs are deterministic: the run id is fixed, the clock starts at
// testutil.Epoch and advances one second per reading, and logs are
// discarded. The returned error is reserved for scenarios that cannot run
// (unreadable or invalid rules); mismatches are reported on the Result.
func Run(scenario *Scenario) (*Result, error) {
	rs, err := rules.LoadFile(scenario.RulesPath())
	if err != nil {
		return nil, fmt.Errorf("load rules for %s: %w", scenario.Name, err)
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	eng := engine.New(rules.NewRegistry(rs),
		engine.WithRunIDs(testutil.FixedRunID(runID)),
		engine.WithClock(testutil.NewStepClock(testutil.Epoch, time.Second).Now),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	result := NewResult()
	result.Run = eng.ValidateAll(context.Background(), scenario.Snapshots)

	for _, exp := range scenario.Expect {
		checkExpectation(result, exp)
	}
	if scenario.Summary != nil {
		checkSummary(result, *scenario.Summary)
	}
	return result, nil
}
