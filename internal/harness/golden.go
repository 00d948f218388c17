package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/esungul/UniveralValidator/internal/ir"
)

// Snapshot is the golden form of a scenario run: the canonical results in
// batch order. Run ids, timestamps and digests are left out so goldens
// survive rule-file edits that do not change outcomes.
func Snapshot(name string, result *Result) ([]byte, error) {
	results := make([]any, len(result.Run.Results))
	for i, r := range result.Run.Results {
		results[i] = r.CanonicalMap()
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario": name,
		"results":  results,
	})
}

// RunWithGolden runs a scenario and compares its snapshot against
// testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
