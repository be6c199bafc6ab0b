package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/trustlog/internal/op"
)

// GoldenJSON returns the canonical JSON recorded in golden files: the
// scenario name, the final state and every dropped operation.
func GoldenJSON(scenarioName string, result *Result) ([]byte, error) {
	drops := make([]any, len(result.Drops))
	for i, d := range result.Drops {
		drops[i] = map[string]any{
			"operation_id": d.OperationID,
			"code":         string(d.Code),
			"seq":          d.Seq,
		}
	}
	return op.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"state":         result.Snapshot.State.Canonical(),
		"drops":         drops,
	})
}

// RunWithGolden executes a scenario and compares its final state against
// testdata/golden/{scenario.Name}.golden.
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
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
