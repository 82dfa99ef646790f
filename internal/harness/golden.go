package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rulekit/internal/ir"
)

// TraceSnapshot is what a golden file holds for a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	GameState    ir.GameState `json:"game_state"`
	Ticks        int          `json:"ticks"`
	Trace        []TraceEvent `json:"trace"`
}

// RunWithGolden runs a scenario and compares its trace with
// testdata/scenarios/golden/{scenario.Name}.golden, the
// layout the rulekit test command reads.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...RunOption) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace with the golden file
// for name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: name,
		GameState:    result.State.GameState,
		Ticks:        result.Ticks,
		Trace:        result.Trace,
	}
	traceJSON, err := ir.MarshalCanonical(snapshot)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/scenarios/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
