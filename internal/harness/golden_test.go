package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rulekit/internal/ir"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"tap_to_win", "timer_flag"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	result, err := Run(loadTestScenario(t, "tap_to_win"))
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, "tap_to_win", result))
}

func TestTraceSnapshot_CanonicalJSON(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "s",
		GameState:    ir.GamePlaying,
		Ticks:        2,
		Trace: []TraceEvent{
			{Seq: 2, Fired: []string{"b", "a"}, Events: []string{"sound <ding>"}},
		},
	}

	got, err := ir.MarshalCanonical(snap)
	require.NoError(t, err)
	assert.Equal(t,
		`{"game_state":"playing","scenario_name":"s","ticks":2,"trace":[{"events":["sound <ding>"],"fired":["b","a"],"seq":2}]}`,
		string(got))
}

func TestTraceSnapshot_EmptyTrace(t *testing.T) {
	result := NewResult()
	snap := TraceSnapshot{ScenarioName: "idle", GameState: ir.GamePlaying, Trace: result.Trace}

	got, err := ir.MarshalCanonical(snap)
	require.NoError(t, err)
	assert.Equal(t, `{"game_state":"playing","scenario_name":"idle","ticks":0,"trace":[]}`, string(got))
}
