package engine

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/testutil"
)

// newTestSession creates a started session with a fixed seed and a
// recording diagnostics sink.
func newTestSession(t *testing.T, snap *ir.Snapshot, opts ...Option) (*Session, *testutil.DiagnosticRecorder) {
	t.Helper()
	rec := &testutil.DiagnosticRecorder{}
	base := []Option{
		WithSeed(1),
		WithDiagnostics(rec),
		WithSessionIDGenerator(testutil.NewFixedSessionID("test-session")),
	}
	s, err := NewSession(snap, append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	return s, rec
}

func counterValue(t *testing.T, s *Session, name string) float64 {
	t.Helper()
	v, err := s.Values().Counter(name)
	require.NoError(t, err)
	return v
}

func TestSession_Lifecycle(t *testing.T) {
	s, err := NewSession(testutil.Snapshot(), WithSessionIDGenerator(NewFixedGenerator("s-1")))
	require.NoError(t, err)
	assert.Equal(t, "s-1", s.ID())
	assert.Equal(t, PhaseIdle, s.Phase())

	require.NoError(t, s.Start())
	assert.Equal(t, PhaseRunning, s.Phase())
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)

	res := s.Tick(0.5, ir.Inputs{})
	assert.Equal(t, int64(1), res.Seq)
	assert.Equal(t, 0.5, res.Elapsed)
	assert.True(t, res.Evaluated)

	s.Stop()
	s.Stop()
	assert.Equal(t, PhaseStopped, s.Phase())

	res = s.Tick(0.5, ir.Inputs{})
	assert.Equal(t, int64(1), res.Seq, "stopped session does not advance")
	assert.False(t, res.Evaluated)
}

func TestSession_StopLogsSummary(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	snap := testutil.Snapshot(
		testutil.Rule("pick", "x", nil, ir.RandomAction{Actions: ir.ActionList{
			ir.AddScoreAction{Points: 1},
			ir.AddScoreAction{Points: 2},
		}}),
		testutil.Rule("end", "x", nil, ir.SuccessAction{}),
	)
	s, rec := newTestSession(t, snap)
	s.Tick(-1, ir.Inputs{})
	require.Len(t, rec.All(), 1)
	s.Stop()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	assert.Equal(t, "session stopped", entry["msg"])
	assert.Equal(t, "test-session", entry["session_id"])
	assert.Equal(t, 1.0, entry["rng_draws"])
	assert.Equal(t, 1.0, entry["diagnostics"])
	assert.Equal(t, "end", entry["decided_by"])
}

func TestSession_TickAutoStarts(t *testing.T) {
	s, err := NewSession(testutil.Snapshot(), WithSessionIDGenerator(NewFixedGenerator("s")))
	require.NoError(t, err)

	s.Tick(0.1, ir.Inputs{})
	assert.Equal(t, PhaseRunning, s.Phase())
}

func TestSession_StartResetsValues(t *testing.T) {
	snap := testutil.Snapshot()
	snap.Counters = []ir.Counter{{ID: "c", Name: "coins", InitialValue: 2, CurrentValue: 99}}
	snap.Flags = []ir.Flag{{ID: "f", Name: "door", CurrentValue: true}}

	s, _ := newTestSession(t, snap)
	assert.Equal(t, 2.0, counterValue(t, s, "coins"))
	door, err := s.Values().Flag("door")
	require.NoError(t, err)
	assert.False(t, door)
	assert.Equal(t, 0.0, counterValue(t, s, "score"), "score counter is provisioned")
}

func TestNewSession_DuplicateRuleIDs(t *testing.T) {
	snap := testutil.Snapshot(
		testutil.Rule("r1", "a", nil),
		testutil.Rule("r1", "b", nil),
	)
	_, err := NewSession(snap, WithSessionIDGenerator(NewFixedGenerator("s")))
	require.ErrorIs(t, err, ErrDuplicateRuleID)
}

func TestNewSession_NilSnapshot(t *testing.T) {
	_, err := NewSession(nil)
	require.Error(t, err)
}

func TestSession_SnapshotIsCopied(t *testing.T) {
	snap := testutil.Snapshot(testutil.Rule("r1", "a", nil, ir.AddScoreAction{Points: 1}))
	s, _ := newTestSession(t, snap)

	snap.Rules[0].Enabled = false
	res := s.Tick(0.1, ir.Inputs{})
	assert.Equal(t, []string{"r1"}, res.Fired)
}

func TestSession_InvalidDt(t *testing.T) {
	s, rec := newTestSession(t, testutil.Snapshot())

	for _, dt := range []float64{-1, math.NaN(), math.Inf(1)} {
		res := s.Tick(dt, ir.Inputs{})
		assert.Equal(t, 0.0, res.Elapsed)
	}
	assert.Equal(t, []string{string(ErrCodeInvalidParameter)}, rec.Codes(), "reported once")
}

func TestSession_RandomSeedIsRecorded(t *testing.T) {
	a, err := NewSession(testutil.Snapshot(), WithSessionIDGenerator(NewFixedGenerator("a")))
	require.NoError(t, err)
	b, err := NewSession(testutil.Snapshot(), WithSessionIDGenerator(NewFixedGenerator("b")), WithSeed(a.Seed()))
	require.NoError(t, err)
	assert.Equal(t, a.Seed(), b.Seed())
}

// Property: counters with bounds stay inside them after any action sequence.
func TestProperty_CounterBoundsHold(t *testing.T) {
	snap := testutil.Snapshot(testutil.Rule("chaos", "x", nil,
		ir.RandomAction{Actions: ir.ActionList{
			ir.CounterAction{CounterName: "hp", Operation: ir.CounterAdd, Value: 7},
			ir.CounterAction{CounterName: "hp", Operation: ir.CounterSubtract, Value: 9},
			ir.CounterAction{CounterName: "hp", Operation: ir.CounterMultiply, Value: -3},
			ir.CounterAction{CounterName: "hp", Operation: ir.CounterSet, Value: 250},
			ir.CounterAction{CounterName: "hp", Operation: ir.CounterSet, Value: -250},
		}},
	))
	testutil.WithBoundedCounter(snap, "hp", 50, 0, 100)

	s, _ := newTestSession(t, snap, WithSeed(42))
	for i := 0; i < 2000; i++ {
		s.Tick(1.0/60, ir.Inputs{})
		hp := counterValue(t, s, "hp")
		require.GreaterOrEqual(t, hp, 0.0, "tick %d", i)
		require.LessOrEqual(t, hp, 100.0, "tick %d", i)
	}
}

// Property: time.range{2,5} is true exactly while 2 <= elapsed <= 5.
func TestProperty_TimeRangeInclusive(t *testing.T) {
	snap := testutil.Snapshot(testutil.Rule("window", "x",
		testutil.When(ir.TimeCondition{TimeType: ir.TimeRange, Range: &ir.TimeWindow{Min: 2, Max: 5}})))
	s, _ := newTestSession(t, snap)

	for i := 0; i < 14; i++ {
		res := s.Tick(0.5, ir.Inputs{})
		inside := res.Elapsed >= 2 && res.Elapsed <= 5
		assert.Equal(t, inside, len(res.Fired) == 1, "elapsed %v", res.Elapsed)
	}
}

// Property: time.exact{3} fires on exactly one tick, the first at or past 3s.
func TestProperty_TimeExactFiresOnce(t *testing.T) {
	snap := testutil.Snapshot(testutil.Rule("mark", "x",
		testutil.When(ir.TimeCondition{TimeType: ir.TimeExact, Seconds: 3})))
	s, _ := newTestSession(t, snap)

	var firedAt []float64
	for i := 0; i < 40; i++ {
		res := s.Tick(0.3, ir.Inputs{})
		if len(res.Fired) > 0 {
			firedAt = append(firedAt, res.Elapsed)
		}
	}
	require.Len(t, firedAt, 1)
	assert.InDelta(t, 3.0, firedAt[0], 1e-9)
}

// Property: empty AND always triggers, empty OR never does.
func TestProperty_EmptyConditionDefaults(t *testing.T) {
	snap := testutil.Snapshot(
		testutil.Rule("and", "x", nil),
		testutil.OrRule("or", "x", nil),
	)
	snap.Rules = append(snap.Rules, ir.Rule{ID: "implicit", Enabled: true})
	s, _ := newTestSession(t, snap)

	for i := 0; i < 5; i++ {
		res := s.Tick(0.1, ir.Inputs{})
		assert.Equal(t, []string{"and", "implicit"}, res.Fired)
	}
}

// Property: randomAction picks each nested action with frequency about 1/N.
func TestProperty_RandomActionUniform(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	var nested ir.ActionList
	snap := testutil.Snapshot()
	for _, n := range names {
		nested = append(nested, ir.CounterAction{CounterName: n, Operation: ir.CounterAdd, Value: 1})
		testutil.WithCounter(snap, n, 0)
	}
	snap.Rules = []ir.Rule{testutil.Rule("pick", "x", nil, ir.RandomAction{Actions: nested})}

	s, _ := newTestSession(t, snap, WithSeed(2024))
	const runs = 8000
	for i := 0; i < runs; i++ {
		s.Tick(0.01, ir.Inputs{})
	}

	expected := float64(runs) / float64(len(names))
	total := 0.0
	for _, n := range names {
		got := counterValue(t, s, n)
		total += got
		assert.InDelta(t, expected, got, expected*0.1, "counter %s", n)
	}
	assert.Equal(t, float64(runs), total, "exactly one nested action per run")
}

// Property: disabled rules never trigger.
func TestProperty_DisabledRulesNeverTrigger(t *testing.T) {
	r := testutil.Rule("off", "x", nil, ir.SuccessAction{})
	r.Enabled = false
	s, _ := newTestSession(t, testutil.Snapshot(r))

	for i := 0; i < 10; i++ {
		res := s.Tick(0.1, testutil.TouchDown("x"))
		assert.Empty(t, res.Fired)
	}
	assert.Equal(t, ir.GamePlaying, s.GameState())
}

// Property: rules apply in definition order within a tick.
func TestProperty_DefinitionOrder(t *testing.T) {
	snap := testutil.Snapshot(
		testutil.Rule("a", "x", nil, ir.CounterAction{CounterName: "n", Operation: ir.CounterSet, Value: 5}),
		testutil.Rule("b", "x", nil, ir.CounterAction{CounterName: "n", Operation: ir.CounterMultiply, Value: 2}),
	)
	testutil.WithCounter(snap, "n", 0)
	s, _ := newTestSession(t, snap)

	res := s.Tick(0.1, ir.Inputs{})
	assert.Equal(t, []string{"a", "b"}, res.Fired)
	assert.Equal(t, 10.0, counterValue(t, s, "n"), "set then multiply, not multiply then set")
	require.Len(t, res.ValueChanges, 2)
	assert.Equal(t, "a", res.ValueChanges[0].RuleID)
	assert.Equal(t, "b", res.ValueChanges[1].RuleID)
}

// End to end: two touches of +5 reach the success threshold, and the
// terminal state survives a third touch.
func TestEndToEnd_ScoreReachesSuccess(t *testing.T) {
	snap := testutil.Snapshot(
		testutil.Rule("win", "stage",
			testutil.When(ir.CounterCondition{CounterName: "score", Comparison: ir.CompareGreaterOrEqual, Value: 10}),
			ir.SuccessAction{Message: "well done"}),
		testutil.Rule("tap", "button",
			testutil.When(ir.TouchCondition{TouchType: ir.TouchDown}),
			ir.CounterAction{CounterName: "score", Operation: ir.CounterAdd, Value: 5}),
	)
	testutil.WithCounter(snap, "score", 0)
	s, _ := newTestSession(t, snap)

	s.Tick(0.1, testutil.TouchDown("button"))
	s.Tick(0.1, testutil.TouchUp("button"))
	res := s.Tick(0.1, testutil.TouchDown("button"))
	assert.Equal(t, 10.0, counterValue(t, s, "score"))
	assert.Equal(t, ir.GamePlaying, res.GameState, "win rule is evaluated before tap")

	res = s.Tick(0.1, testutil.TouchUp("button"))
	assert.Equal(t, ir.GameSuccess, res.GameState)
	require.NotNil(t, res.StateChange)
	assert.Equal(t, ir.StateChange{RuleID: "win", From: ir.GamePlaying, To: ir.GameSuccess, Message: "well done"}, *res.StateChange)
	assert.Equal(t, PhaseSuccess, s.Phase())

	res = s.Tick(0.1, testutil.TouchDown("button"))
	assert.Equal(t, ir.GameSuccess, res.GameState)
	assert.False(t, res.Evaluated)
	assert.Empty(t, res.Fired)
	assert.Equal(t, 10.0, counterValue(t, s, "score"), "no rules run after a terminal state")
}

func TestTerminalState_ActionsAfterSuccessStillRun(t *testing.T) {
	snap := testutil.Snapshot(testutil.Rule("end", "x", nil,
		ir.SuccessAction{},
		ir.FailureAction{},
		ir.AddScoreAction{Points: 3},
	))
	s, _ := newTestSession(t, snap)

	res := s.Tick(0.1, ir.Inputs{})
	assert.Equal(t, ir.GameSuccess, res.GameState, "first terminal state wins")
	assert.Equal(t, 3.0, counterValue(t, s, "score"))
}

func TestTerminalState_PostTerminalRules(t *testing.T) {
	snap := testutil.Snapshot(
		testutil.Rule("end", "x", testutil.When(ir.TimeCondition{TimeType: ir.TimeExact, Seconds: 0.1}), ir.FailureAction{}),
		testutil.Rule("after", "x",
			testutil.When(ir.GameStateCondition{State: ir.GameFailure}),
			ir.AddScoreAction{Points: 1}),
	)

	t.Run("disabled by default", func(t *testing.T) {
		s, _ := newTestSession(t, snap)
		for i := 0; i < 5; i++ {
			s.Tick(0.1, ir.Inputs{})
		}
		// The failure rule and the gameState rule both run on tick 1.
		assert.Equal(t, 1.0, counterValue(t, s, "score"))
	})

	t.Run("enabled", func(t *testing.T) {
		s, _ := newTestSession(t, snap, WithPostTerminalRules(true))
		for i := 0; i < 5; i++ {
			s.Tick(0.1, ir.Inputs{})
		}
		assert.Equal(t, 5.0, counterValue(t, s, "score"))
		assert.True(t, s.PostTerminalRules())
	})
}

// Property: collision.stay holds while boxes overlap and drops on the
// first separated tick; enter and exit fire on the transitions.
func TestProperty_CollisionEdges(t *testing.T) {
	snap := testutil.Snapshot(
		testutil.Rule("enter", "cat", testutil.When(ir.CollisionCondition{Target: "mouse", CollisionType: ir.CollisionEnter})),
		testutil.Rule("stay", "cat", testutil.When(ir.CollisionCondition{Target: "mouse", CollisionType: ir.CollisionStay})),
		testutil.Rule("exit", "cat", testutil.When(ir.CollisionCondition{Target: "mouse", CollisionType: ir.CollisionExit})),
	)
	world := NewMemoryWorld(
		testutil.Object("cat", 0.0, 0.0, 0.2, 0.2),
		testutil.Object("mouse", 0.5, 0.0, 0.2, 0.2),
	)
	s, _ := newTestSession(t, snap, WithWorld(world))

	steps := []struct {
		mouseX float64
		fired  []string
	}{
		{0.5, nil},
		{0.1, []string{"enter", "stay"}},
		{0.15, []string{"stay"}},
		{0.05, []string{"stay"}},
		{0.6, []string{"exit"}},
		{0.6, nil},
		{0.19, []string{"enter", "stay"}},
	}
	for i, step := range steps {
		world.Put(testutil.Object("mouse", step.mouseX, 0.0, 0.2, 0.2))
		res := s.Tick(1.0/60, ir.Inputs{})
		assert.Equal(t, step.fired, res.Fired, "step %d", i)
	}
}
