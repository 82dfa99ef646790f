package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rulekit/internal/ir"
)

// sampleResult is a finished run: tap fired twice, win once, a ding per tap.
func sampleResult() *Result {
	r := NewResult()
	r.addTick(ir.TickResult{Seq: 1, Fired: []string{"tap"},
		Sounds:       []ir.SoundRequest{{RuleID: "tap", SoundID: "ding", Volume: 1}},
		ValueChanges: []ir.ValueChange{{RuleID: "tap", Kind: ir.ValueCounter, Name: "score", Before: 0.0, After: 5.0}},
	})
	r.addTick(ir.TickResult{Seq: 2})
	r.addTick(ir.TickResult{Seq: 3, Fired: []string{"tap", "win"},
		Sounds:      []ir.SoundRequest{{RuleID: "tap", SoundID: "ding", Volume: 1}},
		StateChange: &ir.StateChange{RuleID: "win", From: ir.GamePlaying, To: ir.GameSuccess},
		Diagnostics: []ir.Diagnostic{{Code: "RANGE_CLAMPED", RuleID: "win", Slot: "action"}},
	})
	r.State = FinalState{
		GameState: ir.GameSuccess,
		Counters:  map[string]float64{"score": 10},
		Flags:     map[string]bool{"door": false},
		Objects:   []ir.ObjectState{{ID: "star", Visible: false}},
	}
	return r
}

func TestAddTick_SkipsIdleTicks(t *testing.T) {
	r := sampleResult()

	assert.Equal(t, 3, r.Ticks)
	assert.Len(t, r.Results, 3)
	require.Len(t, r.Trace, 2)
	assert.Equal(t, []string{"sound ding", "counter score 0 -> 5"}, r.Trace[0].Events)
	assert.Equal(t, []string{
		"sound ding",
		"state playing -> success",
		"diagnostic RANGE_CLAMPED win",
	}, r.Trace[1].Events)
}

func TestDescribeTick_Mutations(t *testing.T) {
	res := ir.TickResult{
		Mutations: []ir.ObjectMutation{
			{ObjectID: "a", Kind: ir.MutationHide},
			{ObjectID: "b", Kind: ir.MutationMove, Movement: &ir.Movement{Type: "teleport"}},
			{ObjectID: "c", Kind: ir.MutationAnimation, Animation: &ir.AnimationChange{Index: 2}},
		},
		Effects: []ir.EffectRequest{{ObjectID: "a", Effect: ir.EffectSpec{Type: "shake"}}},
	}
	assert.Equal(t, []string{"hide a", "move b teleport", "animation c 2", "effect a shake"}, DescribeTick(res))
}

func TestEvaluateAssertion(t *testing.T) {
	tests := []struct {
		name    string
		a       Assertion
		wantErr string
	}{
		{name: "counter", a: Assertion{Type: AssertCounter, Name: "score", Value: ptr(10.0)}},
		{name: "counter mismatch", a: Assertion{Type: AssertCounter, Name: "score", Value: ptr(9.0)}, wantErr: "counter score = 9"},
		{name: "unknown counter", a: Assertion{Type: AssertCounter, Name: "lives", Value: ptr(1.0)}, wantErr: "no such counter"},
		{name: "flag", a: Assertion{Type: AssertFlag, Name: "door", Set: ptr(false)}},
		{name: "flag mismatch", a: Assertion{Type: AssertFlag, Name: "door", Set: ptr(true)}, wantErr: "flag door = true"},
		{name: "unknown flag", a: Assertion{Type: AssertFlag, Name: "key", Set: ptr(true)}, wantErr: "no such flag"},
		{name: "game state", a: Assertion{Type: AssertGameState, State: "success"}},
		{name: "game state mismatch", a: Assertion{Type: AssertGameState, State: "failure"}, wantErr: "Actual: success"},
		{name: "fired count", a: Assertion{Type: AssertFiredCount, Rule: "tap", Count: ptr(2)}},
		{name: "fired count zero", a: Assertion{Type: AssertFiredCount, Rule: "lose", Count: ptr(0)}},
		{name: "fired count mismatch", a: Assertion{Type: AssertFiredCount, Rule: "win", Count: ptr(2)}, wantErr: "1 times"},
		{name: "fired order", a: Assertion{Type: AssertFiredOrder, Rules: []string{"tap", "win"}}},
		{name: "fired order reversed", a: Assertion{Type: AssertFiredOrder, Rules: []string{"win", "tap"}}, wantErr: "win (pos 3) should be before tap (pos 1)"},
		{name: "fired order missing", a: Assertion{Type: AssertFiredOrder, Rules: []string{"tap", "lose"}}, wantErr: "rule lose never fired"},
		{name: "sound played", a: Assertion{Type: AssertSoundPlayed, Sound: "ding"}},
		{name: "sound count", a: Assertion{Type: AssertSoundPlayed, Sound: "ding", Count: ptr(2)}},
		{name: "sound count mismatch", a: Assertion{Type: AssertSoundPlayed, Sound: "ding", Count: ptr(1)}, wantErr: "2 times"},
		{name: "sound never played", a: Assertion{Type: AssertSoundPlayed, Sound: "boom"}, wantErr: "never played"},
		{name: "sound asserted absent", a: Assertion{Type: AssertSoundPlayed, Sound: "boom", Count: ptr(0)}},
		{name: "object visible", a: Assertion{Type: AssertObjectVisible, Object: "star", Visible: ptr(false)}},
		{name: "object visible mismatch", a: Assertion{Type: AssertObjectVisible, Object: "star", Visible: ptr(true)}, wantErr: "visible=false"},
		{name: "unknown object", a: Assertion{Type: AssertObjectVisible, Object: "moon", Visible: ptr(true)}, wantErr: "no such object"},
		{name: "diagnostic", a: Assertion{Type: AssertDiagnostic, Code: "RANGE_CLAMPED"}},
		{name: "diagnostic for rule", a: Assertion{Type: AssertDiagnostic, Code: "RANGE_CLAMPED", Rule: "win"}},
		{name: "diagnostic wrong rule", a: Assertion{Type: AssertDiagnostic, Code: "RANGE_CLAMPED", Rule: "tap"}, wantErr: "not reported"},
		{name: "unknown type", a: Assertion{Type: "vibes"}, wantErr: `unknown assertion type "vibes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := evaluateAssertion(tt.a, sampleResult())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckTick(t *testing.T) {
	res := ir.TickResult{
		Seq:         4,
		GameState:   ir.GamePlaying,
		Fired:       []string{"a"},
		Sounds:      []ir.SoundRequest{{SoundID: "ding"}},
		Diagnostics: []ir.Diagnostic{{Code: "UNKNOWN_KIND"}},
	}

	assert.Empty(t, checkTick(&TickExpect{}, res))
	assert.Empty(t, checkTick(&TickExpect{
		Fired:       ptr([]string{"a"}),
		GameState:   "playing",
		Sounds:      []string{"ding"},
		Diagnostics: []string{"UNKNOWN_KIND"},
	}, res))

	msgs := checkTick(&TickExpect{
		Fired:       ptr([]string{}),
		GameState:   "success",
		Sounds:      []string{},
		Diagnostics: []string{},
	}, res)
	assert.Equal(t, []string{
		"fired [a], want []",
		"game state playing, want success",
		"sounds [ding], want []",
		"diagnostics [UNKNOWN_KIND], want []",
	}, msgs)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFiredCount,
		Expected: "rule tap fired 3 times",
		Actual:   "2 times",
		Trace:    []TraceEvent{{Seq: 1, Fired: []string{"tap"}, Events: []string{"sound ding", "counter score 0 -> 5"}}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: fired_count")
	assert.Contains(t, msg, "Expected: rule tap fired 3 times")
	assert.Contains(t, msg, "Actual: 2 times")
	assert.Contains(t, msg, "[1] fired [tap] sound ding; counter score 0 -> 5")
}
