package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/rulekit/internal/ir"
)

// TraceEvent is the readable summary of one tick that did something.
// Ticks where nothing fired and nothing was reported are left out of the
// trace.
type TraceEvent struct {
	Seq    int64    `json:"seq"`
	Fired  []string `json:"fired,omitempty"`
	Events []string `json:"events,omitempty"`
}

// FinalState is the session as it stood after the last tick.
type FinalState struct {
	GameState ir.GameState       `json:"game_state"`
	Counters  map[string]float64 `json:"counters"`
	Flags     map[string]bool    `json:"flags"`
	Objects   []ir.ObjectState   `json:"objects"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every tick expectation and assertion held and the
	// recorded session replayed to the same hashes.
	Pass bool `json:"pass"`

	SessionID string `json:"session_id"`

	// Ticks is the number of ticks run.
	Ticks int `json:"ticks"`

	Trace []TraceEvent `json:"trace"`

	// Results holds the raw result of every tick in order.
	Results []ir.TickResult `json:"-"`

	Errors []string `json:"errors,omitempty"`

	// Warnings are non-fatal validation findings for the project.
	Warnings []string `json:"warnings,omitempty"`

	State FinalState `json:"state"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State: FinalState{
			Counters: make(map[string]float64),
			Flags:    make(map[string]bool),
			Objects:  []ir.ObjectState{},
		},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTick appends res to the raw results and, if the tick did anything
// visible, to the trace.
func (r *Result) addTick(res ir.TickResult) {
	r.Results = append(r.Results, res)
	r.Ticks++

	ev := TraceEvent{Seq: res.Seq, Fired: slices.Clone(res.Fired), Events: DescribeTick(res)}
	if len(ev.Fired) == 0 && len(ev.Events) == 0 {
		return
	}
	r.Trace = append(r.Trace, ev)
}

// DescribeTick renders the outputs of a tick as one line each, in the
// order mutations, sounds, effects, value changes, state change and
// diagnostics.
func DescribeTick(res ir.TickResult) []string {
	var out []string
	for _, m := range res.Mutations {
		switch m.Kind {
		case ir.MutationMove:
			line := fmt.Sprintf("move %s", m.ObjectID)
			if m.Movement != nil {
				line += " " + string(m.Movement.Type)
			}
			out = append(out, line)
		case ir.MutationAnimation:
			index := 0
			if m.Animation != nil {
				index = m.Animation.Index
			}
			out = append(out, fmt.Sprintf("animation %s %d", m.ObjectID, index))
		default:
			out = append(out, fmt.Sprintf("%s %s", m.Kind, m.ObjectID))
		}
	}
	for _, s := range res.Sounds {
		out = append(out, "sound "+s.SoundID)
	}
	for _, e := range res.Effects {
		out = append(out, fmt.Sprintf("effect %s %s", e.ObjectID, e.Effect.Type))
	}
	for _, c := range res.ValueChanges {
		out = append(out, fmt.Sprintf("%s %s %v -> %v", c.Kind, c.Name, c.Before, c.After))
	}
	if c := res.StateChange; c != nil {
		out = append(out, fmt.Sprintf("state %s -> %s", c.From, c.To))
	}
	for _, d := range res.Diagnostics {
		out = append(out, fmt.Sprintf("diagnostic %s %s", d.Code, d.RuleID))
	}
	return out
}
