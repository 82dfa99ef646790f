package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rulekit/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent // for context in the message
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] fired %v", ev.Seq, ev.Fired)
			if len(ev.Events) > 0 {
				fmt.Fprintf(&buf, " %s", strings.Join(ev.Events, "; "))
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

func evaluateAssertion(a Assertion, r *Result) error {
	switch a.Type {
	case AssertCounter:
		return assertCounter(a, r)
	case AssertFlag:
		return assertFlag(a, r)
	case AssertGameState:
		if got := r.State.GameState; got != ir.GameState(a.State) {
			return &AssertionError{Type: a.Type, Expected: a.State, Actual: string(got), Trace: r.Trace}
		}
		return nil
	case AssertFiredCount:
		got := firedCount(r.Results, a.Rule)
		if got != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("rule %s fired %d times", a.Rule, *a.Count),
				Actual:   fmt.Sprintf("%d times", got),
				Trace:    r.Trace,
			}
		}
		return nil
	case AssertFiredOrder:
		return assertFiredOrder(a, r)
	case AssertSoundPlayed:
		return assertSoundPlayed(a, r)
	case AssertObjectVisible:
		return assertObjectVisible(a, r)
	case AssertDiagnostic:
		for _, res := range r.Results {
			for _, d := range res.Diagnostics {
				if d.Code == a.Code && (a.Rule == "" || d.RuleID == a.Rule) {
					return nil
				}
			}
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("diagnostic %s", a.Code),
			Actual:   "not reported",
			Trace:    r.Trace,
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertCounter(a Assertion, r *Result) error {
	got, ok := r.State.Counters[a.Name]
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("counter %s = %v", a.Name, *a.Value),
			Actual:   "no such counter",
		}
	}
	if got != *a.Value {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("counter %s = %v", a.Name, *a.Value),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertFlag(a Assertion, r *Result) error {
	got, ok := r.State.Flags[a.Name]
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("flag %s = %v", a.Name, *a.Set),
			Actual:   "no such flag",
		}
	}
	if got != *a.Set {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("flag %s = %v", a.Name, *a.Set),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    r.Trace,
		}
	}
	return nil
}

// assertFiredOrder checks that the first firing of each rule happens in
// the listed order. Within a tick, rules fire in definition order.
func assertFiredOrder(a Assertion, r *Result) error {
	positions := make(map[string]int)
	pos := 0
	for _, res := range r.Results {
		for _, id := range res.Fired {
			pos++
			if _, seen := positions[id]; !seen {
				positions[id] = pos
			}
		}
	}

	for _, id := range a.Rules {
		if _, ok := positions[id]; !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("all rules fired: %v", a.Rules),
				Actual:   fmt.Sprintf("rule %s never fired", id),
				Trace:    r.Trace,
			}
		}
	}
	for i := 1; i < len(a.Rules); i++ {
		prev, curr := a.Rules[i-1], a.Rules[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("rules fired in order: %v", a.Rules),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: r.Trace,
			}
		}
	}
	return nil
}

// assertSoundPlayed checks that a sound was requested, exactly Count
// times when Count is set.
func assertSoundPlayed(a Assertion, r *Result) error {
	n := 0
	for _, res := range r.Results {
		for _, s := range res.Sounds {
			if s.SoundID == a.Sound {
				n++
			}
		}
	}
	switch {
	case a.Count != nil && n != *a.Count:
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("sound %s played %d times", a.Sound, *a.Count),
			Actual:   fmt.Sprintf("%d times", n),
			Trace:    r.Trace,
		}
	case a.Count == nil && n == 0:
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("sound %s played", a.Sound),
			Actual:   "never played",
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertObjectVisible(a Assertion, r *Result) error {
	i := slices.IndexFunc(r.State.Objects, func(o ir.ObjectState) bool { return o.ID == a.Object })
	if i < 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("object %s visible=%v", a.Object, *a.Visible),
			Actual:   "no such object",
		}
	}
	if got := r.State.Objects[i].Visible; got != *a.Visible {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("object %s visible=%v", a.Object, *a.Visible),
			Actual:   fmt.Sprintf("visible=%v", got),
			Trace:    r.Trace,
		}
	}
	return nil
}

func firedCount(results []ir.TickResult, rule string) int {
	n := 0
	for _, res := range results {
		for _, id := range res.Fired {
			if id == rule {
				n++
			}
		}
	}
	return n
}

// checkTick compares one tick result with its expectation and returns a
// message per mismatch.
func checkTick(exp *TickExpect, res ir.TickResult) []string {
	var msgs []string
	if exp.Fired != nil {
		if want := *exp.Fired; !slices.Equal(want, res.Fired) {
			msgs = append(msgs, fmt.Sprintf("fired %v, want %v", res.Fired, want))
		}
	}
	if exp.GameState != "" && res.GameState != ir.GameState(exp.GameState) {
		msgs = append(msgs, fmt.Sprintf("game state %s, want %s", res.GameState, exp.GameState))
	}
	if exp.Sounds != nil {
		got := make([]string, len(res.Sounds))
		for i, s := range res.Sounds {
			got[i] = s.SoundID
		}
		if !slices.Equal(got, exp.Sounds) {
			msgs = append(msgs, fmt.Sprintf("sounds %v, want %v", got, exp.Sounds))
		}
	}
	if exp.Diagnostics != nil {
		got := make([]string, len(res.Diagnostics))
		for i, d := range res.Diagnostics {
			got[i] = d.Code
		}
		if !slices.Equal(got, exp.Diagnostics) {
			msgs = append(msgs, fmt.Sprintf("diagnostics %v, want %v", got, exp.Diagnostics))
		}
	}
	return msgs
}
