package testutil

import (
	"sync"

	"github.com/roach88/rulekit/internal/ir"
)

// Rule builds an enabled AND rule.
func Rule(id, target string, conds []ir.Condition, actions ...ir.Action) ir.Rule {
	return ir.Rule{
		ID:             id,
		Name:           id,
		TargetObjectID: target,
		Enabled:        true,
		Triggers:       ir.TriggerSet{Conditions: conds, Operator: ir.OperatorAnd},
		Actions:        actions,
	}
}

// OrRule builds an enabled OR rule.
func OrRule(id, target string, conds []ir.Condition, actions ...ir.Action) ir.Rule {
	r := Rule(id, target, conds, actions...)
	r.Triggers.Operator = ir.OperatorOr
	return r
}

// When is shorthand for a condition list.
func When(conds ...ir.Condition) []ir.Condition {
	return conds
}

// Snapshot builds a snapshot from rules with no counters or flags.
func Snapshot(rules ...ir.Rule) *ir.Snapshot {
	return &ir.Snapshot{Rules: rules, Counters: []ir.Counter{}, Flags: []ir.Flag{}}
}

// WithCounter adds an unbounded counter named name.
func WithCounter(snap *ir.Snapshot, name string, initial float64) *ir.Snapshot {
	snap.Counters = append(snap.Counters, ir.Counter{ID: "c-" + name, Name: name, InitialValue: initial, CurrentValue: initial})
	return snap
}

// WithBoundedCounter adds a counter clamped to [min, max].
func WithBoundedCounter(snap *ir.Snapshot, name string, initial, min, max float64) *ir.Snapshot {
	snap.Counters = append(snap.Counters, ir.Counter{
		ID:           "c-" + name,
		Name:         name,
		InitialValue: initial,
		Min:          ir.Float(min),
		Max:          ir.Float(max),
		CurrentValue: initial,
	})
	return snap
}

// WithFlag adds a flag named name.
func WithFlag(snap *ir.Snapshot, name string) *ir.Snapshot {
	snap.Flags = append(snap.Flags, ir.Flag{ID: "f-" + name, Name: name})
	return snap
}

// Object builds a visible object with its top-left corner at (x, y).
func Object(id string, x, y, w, h float64) ir.ObjectState {
	return ir.ObjectState{ID: id, X: x, Y: y, Width: w, Height: h, Visible: true}
}

// TouchDown builds an input batch with one touchDown on target.
func TouchDown(target string) ir.Inputs {
	return ir.Inputs{Touches: []ir.TouchEvent{{Type: ir.TouchPhaseDown, Target: target}}}
}

// TouchUp builds an input batch with one touchUp on target.
func TouchUp(target string) ir.Inputs {
	return ir.Inputs{Touches: []ir.TouchEvent{{Type: ir.TouchPhaseUp, Target: target}}}
}

// DiagnosticRecorder collects diagnostics. It satisfies
// engine.DiagnosticSink.
//
// Thread-safety: safe for concurrent use via internal mutex.
type DiagnosticRecorder struct {
	mu    sync.Mutex
	diags []ir.Diagnostic
}

// Report records d.
func (r *DiagnosticRecorder) Report(d ir.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

// All returns a copy of the recorded diagnostics.
func (r *DiagnosticRecorder) All() []ir.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ir.Diagnostic(nil), r.diags...)
}

// Codes returns the recorded diagnostic codes in order.
func (r *DiagnosticRecorder) Codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, len(r.diags))
	for i, d := range r.diags {
		codes[i] = d.Code
	}
	return codes
}
