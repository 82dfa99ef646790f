package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/rulekit/internal/ir"
)

// DiagnosticSink receives runtime diagnostics. Report is called from
// within Tick and must not call back into the session.
type DiagnosticSink interface {
	Report(d ir.Diagnostic)
}

// DiagnosticFunc adapts a function to DiagnosticSink.
type DiagnosticFunc func(d ir.Diagnostic)

// Report calls f(d).
func (f DiagnosticFunc) Report(d ir.Diagnostic) { f(d) }

// SlogSink logs each diagnostic as a warning. A nil Logger uses
// slog.Default().
type SlogSink struct {
	Logger *slog.Logger
}

// Report implements DiagnosticSink.
func (s SlogSink) Report(d ir.Diagnostic) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Warn(d.Message,
		"code", d.Code,
		"rule_id", d.RuleID,
		"slot", d.Slot,
		"index", d.Index,
	)
}

// reporter forwards each distinct (rule, slot, index, code) once per
// session. Repeats in later ticks are dropped so a broken rule that is
// evaluated every frame does not flood the sink.
type reporter struct {
	sink    DiagnosticSink
	history map[string]bool
}

func newReporter(sink DiagnosticSink) *reporter {
	return &reporter{
		sink:    sink,
		history: make(map[string]bool),
	}
}

// report records e in res and the sink unless it was already seen.
// It reports whether e was new.
func (r *reporter) report(res *ir.TickResult, e *RuntimeError) bool {
	key := fmt.Sprintf("%s\x00%s\x00%d\x00%s", e.RuleID, e.Slot, e.Index, e.Code)
	if r.history[key] {
		return false
	}
	r.history[key] = true

	d := e.Diagnostic()
	if res != nil {
		res.Diagnostics = append(res.Diagnostics, d)
	}
	if r.sink != nil {
		r.sink.Report(d)
	}
	return true
}

// size returns the number of distinct diagnostics reported.
func (r *reporter) size() int {
	return len(r.history)
}
