// Package engine implements the rulekit rule evaluation engine.
//
// A Session interprets the rules of one project snapshot, one host-driven
// tick at a time. Each call to Tick:
//
//  1. advances the tick clock by the host-supplied dt,
//  2. ingests the host's input batch (touches, collision pairs,
//     animation-player events),
//  3. evaluates every enabled rule in authored order and runs the actions
//     of each triggered rule in list order,
//  4. commits per-condition timing state once, after all rules ran.
//
// Nothing runs outside Tick: there are no goroutines, timers or wall-clock
// reads, so a session driven with the same snapshot, seed and inputs
// produces the same TickResults. Replay relies on this.
//
// Errors inside rules never escape Tick. Bad references, out-of-range
// parameters and unknown condition or action kinds degrade to a false
// condition or a skipped action and are reported once per session to the
// DiagnosticSink and in TickResult.Diagnostics.
//
// A Session is not safe for concurrent use.
package engine
