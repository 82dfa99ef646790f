// Package harness runs scripted play sessions against the rule engine.
//
// A scenario names a project, the objects on stage, and a list of ticks
// with the host inputs each tick receives. Run plays it through a fresh
// engine session, records every tick to a session log, and checks:
//
//   - per-tick expectations (which rules fired, sounds, diagnostics)
//   - whole-run assertions (counters, flags, game state, firing order)
//   - that the recorded session replays to the same tick hashes
//
// Golden files under testdata/scenarios/golden pin the readable trace of a run:
//
//	go test ./internal/harness -update
package harness
