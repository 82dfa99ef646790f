// Package store is the SQLite session log used for traces and replay.
//
// The log has three tables:
//   - snapshots: content-addressed project snapshots (canonical JSON)
//   - sessions: one row per play session (snapshot, seed, initial objects)
//   - ticks: the host inputs and canonical result of every tick
//
// # Determinism
//
// Ticks are keyed and ordered by (session_id, seq). Seq is the session's
// logical tick counter; wall-clock time is never stored. Every query
// orders explicitly so traces read back identically.
//
// Results are stored as RFC 8785 canonical JSON next to their
// ir.TickHash, which is what replay compares.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
