package engine

import (
	"fmt"

	"github.com/roach88/rulekit/internal/ir"
)

// RecordedTick is one tick of a recorded session: what the host fed in,
// and the hash of what the engine produced.
type RecordedTick struct {
	Seq int64
	Dt  float64

	// WorldUpdates are host object changes applied to the world before
	// the tick ran (objects moved by the host, frames advanced).
	WorldUpdates []ir.ObjectState
	Inputs       ir.Inputs
	ResultHash   string
}

// ReplayReport summarizes a replay.
type ReplayReport struct {
	Ticks     int
	Match     bool
	GameState ir.GameState

	// DivergedAt is the seq of the first tick whose result hash differs
	// from the recording; 0 when every tick matched.
	DivergedAt int64
	Expected   string
	Actual     string
	Result     *ir.TickResult
}

// Replay re-runs a recorded session from its snapshot, initial objects,
// seed and inputs and compares every tick's result hash. It stops at the
// first divergence.
//
// Because ticks depend only on the snapshot, seed, dt sequence and
// inputs, a faithful recording always replays with Match true. A
// mismatch means the snapshot, the engine version or the recording
// changed.
func Replay(snap *ir.Snapshot, objects []ir.ObjectState, ticks []RecordedTick, opts ...Option) (*ReplayReport, error) {
	world := NewMemoryWorld(objects...)
	opts = append(opts,
		WithWorld(world),
		WithSessionIDGenerator(NewFixedGenerator("replay")),
		WithDiagnostics(DiagnosticFunc(func(ir.Diagnostic) {})),
	)
	s, err := NewSession(snap, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if err := s.Start(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	report := &ReplayReport{Match: true}
	for _, rt := range ticks {
		for _, o := range rt.WorldUpdates {
			world.Put(o)
		}
		res := s.Tick(rt.Dt, rt.Inputs)
		report.Ticks++

		if rt.Seq != 0 && res.Seq != rt.Seq {
			return nil, fmt.Errorf("replay: recorded seq %d replayed as %d", rt.Seq, res.Seq)
		}
		actual, err := ir.TickHash(res)
		if err != nil {
			return nil, fmt.Errorf("replay: tick %d: %w", res.Seq, err)
		}
		if actual != rt.ResultHash {
			report.Match = false
			report.DivergedAt = res.Seq
			report.Expected = rt.ResultHash
			report.Actual = actual
			report.Result = &res
			break
		}
	}
	report.GameState = s.GameState()
	s.Stop()
	return report, nil
}
