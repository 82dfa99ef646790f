package store

import (
	"context"
	"fmt"

	"github.com/roach88/rulekit/internal/engine"
	"github.com/roach88/rulekit/internal/ir"
)

// Recording is a stored session loaded back for replay.
type Recording struct {
	Session  SessionRecord
	Snapshot *ir.Snapshot
	Ticks    []engine.RecordedTick
}

// LoadRecording reads a session, its snapshot and its ticks.
func (s *Store) LoadRecording(ctx context.Context, sessionID string) (*Recording, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load recording: %w", err)
	}
	snap, err := s.ReadSnapshot(ctx, sess.SnapshotHash)
	if err != nil {
		return nil, fmt.Errorf("load recording: %w", err)
	}
	ticks, err := s.ReadTicks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load recording: %w", err)
	}

	rec := &Recording{
		Session:  sess,
		Snapshot: snap,
		Ticks:    make([]engine.RecordedTick, len(ticks)),
	}
	for i, t := range ticks {
		rec.Ticks[i] = engine.RecordedTick{
			Seq:          t.Seq,
			Dt:           t.Dt,
			WorldUpdates: t.WorldUpdates,
			Inputs:       t.Inputs,
			ResultHash:   t.ResultHash,
		}
	}
	return rec, nil
}

// Replay re-runs the recording with its seed and post-terminal policy.
// Extra options are applied after those.
func (r *Recording) Replay(opts ...engine.Option) (*engine.ReplayReport, error) {
	base := []engine.Option{
		engine.WithSeed(r.Session.Seed),
		engine.WithPostTerminalRules(r.Session.PostTerminalRules),
	}
	return engine.Replay(r.Snapshot, r.Session.Objects, r.Ticks, append(base, opts...)...)
}

// ReplaySession loads and replays a stored session.
func (s *Store) ReplaySession(ctx context.Context, sessionID string) (*engine.ReplayReport, error) {
	rec, err := s.LoadRecording(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return rec.Replay()
}
