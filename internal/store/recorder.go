package store

import (
	"context"
	"fmt"

	"github.com/roach88/rulekit/internal/engine"
	"github.com/roach88/rulekit/internal/ir"
)

// Recorder appends the ticks of one live session to the log.
type Recorder struct {
	store     *Store
	sessionID string
}

// BeginSession stores snap and a session row for sess, and returns a
// Recorder for its ticks. objects is the world as it was before the first
// tick.
func (s *Store) BeginSession(ctx context.Context, snap *ir.Snapshot, sess *engine.Session, objects []ir.ObjectState, label string) (*Recorder, error) {
	hash, err := s.WriteSnapshot(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}

	err = s.CreateSession(ctx, SessionRecord{
		ID:                sess.ID(),
		SnapshotHash:      hash,
		Seed:              sess.Seed(),
		PostTerminalRules: sess.PostTerminalRules(),
		Objects:           objects,
		EngineVersion:     ir.EngineVersion,
		SnapshotVersion:   ir.SnapshotVersion,
		Label:             label,
	})
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	return &Recorder{store: s, sessionID: sess.ID()}, nil
}

// SessionID returns the id ticks are recorded under.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Record appends one tick. in must be the batch passed to Tick, and
// updates the world changes applied just before it.
func (r *Recorder) Record(ctx context.Context, dt float64, updates []ir.ObjectState, in ir.Inputs, res ir.TickResult) error {
	return r.store.WriteTick(ctx, TickRecord{
		SessionID:    r.sessionID,
		Seq:          res.Seq,
		Dt:           dt,
		WorldUpdates: updates,
		Inputs:       in,
		Result:       res,
	})
}
