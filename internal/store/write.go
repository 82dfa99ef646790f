package store

import (
	"context"
	"fmt"

	"github.com/roach88/rulekit/internal/ir"
)

// SessionRecord describes a recorded play session: everything needed to
// rebuild it except the ticks.
type SessionRecord struct {
	ID                string           `json:"id"`
	SnapshotHash      string           `json:"snapshot_hash"`
	Seed              uint64           `json:"seed"`
	PostTerminalRules bool             `json:"post_terminal_rules"`
	Objects           []ir.ObjectState `json:"objects"`
	EngineVersion     string           `json:"engine_version"`
	SnapshotVersion   string           `json:"snapshot_version"`
	Label             string           `json:"label,omitempty"`
}

// TickRecord is one stored tick. Inputs are the host's raw batch, before
// the engine resolved touch targets.
type TickRecord struct {
	SessionID    string           `json:"session_id"`
	Seq          int64            `json:"seq"`
	Dt           float64          `json:"dt"`
	WorldUpdates []ir.ObjectState `json:"world_updates,omitempty"`
	Inputs       ir.Inputs        `json:"inputs"`
	Result       ir.TickResult    `json:"result"`
	ResultHash   string           `json:"result_hash"`
}

// WriteSnapshot stores snap under its content hash and returns the hash.
// Writing the same snapshot twice is a no-op.
func (s *Store) WriteSnapshot(ctx context.Context, snap *ir.Snapshot) (string, error) {
	hash, err := ir.SnapshotHash(snap)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	body, err := marshalCanonical("snapshot", snap)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (hash, body)
		VALUES (?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, body)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return hash, nil
}

// CreateSession inserts a session row. The snapshot must already be
// stored (foreign key). Duplicate ids are an error: a session id names
// exactly one recording.
func (s *Store) CreateSession(ctx context.Context, rec SessionRecord) error {
	objects, err := marshalObjects("objects", rec.Objects)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, snapshot_hash, seed, post_terminal, objects, engine_version, snapshot_version, label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.SnapshotHash,
		int64(rec.Seed),
		rec.PostTerminalRules,
		objects,
		rec.EngineVersion,
		rec.SnapshotVersion,
		rec.Label,
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", rec.ID, err)
	}
	return nil
}

// WriteTick appends a tick. ResultHash is computed when empty. Writing a
// (session, seq) pair twice is a no-op, so a retried write cannot fork
// the log.
func (s *Store) WriteTick(ctx context.Context, rec TickRecord) error {
	if rec.ResultHash == "" {
		hash, err := ir.TickHash(rec.Result)
		if err != nil {
			return fmt.Errorf("write tick: %w", err)
		}
		rec.ResultHash = hash
	}

	updates, err := marshalObjects("world updates", rec.WorldUpdates)
	if err != nil {
		return fmt.Errorf("write tick: %w", err)
	}
	inputs, err := marshalCanonical("inputs", rec.Inputs)
	if err != nil {
		return fmt.Errorf("write tick: %w", err)
	}
	result, err := marshalCanonical("result", rec.Result)
	if err != nil {
		return fmt.Errorf("write tick: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ticks
		(session_id, seq, dt, world_updates, inputs, result, result_hash, game_state, fired_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		rec.SessionID,
		rec.Seq,
		rec.Dt,
		updates,
		inputs,
		result,
		rec.ResultHash,
		string(rec.Result.GameState),
		len(rec.Result.Fired),
	)
	if err != nil {
		return fmt.Errorf("write tick %s/%d: %w", rec.SessionID, rec.Seq, err)
	}
	return nil
}
