package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rulekit/internal/ir"
)

// ErrSnapshotCorrupt is returned when a stored snapshot no longer hashes
// to its key.
var ErrSnapshotCorrupt = errors.New("snapshot body does not match its hash")

// SessionSummary is a session row plus aggregate tick information.
type SessionSummary struct {
	SessionRecord
	Ticks     int64        `json:"ticks"`
	LastSeq   int64        `json:"last_seq"`
	Fired     int64        `json:"fired"`
	GameState ir.GameState `json:"game_state"`
}

// ReadSnapshot loads a snapshot by hash and verifies the hash.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSnapshot(ctx context.Context, hash string) (*ir.Snapshot, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE hash = ?`, hash).Scan(&body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", hash, err)
	}

	snap, err := ir.ParseSnapshot([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", hash, err)
	}
	got, err := ir.SnapshotHash(snap)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", hash, err)
	}
	if got != hash {
		return nil, fmt.Errorf("read snapshot %s: %w (got %s)", hash, ErrSnapshotCorrupt, got)
	}
	return snap, nil
}

// ReadSession loads a session row by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, snapshot_hash, seed, post_terminal, objects, engine_version, snapshot_version, label
		FROM sessions
		WHERE id = ?
	`, id)

	rec, err := scanSession(row)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner, extra ...any) (SessionRecord, error) {
	var (
		rec     SessionRecord
		seed    int64
		objects string
	)
	dest := append([]any{
		&rec.ID, &rec.SnapshotHash, &seed, &rec.PostTerminalRules, &objects,
		&rec.EngineVersion, &rec.SnapshotVersion, &rec.Label,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return SessionRecord{}, err
	}
	rec.Seed = uint64(seed)

	objs, err := unmarshalObjects("objects", objects)
	if err != nil {
		return SessionRecord{}, err
	}
	rec.Objects = objs
	return rec, nil
}

// ListSessions returns every session with tick aggregates, ordered by id.
// Session ids are UUIDv7 by default, so this is creation order.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.snapshot_hash, s.seed, s.post_terminal, s.objects,
		       s.engine_version, s.snapshot_version, s.label,
		       COUNT(t.seq), COALESCE(MAX(t.seq), 0), COALESCE(SUM(t.fired_count), 0),
		       COALESCE((SELECT game_state FROM ticks
		                 WHERE session_id = s.id
		                 ORDER BY seq DESC LIMIT 1), 'playing')
		FROM sessions s
		LEFT JOIN ticks t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	summaries := []SessionSummary{}
	for rows.Next() {
		var (
			sum       SessionSummary
			gameState string
		)
		rec, err := scanSession(rows, &sum.Ticks, &sum.LastSeq, &sum.Fired, &gameState)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sum.SessionRecord = rec
		sum.GameState = ir.GameState(gameState)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return summaries, nil
}

// ReadTicks returns a session's ticks ordered by seq. Returns an empty
// slice (not nil) for a session without ticks.
func (s *Store) ReadTicks(ctx context.Context, sessionID string) ([]TickRecord, error) {
	return s.readTicks(ctx, `
		SELECT session_id, seq, dt, world_updates, inputs, result, result_hash
		FROM ticks
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
}

// ReadTickRange returns the ticks with from <= seq <= to.
func (s *Store) ReadTickRange(ctx context.Context, sessionID string, from, to int64) ([]TickRecord, error) {
	return s.readTicks(ctx, `
		SELECT session_id, seq, dt, world_updates, inputs, result, result_hash
		FROM ticks
		WHERE session_id = ? AND seq BETWEEN ? AND ?
		ORDER BY seq ASC
	`, sessionID, from, to)
}

func (s *Store) readTicks(ctx context.Context, query string, args ...any) ([]TickRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	ticks := []TickRecord{}
	for rows.Next() {
		rec, err := scanTick(rows)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return ticks, nil
}

func scanTick(rows *sql.Rows) (TickRecord, error) {
	var (
		rec                     TickRecord
		updates, inputs, result string
	)
	if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.Dt, &updates, &inputs, &result, &rec.ResultHash); err != nil {
		return TickRecord{}, fmt.Errorf("scan tick: %w", err)
	}

	var err error
	if rec.WorldUpdates, err = unmarshalObjects("world updates", updates); err != nil {
		return TickRecord{}, err
	}
	if rec.Inputs, err = unmarshalInputs(inputs); err != nil {
		return TickRecord{}, err
	}
	if rec.Result, err = unmarshalResult(result); err != nil {
		return TickRecord{}, err
	}
	return rec, nil
}

// LastSeq returns the highest recorded seq of a session, or 0.
func (s *Store) LastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM ticks WHERE session_id = ?
	`, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq %s: %w", sessionID, err)
	}
	return seq, nil
}
