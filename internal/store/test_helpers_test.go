package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/testutil"
)

// createTestStore opens a store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// tapSnapshot is a small project: tapping the star scores, ten points win.
func tapSnapshot() *ir.Snapshot {
	return testutil.Snapshot(
		testutil.Rule("tap", "star",
			testutil.When(ir.TouchCondition{TouchType: ir.TouchDown}),
			ir.AddScoreAction{Points: 5}),
		testutil.Rule("win", "star",
			testutil.When(ir.CounterCondition{CounterName: "score", Comparison: ir.CompareGreaterOrEqual, Value: 10}),
			ir.SuccessAction{Message: "done"}),
	)
}

// createTestSession stores tapSnapshot and a session row with id.
func createTestSession(t *testing.T, s *Store, id string) SessionRecord {
	t.Helper()
	ctx := context.Background()
	hash, err := s.WriteSnapshot(ctx, tapSnapshot())
	if err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}
	rec := SessionRecord{
		ID:              id,
		SnapshotHash:    hash,
		Seed:            42,
		Objects:         []ir.ObjectState{testutil.Object("star", 0, 0, 10, 10)},
		EngineVersion:   ir.EngineVersion,
		SnapshotVersion: ir.SnapshotVersion,
	}
	if err := s.CreateSession(ctx, rec); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return rec
}
