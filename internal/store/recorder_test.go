package store

import (
	"context"
	"testing"

	"github.com/roach88/rulekit/internal/engine"
	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/testutil"
)

// recordTapSession plays tapSnapshot for a few ticks with a random rule
// added, recording everything, and returns the session id.
func recordTapSession(t *testing.T, s *Store) string {
	t.Helper()
	ctx := context.Background()

	snap := tapSnapshot()
	snap.Rules = append(snap.Rules, testutil.Rule("lucky", "star",
		testutil.When(ir.RandomCondition{Probability: 0.5}),
		ir.RandomAction{Actions: ir.ActionList{
			ir.PlaySoundAction{SoundID: "a"},
			ir.PlaySoundAction{SoundID: "b"},
		}}))

	objects := []ir.ObjectState{testutil.Object("star", 0, 0, 10, 10)}
	world := engine.NewMemoryWorld(objects...)
	sess, err := engine.NewSession(snap,
		engine.WithSeed(7),
		engine.WithWorld(world),
		engine.WithSessionIDGenerator(testutil.NewFixedSessionID("recorded")),
		engine.WithDiagnostics(engine.DiagnosticFunc(func(ir.Diagnostic) {})),
	)
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}

	rec, err := s.BeginSession(ctx, snap, sess, world.Objects(), "recorder test")
	if err != nil {
		t.Fatalf("BeginSession() failed: %v", err)
	}
	if rec.SessionID() != "recorded" {
		t.Fatalf("SessionID() = %q", rec.SessionID())
	}

	inputs := []ir.Inputs{
		testutil.TouchDown("star"),
		testutil.TouchUp("star"),
		{Touches: []ir.TouchEvent{{Type: ir.TouchPhaseDown, Position: ir.Point{X: 5, Y: 5}}}},
		{},
		{},
	}
	for i, in := range inputs {
		var updates []ir.ObjectState
		if i == 3 {
			updates = []ir.ObjectState{testutil.Object("star", 20, 20, 10, 10)}
			for _, o := range updates {
				world.Put(o)
			}
		}
		res := sess.Tick(0.1, in)
		if err := rec.Record(ctx, 0.1, updates, in, res); err != nil {
			t.Fatalf("Record() tick %d failed: %v", i, err)
		}
	}
	return rec.SessionID()
}

func TestRecorder_ReplayMatches(t *testing.T) {
	s := createTestStore(t)
	id := recordTapSession(t, s)

	report, err := s.ReplaySession(context.Background(), id)
	if err != nil {
		t.Fatalf("ReplaySession() failed: %v", err)
	}
	if !report.Match {
		t.Fatalf("replay diverged at seq %d: expected %s, got %s", report.DivergedAt, report.Expected, report.Actual)
	}
	if report.Ticks != 5 {
		t.Errorf("Ticks = %d, want 5", report.Ticks)
	}
	if report.GameState != ir.GameSuccess {
		t.Errorf("GameState = %s, want success", report.GameState)
	}
}

func TestRecorder_SessionRow(t *testing.T) {
	s := createTestStore(t)
	id := recordTapSession(t, s)

	sess, err := s.ReadSession(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Seed != 7 || sess.Label != "recorder test" || len(sess.Objects) != 1 {
		t.Errorf("session = %+v", sess)
	}
	if sess.Objects[0].X != 0 {
		t.Errorf("initial objects must be recorded before the first tick, got x=%v", sess.Objects[0].X)
	}
}

func TestReplay_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	id := recordTapSession(t, s)

	if _, err := s.db.Exec(`UPDATE ticks SET result_hash = 'tampered' WHERE session_id = ? AND seq = 3`, id); err != nil {
		t.Fatal(err)
	}

	report, err := s.ReplaySession(ctx, id)
	if err != nil {
		t.Fatalf("ReplaySession() failed: %v", err)
	}
	if report.Match {
		t.Fatal("tampered recording replayed as a match")
	}
	if report.DivergedAt != 3 {
		t.Errorf("DivergedAt = %d, want 3", report.DivergedAt)
	}
	if report.Ticks != 3 {
		t.Errorf("replay should stop at the first divergence, ran %d ticks", report.Ticks)
	}
}

func TestLoadRecording_UnknownSession(t *testing.T) {
	s := createTestStore(t)

	if _, err := s.LoadRecording(context.Background(), "nope"); err == nil {
		t.Error("LoadRecording() of unknown session should fail")
	}
}
