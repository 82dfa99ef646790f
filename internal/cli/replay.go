package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rulekit/internal/engine"
	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database          string
	MaxActionsPerTick int
}

// SessionReplay is the replay outcome of one session.
type SessionReplay struct {
	SessionID  string       `json:"session_id"`
	Label      string       `json:"label,omitempty"`
	Ticks      int          `json:"ticks"`
	Match      bool         `json:"match"`
	GameState  ir.GameState `json:"game_state"`
	DivergedAt int64        `json:"diverged_at,omitempty"`
	Expected   string       `json:"expected_hash,omitempty"`
	Actual     string       `json:"actual_hash,omitempty"`
}

// ReplayResult is the replay command's output.
type ReplayResult struct {
	Sessions []SessionReplay `json:"sessions"`
	Matched  int             `json:"matched"`
	Diverged int             `json:"diverged"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay --db <file> [session-id]",
		Short: "Replay recorded sessions and verify determinism",
		Long: `Re-run recorded sessions from their snapshot, seed and inputs and
compare every tick's result hash with the recording.

Without a session id every session in the database is replayed.

Exit codes:
  0 - Every replayed session matched
  1 - At least one session diverged
  2 - Command error (missing database, unknown session)

Examples:
  rulekit replay --db ./sessions.db
  rulekit replay --db ./sessions.db 0192f1d2-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sessionID string
			if len(args) == 1 {
				sessionID = args[0]
			}
			return runReplay(opts, sessionID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.DB, "SQLite session database")
	cmd.Flags().IntVar(&opts.MaxActionsPerTick, "max-actions-per-tick", 0, "action quota the sessions were recorded with")

	return cmd
}

func runReplay(opts *ReplayOptions, sessionID string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	st, err := openExistingStore(f, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ids := []string{sessionID}
	if sessionID == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		ids = ids[:0]
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
	}

	var replayOpts []engine.Option
	if opts.MaxActionsPerTick > 0 {
		replayOpts = append(replayOpts, engine.WithMaxActionsPerTick(opts.MaxActionsPerTick))
	}

	result := ReplayResult{Sessions: make([]SessionReplay, 0, len(ids))}
	for _, id := range ids {
		f.VerboseLog("Replaying session %s", id)
		sr, err := replayOne(ctx, st, id, replayOpts)
		if err != nil {
			code := "E_REPLAY"
			if errors.Is(err, sql.ErrNoRows) {
				code = "E_NOT_FOUND"
				err = fmt.Errorf("session not found: %s", id)
			}
			_ = f.Error(code, err.Error(), nil)
			return WrapExitError(ExitCommandError, "replay failed", err)
		}
		if sr.Match {
			result.Matched++
		} else {
			result.Diverged++
		}
		result.Sessions = append(result.Sessions, sr)
	}

	if f.Format == "json" {
		if result.Diverged == 0 {
			return f.Success(result)
		}
		msg := fmt.Sprintf("%d session(s) diverged", result.Diverged)
		if err := f.Failure("E_REPLAY_DIVERGED", msg, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	w := f.Writer
	if len(result.Sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, sr := range result.Sessions {
		if sr.Match {
			fmt.Fprintf(w, "✓ %s replayed %d ticks (%s)\n", sr.SessionID, sr.Ticks, sr.GameState)
			continue
		}
		fmt.Fprintf(w, "✗ %s diverged at seq %d\n", sr.SessionID, sr.DivergedAt)
		fmt.Fprintf(w, "  expected %s\n", sr.Expected)
		fmt.Fprintf(w, "  actual   %s\n", sr.Actual)
	}
	if result.Diverged > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d session(s) diverged", result.Diverged))
	}
	return nil
}

func replayOne(ctx context.Context, st *store.Store, id string, opts []engine.Option) (SessionReplay, error) {
	rec, err := st.LoadRecording(ctx, id)
	if err != nil {
		return SessionReplay{}, err
	}
	report, err := rec.Replay(opts...)
	if err != nil {
		return SessionReplay{}, err
	}
	return SessionReplay{
		SessionID:  id,
		Label:      rec.Session.Label,
		Ticks:      report.Ticks,
		Match:      report.Match,
		GameState:  report.GameState,
		DivergedAt: report.DivergedAt,
		Expected:   report.Expected,
		Actual:     report.Actual,
	}, nil
}

// openExistingStore opens a session database that must already exist.
// Opening a missing path would silently create an empty database.
func openExistingStore(f *OutputFormatter, path string) (*store.Store, error) {
	if path == "" {
		_ = f.Error("E_NO_DB", "--db is required", nil)
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		msg := fmt.Sprintf("database not found: %s", path)
		_ = f.Error("E_NO_DB", msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
