package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/rulekit/internal/harness"
	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	From     int64
	To       int64
	All      bool // include idle ticks
}

// TraceTick is one tick of a recorded session.
type TraceTick struct {
	Seq       int64        `json:"seq"`
	Elapsed   float64      `json:"elapsed"`
	GameState ir.GameState `json:"game_state"`
	Fired     []string     `json:"fired,omitempty"`
	Events    []string     `json:"events,omitempty"`
	Hash      string       `json:"hash"`
}

// TraceStats summarizes a recorded session.
type TraceStats struct {
	Ticks       int            `json:"ticks"`
	Elapsed     float64        `json:"elapsed"`
	Fired       int            `json:"fired"`
	RuleCounts  map[string]int `json:"rule_counts"`
	Sounds      int            `json:"sounds"`
	Diagnostics int            `json:"diagnostics"`
}

// TraceResult is the trace command's output.
type TraceResult struct {
	Session   store.SessionRecord `json:"session"`
	GameState ir.GameState        `json:"game_state"`
	Ticks     []TraceTick         `json:"ticks"`
	Stats     TraceStats          `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace --db <file> <session-id>",
		Short: "Show the timeline of a recorded session",
		Long: `Print what each tick of a recorded session did: the rules that
fired, object mutations, sounds, effects, value changes, game state
changes and diagnostics. Idle ticks are skipped unless --all is given.

Examples:
  rulekit trace --db ./sessions.db 0192f1d2-...
  rulekit trace --db ./sessions.db 0192f1d2-... --from 10 --to 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.DB, "SQLite session database")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "first seq to show")
	cmd.Flags().Int64Var(&opts.To, "to", 0, "last seq to show (0 for the end)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "include ticks where nothing happened")

	return cmd
}

func runTrace(opts *TraceOptions, sessionID string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	if opts.To > 0 && opts.From > opts.To {
		return NewExitError(ExitCommandError, fmt.Sprintf("--from %d is after --to %d", opts.From, opts.To))
	}

	st, err := openExistingStore(f, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.ReadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg := fmt.Sprintf("session not found: %s", sessionID)
			_ = f.Error("E_NOT_FOUND", msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	ticks, err := readTraceTicks(ctx, st, sessionID, opts.From, opts.To)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ticks", err)
	}

	result := buildTrace(sess, ticks, opts.All)
	if f.Format == "json" {
		return f.Success(result)
	}
	writeTraceText(f, result)
	return nil
}

func readTraceTicks(ctx context.Context, st *store.Store, id string, from, to int64) ([]store.TickRecord, error) {
	if from <= 0 && to <= 0 {
		return st.ReadTicks(ctx, id)
	}
	if to <= 0 {
		last, err := st.LastSeq(ctx, id)
		if err != nil {
			return nil, err
		}
		to = last
	}
	return st.ReadTickRange(ctx, id, from, to)
}

func buildTrace(sess store.SessionRecord, ticks []store.TickRecord, all bool) TraceResult {
	result := TraceResult{
		Session:   sess,
		GameState: ir.GamePlaying,
		Ticks:     []TraceTick{},
		Stats:     TraceStats{RuleCounts: make(map[string]int)},
	}
	for _, t := range ticks {
		res := t.Result
		result.GameState = res.GameState
		result.Stats.Ticks++
		result.Stats.Elapsed = res.Elapsed
		result.Stats.Fired += len(res.Fired)
		result.Stats.Sounds += len(res.Sounds)
		result.Stats.Diagnostics += len(res.Diagnostics)
		for _, id := range res.Fired {
			result.Stats.RuleCounts[id]++
		}

		tt := TraceTick{
			Seq:       t.Seq,
			Elapsed:   res.Elapsed,
			GameState: res.GameState,
			Fired:     res.Fired,
			Events:    harness.DescribeTick(res),
			Hash:      t.ResultHash,
		}
		if !all && len(tt.Fired) == 0 && len(tt.Events) == 0 {
			continue
		}
		result.Ticks = append(result.Ticks, tt)
	}
	return result
}

func writeTraceText(f *OutputFormatter, r TraceResult) {
	p := message.NewPrinter(language.English)
	w := f.Writer

	p.Fprintf(w, "Session %s (seed %d)\n", r.Session.ID, r.Session.Seed)
	if r.Session.Label != "" {
		p.Fprintf(w, "  label    %s\n", r.Session.Label)
	}
	p.Fprintf(w, "  snapshot %s\n", r.Session.SnapshotHash)
	p.Fprintf(w, "  engine   %s\n\n", r.Session.EngineVersion)

	for _, t := range r.Ticks {
		fired := "-"
		if len(t.Fired) > 0 {
			fired = strings.Join(t.Fired, ", ")
		}
		p.Fprintf(w, "[%d] %8.3fs  %s\n", t.Seq, t.Elapsed, fired)
		for _, ev := range t.Events {
			fmt.Fprintf(w, "      %s\n", ev)
		}
		f.VerboseLog("      hash %s", t.Hash)
	}

	s := r.Stats
	fmt.Fprintln(w)
	p.Fprintf(w, "%d ticks over %.3fs, %d rule firings, %d sounds, %d diagnostics\n",
		s.Ticks, s.Elapsed, s.Fired, s.Sounds, s.Diagnostics)

	rules := make([]string, 0, len(s.RuleCounts))
	for id := range s.RuleCounts {
		rules = append(rules, id)
	}
	sort.Strings(rules)
	for _, id := range rules {
		p.Fprintf(w, "  %-20s %d\n", id, s.RuleCounts[id])
	}
	p.Fprintf(w, "Final state: %s\n", r.GameState)
}
