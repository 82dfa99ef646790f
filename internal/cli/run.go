package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rulekit/internal/config"
	"github.com/roach88/rulekit/internal/engine"
	"github.com/roach88/rulekit/internal/harness"
	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	Seed              uint64
	PostTerminalRules bool
	MaxActionsPerTick int

	// IDGenerator overrides session ids for recorded runs (for testing).
	// Defaults to UUIDv7Generator.
	IDGenerator engine.SessionIDGenerator
}

// RunResult is the run command's output.
type RunResult struct {
	Scenario  string               `json:"scenario"`
	Pass      bool                 `json:"pass"`
	SessionID string               `json:"session_id"`
	Database  string               `json:"database,omitempty"`
	Ticks     int                  `json:"ticks"`
	GameState ir.GameState         `json:"game_state"`
	Trace     []harness.TraceEvent `json:"trace"`
	Errors    []string             `json:"errors,omitempty"`
	Warnings  []string             `json:"warnings,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cfg := opts.Config

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Play a scenario headlessly",
		Long: `Play a scenario file through a fresh engine session and print its trace.

With --db the session is recorded to a SQLite session log (created if
missing) for later replay and trace; without it the run is recorded in
memory only. Either way the run is replayed from the log before
returning, and a replay mismatch fails the run.

--seed, --post-terminal-rules and --max-actions-per-tick override the
scenario's own settings when given.

Examples:
  rulekit run ./scenarios/tap_to_win.yaml
  rulekit run ./scenarios/tap_to_win.yaml --db ./sessions.db --seed 42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", cfg.DB, "record the session to this SQLite database")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", cfg.Seed, "RNG seed")
	cmd.Flags().BoolVar(&opts.PostTerminalRules, "post-terminal-rules", cfg.PostTerminalRules, "keep evaluating rules after success or failure")
	cmd.Flags().IntVar(&opts.MaxActionsPerTick, "max-actions-per-tick", cfg.MaxActionsPerTick, "per-tick action quota")

	return cmd
}

// engineConfig merges changed flags into the environment configuration.
func (o *RunOptions) engineConfig(cmd *cobra.Command) config.Config {
	cfg := o.Config
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed, cfg.SeedSet = o.Seed, true
	}
	if flags.Changed("post-terminal-rules") {
		cfg.PostTerminalRules, cfg.PostTerminalRulesSet = o.PostTerminalRules, true
	}
	if flags.Changed("max-actions-per-tick") {
		cfg.MaxActionsPerTick, cfg.MaxActionsPerTickSet = o.MaxActionsPerTick, true
	}
	return cfg
}

func runScenarioCmd(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = f.Error("E_SCENARIO", err.Error(), nil)
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	cfg := opts.engineConfig(cmd)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	runOpts := []harness.RunOption{
		harness.WithLogger(slog.Default()),
		harness.WithEngineOptions(cfg.EngineOptions()...),
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		gen := opts.IDGenerator
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		runOpts = append(runOpts, harness.WithStore(st), harness.WithIDGenerator(gen))
	}

	f.VerboseLog("Running scenario %s (%d steps)", scenario.Name, len(scenario.Ticks))
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = f.Error("E_RUN", err.Error(), nil)
		return WrapExitError(ExitCommandError, "run scenario", err)
	}

	out := RunResult{
		Scenario:  scenario.Name,
		Pass:      result.Pass,
		SessionID: result.SessionID,
		Database:  opts.Database,
		Ticks:     result.Ticks,
		GameState: result.State.GameState,
		Trace:     result.Trace,
		Errors:    result.Errors,
		Warnings:  result.Warnings,
	}

	if f.Format == "json" {
		if result.Pass {
			return f.Success(out)
		}
		if err := f.Failure("E_SCENARIO_FAILED", fmt.Sprintf("scenario %s failed", scenario.Name), out); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}

	w := f.Writer
	for _, ev := range result.Trace {
		fmt.Fprintf(w, "[%d] fired %s\n", ev.Seq, strings.Join(ev.Fired, ", "))
		for _, line := range ev.Events {
			fmt.Fprintf(w, "      %s\n", line)
		}
	}
	for _, warn := range result.Warnings {
		f.VerboseLog("warning: %s", warn)
	}
	if opts.Database != "" {
		fmt.Fprintf(w, "session %s recorded in %s\n", result.SessionID, opts.Database)
	}

	if !result.Pass {
		fmt.Fprintf(w, "✗ %s failed after %d ticks (%s)\n", scenario.Name, result.Ticks, result.State.GameState)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	fmt.Fprintf(w, "✓ %s passed after %d ticks (%s)\n", scenario.Name, result.Ticks, result.State.GameState)
	return nil
}
