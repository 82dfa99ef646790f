package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rulekit/internal/compiler"
	"github.com/roach88/rulekit/internal/engine"
	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/store"
	"github.com/roach88/rulekit/internal/testutil"
)

type runConfig struct {
	store      *store.Store
	ids        engine.SessionIDGenerator
	label      string
	logger     *slog.Logger
	engineOpts []engine.Option
}

// RunOption configures Run.
type RunOption func(*runConfig)

// WithStore records the session into st instead of a private in-memory
// log. The caller keeps ownership of st.
func WithStore(st *store.Store) RunOption {
	return func(c *runConfig) { c.store = st }
}

// WithIDGenerator sets the session id source. By default the session id
// is the scenario name.
func WithIDGenerator(gen engine.SessionIDGenerator) RunOption {
	return func(c *runConfig) { c.ids = gen }
}

// WithLabel sets the label stored with the session.
func WithLabel(label string) RunOption {
	return func(c *runConfig) { c.label = label }
}

// WithEngineOptions applies opts after the scenario's own settings, so
// they override seed, post-terminal policy or action quota. Replay
// verification uses them too.
func WithEngineOptions(opts ...engine.Option) RunOption {
	return func(c *runConfig) { c.engineOpts = append(c.engineOpts, opts...) }
}

// WithLogger sets the logger for harness progress. The default discards.
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// Run plays a scenario through a fresh engine session, records every tick
// to a session log, checks tick expectations and assertions, and finally
// replays the recording to confirm the run was deterministic.
//
// Run returns an error only when the scenario could not be run at all.
// Failed checks are reported in Result.Errors with Pass false.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		label:  scenario.Name,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ids == nil {
		cfg.ids = testutil.NewFixedSessionID(scenario.Name)
	}
	ctx := context.Background()

	snap, err := loadProject(scenario)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	result := NewResult()
	check := compiler.Validate(snap, compiler.WithObjects(objectIDs(scenario)...))
	if !check.OK() {
		return nil, fmt.Errorf("validate project: %w", check.Err())
	}
	for _, w := range check.Warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}

	st := cfg.store
	if st == nil {
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	world := engine.NewMemoryWorld(scenario.Objects...)
	sessOpts := []engine.Option{
		engine.WithSeed(scenario.Seed),
		engine.WithPostTerminalRules(scenario.PostTerminalRules),
		engine.WithWorld(world),
		engine.WithSessionIDGenerator(cfg.ids),
		engine.WithDiagnostics(engine.DiagnosticFunc(func(ir.Diagnostic) {})),
	}
	if scenario.MaxActionsPerTick > 0 {
		sessOpts = append(sessOpts, engine.WithMaxActionsPerTick(scenario.MaxActionsPerTick))
	}
	sessOpts = append(sessOpts, cfg.engineOpts...)
	sess, err := engine.NewSession(snap, sessOpts...)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := sess.Start(); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	result.SessionID = sess.ID()

	rec, err := st.BeginSession(ctx, snap, sess, scenario.Objects, cfg.label)
	if err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}

	cfg.logger.Debug("scenario started",
		"scenario", scenario.Name,
		"session_id", sess.ID(),
		"rules", len(snap.Rules),
	)

	for i, step := range scenario.Ticks {
		dt := stepDt(scenario, step)
		in := ir.Inputs{
			Touches:    step.Touches,
			Collisions: step.Collisions,
			Animations: step.Animations,
		}
		repeat := max(step.Repeat, 1)

		var last ir.TickResult
		for n := 0; n < repeat; n++ {
			for _, o := range step.Objects {
				world.Put(o)
			}
			last = sess.Tick(dt, in)
			if err := rec.Record(ctx, dt, step.Objects, in, last); err != nil {
				return nil, fmt.Errorf("ticks[%d]: %w", i, err)
			}
			result.addTick(last)
		}

		if step.Expect != nil {
			for _, msg := range checkTick(step.Expect, last) {
				result.AddError(fmt.Sprintf("ticks[%d] (seq %d): %s", i, last.Seq, msg))
			}
		}
	}

	result.State = finalState(sess, world)
	sess.Stop()

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	if err := verifyReplay(ctx, st, rec.SessionID(), scenario, cfg.engineOpts); err != nil {
		result.AddError(err.Error())
	}

	cfg.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"ticks", result.Ticks,
		"pass", result.Pass,
	)
	return result, nil
}

func loadProject(s *Scenario) (*ir.Snapshot, error) {
	if s.Inline == nil {
		return compiler.LoadProject(s.ProjectPath())
	}
	data, err := yaml.Marshal(s.Inline)
	if err != nil {
		return nil, fmt.Errorf("encode inline project: %w", err)
	}
	return compiler.CompileBytes(data, compiler.FormatYAML, s.Name+".yaml")
}

// objectIDs lists every object the scenario ever places in the world.
func objectIDs(s *Scenario) []string {
	var ids []string
	for _, o := range s.Objects {
		ids = append(ids, o.ID)
	}
	for _, step := range s.Ticks {
		for _, o := range step.Objects {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func stepDt(s *Scenario, step TickStep) float64 {
	switch {
	case step.Dt > 0:
		return step.Dt
	case s.Dt > 0:
		return s.Dt
	default:
		return DefaultDt
	}
}

func finalState(sess *engine.Session, world *engine.MemoryWorld) FinalState {
	fs := FinalState{
		GameState: sess.GameState(),
		Counters:  make(map[string]float64),
		Flags:     make(map[string]bool),
		Objects:   world.Objects(),
	}
	for _, c := range sess.Values().Counters() {
		fs.Counters[c.Name] = c.CurrentValue
	}
	for _, f := range sess.Values().Flags() {
		fs.Flags[f.Name] = f.CurrentValue
	}
	return fs
}

// verifyReplay reloads the recorded session and replays it; every tick
// hash must match what the live run produced.
func verifyReplay(ctx context.Context, st *store.Store, sessionID string, s *Scenario, extra []engine.Option) error {
	recording, err := st.LoadRecording(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	var opts []engine.Option
	if s.MaxActionsPerTick > 0 {
		opts = append(opts, engine.WithMaxActionsPerTick(s.MaxActionsPerTick))
	}
	opts = append(opts, extra...)
	report, err := recording.Replay(opts...)
	if err != nil {
		return err
	}
	if !report.Match {
		return fmt.Errorf("replay diverged at seq %d: expected %s, got %s",
			report.DivergedAt, report.Expected, report.Actual)
	}
	return nil
}
