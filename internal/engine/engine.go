package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/values"
)

// Phase is the scheduler lifecycle state of a session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseSuccess Phase = "success"
	PhaseFailure Phase = "failure"
	PhaseStopped Phase = "stopped"
)

var (
	// ErrAlreadyStarted is returned by Start on a session that left Idle.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrDuplicateRuleID is returned by NewSession when two rules share an id.
	ErrDuplicateRuleID = errors.New("duplicate rule id")
)

// Session is one play session: the rule scheduler together with the
// Value Store, game state machine and timing state it owns.
//
// INVARIANTS:
//   - rules order never changes after construction
//   - rule ids are unique, so (rule id, condition index) keys timing state
//   - all session state is mutated only from within Tick and Start
type Session struct {
	id       string
	rules    []ir.Rule
	values   *values.Store
	state    *StateMachine
	clock    *Clock
	rng      *RNG
	world    World
	timing   *timingArena
	touches  *touchTracker
	reporter *reporter
	quota    *ActionQuota
	phase    Phase

	seed         uint64
	seeded       bool
	postTerminal bool
	sink         DiagnosticSink
	idGen        SessionIDGenerator
	maxActions   int
}

// Option configures a Session.
type Option func(*Session)

// WithSeed fixes the random seed. Without it a random seed is chosen and
// can be read back with Seed.
func WithSeed(seed uint64) Option {
	return func(s *Session) {
		s.seed = seed
		s.seeded = true
	}
}

// WithPostTerminalRules keeps rules evaluating after success or failure.
// Default: false, evaluation stops at the first terminal state.
func WithPostTerminalRules(enabled bool) Option {
	return func(s *Session) {
		s.postTerminal = enabled
	}
}

// WithDiagnostics sets the diagnostics sink. Default: SlogSink{}.
func WithDiagnostics(sink DiagnosticSink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithSessionIDGenerator sets the session id source. Default: UUIDv7Generator.
func WithSessionIDGenerator(gen SessionIDGenerator) Option {
	return func(s *Session) {
		s.idGen = gen
	}
}

// WithWorld sets the host object accessor. A MutableWorld also receives
// visibility, teleport and animation changes as they execute.
func WithWorld(w World) Option {
	return func(s *Session) {
		s.world = w
	}
}

// WithMaxActionsPerTick sets the per-tick action quota.
// Default: DefaultMaxActionsPerTick.
func WithMaxActionsPerTick(n int) Option {
	return func(s *Session) {
		s.maxActions = n
	}
}

// NewSession creates an Idle session for snap.
//
// Rules, counters and flags are copied; later changes to snap do not
// affect the session. Duplicate rule ids are a load failure.
func NewSession(snap *ir.Snapshot, opts ...Option) (*Session, error) {
	if snap == nil {
		return nil, fmt.Errorf("new session: nil snapshot")
	}

	seen := make(map[string]bool, len(snap.Rules))
	for i, r := range snap.Rules {
		if seen[r.ID] {
			return nil, fmt.Errorf("new session: rules[%d] %q: %w", i, r.ID, ErrDuplicateRuleID)
		}
		seen[r.ID] = true
	}

	s := &Session{
		rules:      append([]ir.Rule(nil), snap.Rules...),
		values:     values.New(snap.Counters, snap.Flags),
		state:      NewStateMachine(),
		clock:      NewClock(),
		timing:     newTimingArena(),
		touches:    newTouchTracker(),
		phase:      PhaseIdle,
		sink:       SlogSink{},
		idGen:      UUIDv7Generator{},
		maxActions: DefaultMaxActionsPerTick,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !s.seeded {
		s.seed = rand.Uint64()
	}
	s.rng = NewRNG(s.seed)
	s.reporter = newReporter(s.sink)
	s.quota = NewActionQuota(s.maxActions)
	s.id = s.idGen.Generate()
	return s, nil
}

// Start moves the session from Idle to Running, resetting counters to
// their initial values and flags to false.
func (s *Session) Start() error {
	if s.phase != PhaseIdle {
		return fmt.Errorf("start %s: %w", s.id, ErrAlreadyStarted)
	}
	s.values.Reset()
	s.values.EnsureCounter(values.ScoreCounter)
	s.phase = PhaseRunning

	slog.Info("session started",
		"session_id", s.id,
		"rules", len(s.rules),
		"seed", s.seed,
		"post_terminal_rules", s.postTerminal,
	)
	return nil
}

// Stop ends the session. Later ticks do nothing. Stop is idempotent.
func (s *Session) Stop() {
	if s.phase == PhaseStopped {
		return
	}
	s.phase = PhaseStopped
	s.timing.reset()
	s.touches.reset()
	attrs := []any{
		"session_id", s.id,
		"ticks", s.clock.Current(),
		"game_state", s.state.Current(),
		"rng_draws", s.rng.Draws(),
		"diagnostics", s.reporter.size(),
	}
	if ch, ok := s.state.LastChange(); ok {
		attrs = append(attrs, "decided_by", ch.RuleID)
	}
	slog.Info("session stopped", attrs...)
}

// Tick advances the session by dt seconds with the host's input batch,
// evaluates rules and returns what happened. Tick never panics on rule
// data and never returns an error; problems appear in Diagnostics.
//
// A Stopped session returns an empty result without advancing. An Idle
// session is started first.
func (s *Session) Tick(dt float64, in ir.Inputs) ir.TickResult {
	if s.phase == PhaseStopped {
		return ir.TickResult{
			Seq:       s.clock.Current(),
			Elapsed:   s.clock.Elapsed(),
			GameState: s.state.Current(),
		}
	}
	if s.phase == PhaseIdle {
		_ = s.Start()
	}

	var res ir.TickResult
	s.quota.Reset()

	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		s.reporter.report(&res, NewParameterError("", SlotTick, 0,
			fmt.Sprintf("dt must be a finite non-negative number, got %v", dt)))
		dt = 0
	}
	res.Seq = s.clock.Advance(dt)
	res.Elapsed = s.clock.Elapsed()

	ctx := &Context{
		Values:   s.values,
		World:    s.world,
		State:    s.state,
		Elapsed:  res.Elapsed,
		Dt:       dt,
		Inputs:   s.ingest(in, res.Elapsed),
		rng:      s.rng,
		timing:   s.timing,
		touches:  s.touches,
		reporter: s.reporter,
		quota:    s.quota,
		result:   &res,
	}

	if s.state.Current().IsTerminal() && !s.postTerminal {
		res.GameState = s.state.Current()
		return res
	}

	for i := range s.rules {
		rule := &s.rules[i]
		if !rule.Enabled {
			continue
		}
		if Evaluate(ctx, rule) {
			res.Fired = append(res.Fired, rule.ID)
			Execute(ctx, rule.Actions)
		}
	}
	s.timing.commit()

	res.Evaluated = true
	res.GameState = s.state.Current()
	s.syncPhase()

	if res.StateChange != nil {
		slog.Info("game state changed",
			"session_id", s.id,
			"seq", res.Seq,
			"rule_id", res.StateChange.RuleID,
			"state", res.StateChange.To,
		)
	}
	return res
}

// ingest resolves untargeted touches by hit-testing and updates the press
// tracker. The returned batch is what matchers see.
func (s *Session) ingest(in ir.Inputs, elapsed float64) ir.Inputs {
	out := ir.Inputs{
		Collisions: in.Collisions,
		Animations: in.Animations,
	}
	if len(in.Touches) > 0 {
		out.Touches = make([]ir.TouchEvent, 0, len(in.Touches))
	}
	for _, t := range in.Touches {
		explicit := t.Target != ""
		if !explicit {
			if id, ok := HitTest(s.world, t.Position); ok {
				t.Target = id
			}
		}
		switch t.Type {
		case ir.TouchPhaseDown:
			if t.Target != "" {
				s.touches.press(t.Target, elapsed)
			}
		case ir.TouchPhaseUp:
			if explicit {
				s.touches.release(t.Target)
			} else {
				s.touches.release("")
			}
		}
		out.Touches = append(out.Touches, t)
	}
	return out
}

func (s *Session) syncPhase() {
	switch s.state.Current() {
	case ir.GameSuccess:
		s.phase = PhaseSuccess
	case ir.GameFailure:
		s.phase = PhaseFailure
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Phase returns the lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// GameState returns the game state machine's current state.
func (s *Session) GameState() ir.GameState { return s.state.Current() }

// Values returns the session's Value Store. Callers must not mutate it
// while a Tick is running.
func (s *Session) Values() *values.Store { return s.values }

// Elapsed returns accumulated session time in seconds.
func (s *Session) Elapsed() float64 { return s.clock.Elapsed() }

// Seq returns the seq of the last tick.
func (s *Session) Seq() int64 { return s.clock.Current() }

// Seed returns the random seed in use.
func (s *Session) Seed() uint64 { return s.seed }

// PostTerminalRules reports whether rules keep evaluating after a
// terminal state.
func (s *Session) PostTerminalRules() bool { return s.postTerminal }

// World returns the object accessor, or nil.
func (s *Session) World() World { return s.world }

// Rules returns a copy of the session's rules in evaluation order.
func (s *Session) Rules() []ir.Rule {
	return append([]ir.Rule(nil), s.rules...)
}
