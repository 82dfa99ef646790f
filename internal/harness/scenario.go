package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rulekit/internal/ir"
)

// DefaultDt is the tick length used when neither the step nor the scenario
// sets one.
const DefaultDt = 1.0 / 60

// Scenario is a scripted play session: a project, the starting world, a
// sequence of ticks with host inputs, and assertions on the outcome.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Project is a path to a .json, .yaml or .cue project file or a
	// directory of CUE files, relative to the scenario file.
	Project string `yaml:"project,omitempty"`

	// Inline is a project written directly in the scenario. Exactly one
	// of Project and Inline must be set.
	Inline *InlineProject `yaml:"inline,omitempty"`

	Seed              uint64 `yaml:"seed"`
	PostTerminalRules bool   `yaml:"post_terminal_rules,omitempty"`
	MaxActionsPerTick int    `yaml:"max_actions_per_tick,omitempty"`

	// Dt is the default tick length for steps that leave dt unset.
	Dt float64 `yaml:"dt,omitempty"`

	// Objects is the world before the first tick.
	Objects []ir.ObjectState `yaml:"objects,omitempty"`

	Ticks      []TickStep  `yaml:"ticks"`
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// dir is where the scenario was loaded from; relative project paths
	// resolve against it.
	dir string
}

// TickStep drives one or more ticks with the same inputs.
type TickStep struct {
	Dt float64 `yaml:"dt,omitempty"`

	// Repeat runs the step this many times. Zero means once. Inputs and
	// world updates are delivered on every repetition.
	Repeat int `yaml:"repeat,omitempty"`

	Touches    []ir.TouchEvent           `yaml:"touches,omitempty"`
	Collisions []ir.CollisionEvent       `yaml:"collisions,omitempty"`
	Animations []ir.AnimationPlayerEvent `yaml:"animations,omitempty"`

	// Objects are world updates applied before the tick, replacing the
	// object with the same id.
	Objects []ir.ObjectState `yaml:"objects,omitempty"`

	// Expect is checked against the last tick of the step.
	Expect *TickExpect `yaml:"expect,omitempty"`
}

// TickExpect checks the result of a single tick. Unset fields are not
// checked; an explicit empty fired list asserts that nothing fired.
type TickExpect struct {
	Fired       *[]string `yaml:"fired,omitempty"`
	GameState   string    `yaml:"game_state,omitempty"`
	Sounds      []string  `yaml:"sounds,omitempty"`
	Diagnostics []string  `yaml:"diagnostics,omitempty"`
}

// Assertion is a check on the whole run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Name is the counter or flag name.
	Name string `yaml:"name,omitempty"`

	// Value is the expected counter value.
	Value *float64 `yaml:"value,omitempty"`

	// Set is the expected flag value.
	Set *bool `yaml:"set,omitempty"`

	State string `yaml:"state,omitempty"`

	Rule  string   `yaml:"rule,omitempty"`
	Rules []string `yaml:"rules,omitempty"`

	// Count is the expected fired count or sound play count.
	Count *int `yaml:"count,omitempty"`

	Sound string `yaml:"sound,omitempty"`

	Object  string `yaml:"object,omitempty"`
	Visible *bool  `yaml:"visible,omitempty"`

	// Code is a diagnostic code.
	Code string `yaml:"code,omitempty"`
}

// InlineProject holds the raw YAML of a project embedded in a scenario.
// It is decoded by the project compiler, not by the scenario decoder, so
// the scenario's strict field checking does not apply to it.
type InlineProject struct {
	node yaml.Node
}

// UnmarshalYAML keeps the node as written.
func (p *InlineProject) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: inline project must be a mapping", value.Line)
	}
	p.node = *value
	return nil
}

// MarshalYAML returns the node as written.
func (p *InlineProject) MarshalYAML() (any, error) {
	return &p.node, nil
}

// Assertion types.
const (
	AssertCounter       = "counter"
	AssertFlag          = "flag"
	AssertGameState     = "game_state"
	AssertFiredCount    = "fired_count"
	AssertFiredOrder    = "fired_order"
	AssertSoundPlayed   = "sound_played"
	AssertObjectVisible = "object_visible"
	AssertDiagnostic    = "diagnostic"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface instead of silently skipping a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScenario decodes and validates scenario YAML. Relative project
// paths resolve against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// ProjectPath returns the project path resolved against the scenario's
// directory, or "" for inline projects.
func (s *Scenario) ProjectPath() string {
	if s.Project == "" || filepath.IsAbs(s.Project) {
		return s.Project
	}
	return filepath.Join(s.dir, s.Project)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch {
	case s.Project == "" && s.Inline == nil:
		return fmt.Errorf("one of project or inline is required")
	case s.Project != "" && s.Inline != nil:
		return fmt.Errorf("project and inline are mutually exclusive")
	}
	if s.Dt < 0 {
		return fmt.Errorf("dt must not be negative")
	}
	if s.MaxActionsPerTick < 0 {
		return fmt.Errorf("max_actions_per_tick must not be negative")
	}
	if len(s.Ticks) == 0 {
		return fmt.Errorf("at least one tick is required")
	}

	seen := make(map[string]bool, len(s.Objects))
	for i, o := range s.Objects {
		if o.ID == "" {
			return fmt.Errorf("objects[%d]: id is required", i)
		}
		if seen[o.ID] {
			return fmt.Errorf("objects[%d]: duplicate id %q", i, o.ID)
		}
		seen[o.ID] = true
	}

	for i, step := range s.Ticks {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("ticks[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step TickStep) error {
	if step.Dt < 0 {
		return fmt.Errorf("dt must not be negative")
	}
	if step.Repeat < 0 {
		return fmt.Errorf("repeat must not be negative")
	}
	for i, t := range step.Touches {
		if t.Type != ir.TouchPhaseDown && t.Type != ir.TouchPhaseUp {
			return fmt.Errorf("touches[%d]: unknown type %q", i, t.Type)
		}
	}
	for i, c := range step.Collisions {
		switch c.Phase {
		case ir.CollisionPhaseEnter, ir.CollisionPhaseStay, ir.CollisionPhaseExit:
		default:
			return fmt.Errorf("collisions[%d]: unknown phase %q", i, c.Phase)
		}
	}
	for i, o := range step.Objects {
		if o.ID == "" {
			return fmt.Errorf("objects[%d]: id is required", i)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertCounter:
		if a.Name == "" || a.Value == nil {
			return fmt.Errorf("counter assertion requires name and value")
		}
	case AssertFlag:
		if a.Name == "" || a.Set == nil {
			return fmt.Errorf("flag assertion requires name and set")
		}
	case AssertGameState:
		switch ir.GameState(a.State) {
		case ir.GamePlaying, ir.GameSuccess, ir.GameFailure:
		default:
			return fmt.Errorf("game_state assertion has unknown state %q", a.State)
		}
	case AssertFiredCount:
		if a.Rule == "" || a.Count == nil {
			return fmt.Errorf("fired_count assertion requires rule and count")
		}
	case AssertFiredOrder:
		if len(a.Rules) < 2 {
			return fmt.Errorf("fired_order assertion requires at least 2 rules")
		}
	case AssertSoundPlayed:
		if a.Sound == "" {
			return fmt.Errorf("sound_played assertion requires sound")
		}
	case AssertObjectVisible:
		if a.Object == "" || a.Visible == nil {
			return fmt.Errorf("object_visible assertion requires object and visible")
		}
	case AssertDiagnostic:
		if a.Code == "" {
			return fmt.Errorf("diagnostic assertion requires code")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
