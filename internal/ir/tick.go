package ir

// TouchPhase is the kind of a touch input event.
type TouchPhase string

const (
	TouchPhaseDown TouchPhase = "touchDown"
	TouchPhaseUp   TouchPhase = "touchUp"
)

// TouchEvent is a touch reported by the host. Target is the id of the
// touched object; when empty the engine hit-tests Position.
type TouchEvent struct {
	Type     TouchPhase `json:"type" yaml:"type"`
	Target   string     `json:"target,omitempty" yaml:"target,omitempty"`
	Position Point      `json:"position" yaml:"position"`
}

// CollisionPhase is the phase of a host-reported collision pair.
type CollisionPhase string

const (
	CollisionPhaseEnter CollisionPhase = "enter"
	CollisionPhaseStay  CollisionPhase = "stay"
	CollisionPhaseExit  CollisionPhase = "exit"
)

// CollisionEvent is a collision-pair notification reported by the host.
type CollisionEvent struct {
	A     string         `json:"a" yaml:"a"`
	B     string         `json:"b" yaml:"b"`
	Phase CollisionPhase `json:"phase" yaml:"phase"`
}

// Involves reports whether the pair is (x, y) in either order.
func (e CollisionEvent) Involves(x, y string) bool {
	return (e.A == x && e.B == y) || (e.A == y && e.B == x)
}

// AnimationPlayerEvent is an animation-player transition reported by the host.
type AnimationPlayerEvent struct {
	ObjectID string             `json:"object_id" yaml:"object_id"`
	Phase    AnimationEventType `json:"phase" yaml:"phase"`
}

// Inputs is the batch of host events delivered with one tick.
type Inputs struct {
	Touches    []TouchEvent           `json:"touches,omitempty" yaml:"touches,omitempty"`
	Collisions []CollisionEvent       `json:"collisions,omitempty" yaml:"collisions,omitempty"`
	Animations []AnimationPlayerEvent `json:"animations,omitempty" yaml:"animations,omitempty"`
}

// MutationKind names an object mutation requested by an action.
type MutationKind string

const (
	MutationShow      MutationKind = "show"
	MutationHide      MutationKind = "hide"
	MutationMove      MutationKind = "move"
	MutationAnimation MutationKind = "animation"
)

// AnimationChange is the payload of an animation mutation.
type AnimationChange struct {
	Index    int     `json:"index"`
	Speed    float64 `json:"speed"`
	Loop     bool    `json:"loop"`
	AutoPlay bool    `json:"auto_play"`
}

// ObjectMutation is a change to a host object the caller must realize.
type ObjectMutation struct {
	RuleID    string           `json:"rule_id"`
	ObjectID  string           `json:"object_id"`
	Kind      MutationKind     `json:"kind"`
	Fade      bool             `json:"fade,omitempty"`
	Movement  *Movement        `json:"movement,omitempty"`
	Animation *AnimationChange `json:"animation,omitempty"`
}

// SoundRequest asks the host to play a sound.
type SoundRequest struct {
	RuleID  string  `json:"rule_id"`
	SoundID string  `json:"sound_id"`
	Volume  float64 `json:"volume"`
}

// EffectRequest asks the host to render a visual effect.
type EffectRequest struct {
	RuleID   string     `json:"rule_id"`
	ObjectID string     `json:"object_id"`
	Effect   EffectSpec `json:"effect"`
}

// ValueKind distinguishes counter and flag changes.
type ValueKind string

const (
	ValueCounter ValueKind = "counter"
	ValueFlag    ValueKind = "flag"
)

// ValueChange records one Value Store mutation made by an action.
// Before and After hold float64 for counters and bool for flags.
type ValueChange struct {
	RuleID string    `json:"rule_id"`
	Kind   ValueKind `json:"kind"`
	Name   string    `json:"name"`
	Before any       `json:"before"`
	After  any       `json:"after"`
}

// StateChange records the game state transition made during a tick.
type StateChange struct {
	RuleID  string    `json:"rule_id"`
	From    GameState `json:"from"`
	To      GameState `json:"to"`
	Message string    `json:"message,omitempty"`
}

// Diagnostic is a non-fatal problem found while evaluating rules.
// Slot is "condition", "action" or "tick"; Index is the position in the
// rule's condition or action list.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RuleID  string `json:"rule_id,omitempty"`
	Slot    string `json:"slot,omitempty"`
	Index   int    `json:"index"`
}

// TickResult is everything one tick produced, in execution order within
// each list.
type TickResult struct {
	Seq          int64            `json:"seq"`
	Elapsed      float64          `json:"elapsed"`
	GameState    GameState        `json:"game_state"`
	Evaluated    bool             `json:"evaluated"`
	Fired        []string         `json:"fired,omitempty"`
	Mutations    []ObjectMutation `json:"mutations,omitempty"`
	Sounds       []SoundRequest   `json:"sounds,omitempty"`
	Effects      []EffectRequest  `json:"effects,omitempty"`
	ValueChanges []ValueChange    `json:"value_changes,omitempty"`
	StateChange  *StateChange     `json:"state_change,omitempty"`
	Diagnostics  []Diagnostic     `json:"diagnostics,omitempty"`
}
