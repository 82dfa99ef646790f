package ir

import (
	"encoding/json"
	"fmt"
)

// ActionType is the discriminator of the Action sum type.
type ActionType string

const (
	ActionSuccess         ActionType = "success"
	ActionFailure         ActionType = "failure"
	ActionShow            ActionType = "show"
	ActionHide            ActionType = "hide"
	ActionMove            ActionType = "move"
	ActionEffect          ActionType = "effect"
	ActionPlaySound       ActionType = "playSound"
	ActionSwitchAnimation ActionType = "switchAnimation"
	ActionSetFlag         ActionType = "setFlag"
	ActionToggleFlag      ActionType = "toggleFlag"
	ActionCounter         ActionType = "counter"
	ActionAddScore        ActionType = "addScore"
	ActionRandom          ActionType = "randomAction"
)

// Action is a sealed interface over the action variants.
type Action interface {
	ActionType() ActionType
	action()
}

// SuccessAction ends the session in the success state.
type SuccessAction struct {
	Message string `json:"message,omitempty"`
}

// FailureAction ends the session in the failure state.
type FailureAction struct {
	Message string `json:"message,omitempty"`
}

// ShowAction makes an object visible. An empty TargetID means the rule's
// target object.
type ShowAction struct {
	TargetID string `json:"targetId,omitempty"`
	Fade     bool   `json:"fade,omitempty"`
}

// HideAction makes an object invisible.
type HideAction struct {
	TargetID string `json:"targetId,omitempty"`
	Fade     bool   `json:"fade,omitempty"`
}

// MovementType names a movement pattern realized by the host.
// MovementTeleport is the one pattern the engine applies itself.
type MovementType string

const (
	MovementTeleport MovementType = "teleport"
	MovementLinear   MovementType = "linear"
	MovementApproach MovementType = "approach"
	MovementBounce   MovementType = "bounce"
	MovementWander   MovementType = "wander"
	MovementStop     MovementType = "stop"
)

// Movement describes how an object should move. Speed is in stage units
// per second and Duration in seconds.
type Movement struct {
	Type     MovementType `json:"type"`
	Speed    float64      `json:"speed,omitempty"`
	Duration float64      `json:"duration,omitempty"`
	Target   *Point       `json:"target,omitempty"`
}

// MoveAction requests a movement of an object.
type MoveAction struct {
	TargetID string   `json:"targetId,omitempty"`
	Movement Movement `json:"movement"`
}

// EffectType names a visual effect.
type EffectType string

const (
	EffectFlash     EffectType = "flash"
	EffectShake     EffectType = "shake"
	EffectScale     EffectType = "scale"
	EffectRotate    EffectType = "rotate"
	EffectParticles EffectType = "particles"
)

// EffectSpec describes a visual effect. Params carries type-specific
// numeric parameters (for example "scale", "angle", "count").
type EffectSpec struct {
	Type      EffectType         `json:"type"`
	Duration  float64            `json:"duration"`
	Intensity float64            `json:"intensity"`
	Color     string             `json:"color,omitempty"`
	Params    map[string]float64 `json:"params,omitempty"`
}

// EffectAction requests a visual effect on an object.
type EffectAction struct {
	TargetID string     `json:"targetId,omitempty"`
	Effect   EffectSpec `json:"effect"`
}

// PlaySoundAction requests playback of a sound asset. Volume defaults to 1.
type PlaySoundAction struct {
	SoundID string   `json:"soundId"`
	Volume  *float64 `json:"volume,omitempty"`
}

// SwitchAnimationAction switches the animation an object plays.
type SwitchAnimationAction struct {
	TargetID       string  `json:"targetId,omitempty"`
	AnimationIndex int     `json:"animationIndex"`
	Speed          float64 `json:"speed,omitempty"`
	Loop           *bool   `json:"loop,omitempty"`
	AutoPlay       *bool   `json:"autoPlay,omitempty"`
}

// SetFlagAction sets a flag to Value.
type SetFlagAction struct {
	FlagID string `json:"flagId"`
	Value  bool   `json:"value"`
}

// ToggleFlagAction inverts a flag.
type ToggleFlagAction struct {
	FlagID string `json:"flagId"`
}

// CounterOperation is an arithmetic operation on a counter.
type CounterOperation string

const (
	CounterAdd      CounterOperation = "add"
	CounterSubtract CounterOperation = "subtract"
	CounterSet      CounterOperation = "set"
	CounterMultiply CounterOperation = "multiply"
)

// CounterAction applies Operation with Value to a counter.
type CounterAction struct {
	CounterName string           `json:"counterName"`
	Operation   CounterOperation `json:"operation"`
	Value       float64          `json:"value"`
}

// AddScoreAction adds Points to the score counter.
type AddScoreAction struct {
	Points float64 `json:"points"`
}

// RandomAction executes exactly one of Actions, chosen uniformly.
type RandomAction struct {
	Actions ActionList `json:"actions"`
}

// UnknownAction preserves an action whose kind this engine does not know.
// Executing it is a no-op.
type UnknownAction struct {
	Type string
	Raw  json.RawMessage
}

func (SuccessAction) ActionType() ActionType         { return ActionSuccess }
func (FailureAction) ActionType() ActionType         { return ActionFailure }
func (ShowAction) ActionType() ActionType            { return ActionShow }
func (HideAction) ActionType() ActionType            { return ActionHide }
func (MoveAction) ActionType() ActionType            { return ActionMove }
func (EffectAction) ActionType() ActionType          { return ActionEffect }
func (PlaySoundAction) ActionType() ActionType       { return ActionPlaySound }
func (SwitchAnimationAction) ActionType() ActionType { return ActionSwitchAnimation }
func (SetFlagAction) ActionType() ActionType         { return ActionSetFlag }
func (ToggleFlagAction) ActionType() ActionType      { return ActionToggleFlag }
func (CounterAction) ActionType() ActionType         { return ActionCounter }
func (AddScoreAction) ActionType() ActionType        { return ActionAddScore }
func (RandomAction) ActionType() ActionType          { return ActionRandom }
func (a UnknownAction) ActionType() ActionType       { return ActionType(a.Type) }

func (SuccessAction) action()         {}
func (FailureAction) action()         {}
func (ShowAction) action()            {}
func (HideAction) action()            {}
func (MoveAction) action()            {}
func (EffectAction) action()          {}
func (PlaySoundAction) action()       {}
func (SwitchAnimationAction) action() {}
func (SetFlagAction) action()         {}
func (ToggleFlagAction) action()      {}
func (CounterAction) action()         {}
func (AddScoreAction) action()        {}
func (RandomAction) action()          {}
func (UnknownAction) action()         {}

// ActionList is an ordered list of actions with type-tagged JSON.
type ActionList []Action

// MarshalJSON encodes each action as an object with a "type" member.
func (l ActionList) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, len(l))
	for i, a := range l {
		data, err := marshalAction(a)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		out[i] = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list of type-tagged action objects.
func (l *ActionList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	list := make(ActionList, len(raw))
	for i, r := range raw {
		a, err := UnmarshalAction(r)
		if err != nil {
			return fmt.Errorf("actions[%d]: %w", i, err)
		}
		list[i] = a
	}
	*l = list
	return nil
}

func marshalAction(a Action) ([]byte, error) {
	if u, ok := a.(UnknownAction); ok {
		if len(u.Raw) > 0 {
			return u.Raw, nil
		}
		return marshalTagged(u.Type, struct{}{})
	}
	return marshalTagged(string(a.ActionType()), a)
}

// UnmarshalAction decodes one type-tagged action object.
// An unrecognized "type" yields an UnknownAction, not an error.
func UnmarshalAction(data []byte) (Action, error) {
	kind, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch ActionType(kind) {
	case ActionSuccess:
		return decodeAs[SuccessAction](data)
	case ActionFailure:
		return decodeAs[FailureAction](data)
	case ActionShow:
		return decodeAs[ShowAction](data)
	case ActionHide:
		return decodeAs[HideAction](data)
	case ActionMove:
		return decodeAs[MoveAction](data)
	case ActionEffect:
		return decodeAs[EffectAction](data)
	case ActionPlaySound:
		return decodeAs[PlaySoundAction](data)
	case ActionSwitchAnimation:
		return decodeAs[SwitchAnimationAction](data)
	case ActionSetFlag:
		return decodeAs[SetFlagAction](data)
	case ActionToggleFlag:
		return decodeAs[ToggleFlagAction](data)
	case ActionCounter:
		return decodeAs[CounterAction](data)
	case ActionAddScore:
		return decodeAs[AddScoreAction](data)
	case ActionRandom:
		return decodeAs[RandomAction](data)
	default:
		return UnknownAction{Type: kind, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
