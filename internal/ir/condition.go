package ir

import (
	"encoding/json"
	"fmt"
)

// ConditionType is the discriminator of the Condition sum type.
type ConditionType string

const (
	ConditionTouch     ConditionType = "touch"
	ConditionTime      ConditionType = "time"
	ConditionCollision ConditionType = "collision"
	ConditionCounter   ConditionType = "counter"
	ConditionFlag      ConditionType = "flag"
	ConditionRandom    ConditionType = "random"
	ConditionPosition  ConditionType = "position"
	ConditionAnimation ConditionType = "animation"
	ConditionGameState ConditionType = "gameState"
)

// Condition is a sealed interface over the condition variants.
// Only the types in this file implement it.
type Condition interface {
	ConditionType() ConditionType
	condition()
}

// TouchType selects which touch transition a touch condition watches.
type TouchType string

const (
	TouchDown TouchType = "down"
	TouchUp   TouchType = "up"
	TouchHold TouchType = "hold"
)

// TouchCondition matches touches on an object. An empty Target means the
// rule's target object. HoldDuration is in seconds and only used by hold.
type TouchCondition struct {
	Target       string    `json:"target,omitempty"`
	TouchType    TouchType `json:"touchType"`
	HoldDuration float64   `json:"holdDuration,omitempty"`
}

// TimeType selects how a time condition reads the session clock.
type TimeType string

const (
	TimeExact    TimeType = "exact"
	TimeRange    TimeType = "range"
	TimeInterval TimeType = "interval"
)

// TimeWindow is an inclusive [Min, Max] window in seconds.
type TimeWindow struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// TimeCondition matches elapsed session time, in seconds.
type TimeCondition struct {
	TimeType TimeType    `json:"timeType"`
	Seconds  float64     `json:"seconds,omitempty"`
	Range    *TimeWindow `json:"range,omitempty"`
	Interval float64     `json:"interval,omitempty"`
}

// CollisionType selects the overlap transition a collision condition watches.
type CollisionType string

const (
	CollisionEnter CollisionType = "enter"
	CollisionStay  CollisionType = "stay"
	CollisionExit  CollisionType = "exit"
)

// CheckMode selects the overlap test.
type CheckMode string

const (
	CheckHitbox CheckMode = "hitbox"
	CheckPixel  CheckMode = "pixel"
)

// CollisionCondition matches overlap between the rule's target object and Target.
type CollisionCondition struct {
	Target        string        `json:"target"`
	CollisionType CollisionType `json:"collisionType"`
	CheckMode     CheckMode     `json:"checkMode,omitempty"`
}

// Comparison is a numeric comparison operator.
type Comparison string

const (
	CompareEquals         Comparison = "equals"
	CompareNotEquals      Comparison = "notEquals"
	CompareGreater        Comparison = "greater"
	CompareLess           Comparison = "less"
	CompareGreaterOrEqual Comparison = "greaterOrEqual"
	CompareLessOrEqual    Comparison = "lessOrEqual"
)

// CounterCondition compares a counter against Value.
type CounterCondition struct {
	CounterName string     `json:"counterName"`
	Comparison  Comparison `json:"comparison"`
	Value       float64    `json:"value"`
}

// FlagState is the expected state of a flag.
type FlagState string

const (
	FlagOn  FlagState = "ON"
	FlagOff FlagState = "OFF"
)

// FlagCondition matches a flag's current state.
type FlagCondition struct {
	FlagID    string    `json:"flagId"`
	Condition FlagState `json:"condition"`
}

// RandomCondition is a Bernoulli trial re-rolled at most once per Interval
// milliseconds.
type RandomCondition struct {
	Probability float64 `json:"probability"`
	Interval    float64 `json:"interval"`
}

// Area selects the relation a position condition tests.
type Area string

const (
	AreaInside    Area = "inside"
	AreaOutside   Area = "outside"
	AreaIntersect Area = "intersect"
)

// PositionCondition tests an object's placement against a stage region.
// An empty Target means the rule's target object.
type PositionCondition struct {
	Target string `json:"target,omitempty"`
	Area   Area   `json:"area"`
	Region Region `json:"region"`
}

// AnimationEventType selects the animation-player transition to watch.
type AnimationEventType string

const (
	AnimationStart AnimationEventType = "start"
	AnimationEnd   AnimationEventType = "end"
	AnimationFrame AnimationEventType = "frame"
	AnimationLoop  AnimationEventType = "loop"
)

// AnimationCondition matches animation-player events or the current frame
// of an object. An empty Target means the rule's target object.
type AnimationCondition struct {
	Target      string             `json:"target,omitempty"`
	Condition   AnimationEventType `json:"condition"`
	FrameNumber *int               `json:"frameNumber,omitempty"`
}

// GameStateCondition matches the session's current game state.
type GameStateCondition struct {
	State GameState `json:"state"`
}

// UnknownCondition preserves a condition whose kind this engine does not
// know, typically from newer project data. It always evaluates false.
type UnknownCondition struct {
	Type string
	Raw  json.RawMessage
}

func (TouchCondition) ConditionType() ConditionType     { return ConditionTouch }
func (TimeCondition) ConditionType() ConditionType      { return ConditionTime }
func (CollisionCondition) ConditionType() ConditionType { return ConditionCollision }
func (CounterCondition) ConditionType() ConditionType   { return ConditionCounter }
func (FlagCondition) ConditionType() ConditionType      { return ConditionFlag }
func (RandomCondition) ConditionType() ConditionType    { return ConditionRandom }
func (PositionCondition) ConditionType() ConditionType  { return ConditionPosition }
func (AnimationCondition) ConditionType() ConditionType { return ConditionAnimation }
func (GameStateCondition) ConditionType() ConditionType { return ConditionGameState }
func (c UnknownCondition) ConditionType() ConditionType { return ConditionType(c.Type) }

func (TouchCondition) condition()     {}
func (TimeCondition) condition()      {}
func (CollisionCondition) condition() {}
func (CounterCondition) condition()   {}
func (FlagCondition) condition()      {}
func (RandomCondition) condition()    {}
func (PositionCondition) condition()  {}
func (AnimationCondition) condition() {}
func (GameStateCondition) condition() {}
func (UnknownCondition) condition()   {}

// ConditionList is an ordered list of conditions with type-tagged JSON.
type ConditionList []Condition

// MarshalJSON encodes each condition as an object with a "type" member.
func (l ConditionList) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, len(l))
	for i, c := range l {
		data, err := marshalCondition(c)
		if err != nil {
			return nil, fmt.Errorf("conditions[%d]: %w", i, err)
		}
		out[i] = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list of type-tagged condition objects.
func (l *ConditionList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	list := make(ConditionList, len(raw))
	for i, r := range raw {
		c, err := UnmarshalCondition(r)
		if err != nil {
			return fmt.Errorf("conditions[%d]: %w", i, err)
		}
		list[i] = c
	}
	*l = list
	return nil
}

func marshalCondition(c Condition) ([]byte, error) {
	if u, ok := c.(UnknownCondition); ok {
		if len(u.Raw) > 0 {
			return u.Raw, nil
		}
		return marshalTagged(u.Type, struct{}{})
	}
	return marshalTagged(string(c.ConditionType()), c)
}

// UnmarshalCondition decodes one type-tagged condition object.
// An unrecognized "type" yields an UnknownCondition, not an error.
func UnmarshalCondition(data []byte) (Condition, error) {
	kind, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch ConditionType(kind) {
	case ConditionTouch:
		return decodeAs[TouchCondition](data)
	case ConditionTime:
		return decodeAs[TimeCondition](data)
	case ConditionCollision:
		return decodeAs[CollisionCondition](data)
	case ConditionCounter:
		return decodeAs[CounterCondition](data)
	case ConditionFlag:
		return decodeAs[FlagCondition](data)
	case ConditionRandom:
		return decodeAs[RandomCondition](data)
	case ConditionPosition:
		return decodeAs[PositionCondition](data)
	case ConditionAnimation:
		return decodeAs[AnimationCondition](data)
	case ConditionGameState:
		return decodeAs[GameStateCondition](data)
	default:
		return UnknownCondition{Type: kind, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
