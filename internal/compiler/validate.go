package compiler

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/rulekit/internal/engine"
	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/values"
)

// Validation error codes (E100-E199). These stop a session from starting.
const (
	ErrEmptyRuleID     = "E101"
	ErrDuplicateRuleID = "E102"
)

// Validation warning codes (W200-W299). The engine tolerates these at
// runtime and reports them as diagnostics.
const (
	WarnUnknownReference = "W201" // counter, flag or object not defined
	WarnUnknownKind      = "W202" // condition or action type not known
	WarnOutOfRange       = "W203" // numeric parameter outside its range
	WarnInvalidParameter = "W204" // missing or unknown enum parameter
	WarnCounterBounds    = "W205" // min > max, or initial value outside bounds
	WarnDuplicateName    = "W206" // counter or flag name/id defined twice
	WarnFeedbackCycle    = "W207" // rules feed each other through values
)

// ValidationError is one problem found in a snapshot.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Result collects everything Validate found. It never fails fast.
type Result struct {
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Cycles   []CycleWarning    `json:"cycles,omitempty"`
}

// OK reports whether the snapshot can be played.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Err joins the fatal errors, or returns nil.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// ValidateOption configures Validate.
type ValidateOption func(*validator)

// WithObjects enables object reference checks against the given ids.
func WithObjects(ids ...string) ValidateOption {
	return func(v *validator) {
		v.objects = make(map[string]bool, len(ids))
		for _, id := range ids {
			v.objects[id] = true
		}
	}
}

type validator struct {
	values  *values.Store
	objects map[string]bool
	result  *Result
}

// Validate checks a snapshot for fatal structural errors and runtime
// warnings.
func Validate(snap *ir.Snapshot, opts ...ValidateOption) *Result {
	v := &validator{
		values: values.New(snap.Counters, snap.Flags),
		result: &Result{Errors: []ValidationError{}, Warnings: []ValidationError{}},
	}
	v.values.EnsureCounter(values.ScoreCounter)
	for _, opt := range opts {
		opt(v)
	}

	v.validateValues(snap)

	seen := make(map[string]int, len(snap.Rules))
	for i, rule := range snap.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		switch prev, dup := seen[rule.ID]; {
		case rule.ID == "":
			v.fail(field+".id", ErrEmptyRuleID, "rule id is required")
		case dup:
			v.fail(field+".id", ErrDuplicateRuleID,
				fmt.Sprintf("duplicate rule id %q (first at rules[%d])", rule.ID, prev))
		default:
			seen[rule.ID] = i
		}
		v.validateRule(field, rule)
	}

	for _, c := range AnalyzeFeedback(snap) {
		v.result.Cycles = append(v.result.Cycles, c)
		if c.Level == "warning" {
			v.warn("rules", WarnFeedbackCycle, c.Message)
		}
	}
	return v.result
}

func (v *validator) fail(field, code, msg string) {
	v.result.Errors = append(v.result.Errors, ValidationError{Field: field, Code: code, Message: msg})
}

func (v *validator) warn(field, code, msg string) {
	v.result.Warnings = append(v.result.Warnings, ValidationError{Field: field, Code: code, Message: msg})
}

func (v *validator) validateValues(snap *ir.Snapshot) {
	counterNames := make(map[string]bool)
	for i, c := range snap.Counters {
		field := fmt.Sprintf("counters[%d]", i)
		if c.Name == "" {
			v.warn(field+".name", WarnInvalidParameter, "counter name is empty")
		} else if counterNames[c.Name] {
			v.warn(field+".name", WarnDuplicateName, fmt.Sprintf("duplicate counter name %q", c.Name))
		}
		counterNames[c.Name] = true

		if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
			v.warn(field, WarnCounterBounds, fmt.Sprintf("min %v is greater than max %v", *c.Min, *c.Max))
			continue
		}
		if (c.Min != nil && c.InitialValue < *c.Min) || (c.Max != nil && c.InitialValue > *c.Max) {
			v.warn(field+".initialValue", WarnCounterBounds,
				fmt.Sprintf("initial value %v is outside the counter bounds and will be clamped", c.InitialValue))
		}
	}

	flagNames := make(map[string]bool)
	for i, f := range snap.Flags {
		field := fmt.Sprintf("flags[%d]", i)
		if f.Name == "" {
			v.warn(field+".name", WarnInvalidParameter, "flag name is empty")
		} else if flagNames[f.Name] {
			v.warn(field+".name", WarnDuplicateName, fmt.Sprintf("duplicate flag name %q", f.Name))
		}
		flagNames[f.Name] = true
	}
}

func (v *validator) validateRule(field string, rule ir.Rule) {
	v.checkObject(field+".targetObjectId", rule.TargetObjectID)

	switch rule.Triggers.Operator {
	case "", ir.OperatorAnd, ir.OperatorOr:
	default:
		v.warn(field+".triggers.operator", WarnInvalidParameter,
			fmt.Sprintf("unknown operator %q, AND is used", rule.Triggers.Operator))
	}

	for i, c := range rule.Triggers.Conditions {
		v.validateCondition(fmt.Sprintf("%s.triggers.conditions[%d]", field, i), c)
	}
	for i, a := range rule.Actions {
		v.validateAction(fmt.Sprintf("%s.actions[%d]", field, i), a, 0)
	}
}

func (v *validator) checkObject(field, id string) {
	if v.objects == nil || id == "" {
		return
	}
	if !v.objects[id] {
		v.warn(field, WarnUnknownReference, fmt.Sprintf("unknown object %q", id))
	}
}

func (v *validator) checkCounter(field, name string) {
	if !v.values.HasCounter(name) {
		v.warn(field, WarnUnknownReference, fmt.Sprintf("unknown counter %q", name))
	}
}

func (v *validator) checkFlag(field, name string) {
	if !v.values.HasFlag(name) {
		v.warn(field, WarnUnknownReference, fmt.Sprintf("unknown flag %q", name))
	}
}

func (v *validator) checkEnum(field, got string, allowed ...string) {
	for _, a := range allowed {
		if got == a {
			return
		}
	}
	v.warn(field, WarnInvalidParameter, fmt.Sprintf("unknown value %q", got))
}

func (v *validator) checkNonNegative(field string, got float64) {
	if got < 0 || math.IsNaN(got) {
		v.warn(field, WarnOutOfRange, fmt.Sprintf("%v must not be negative", got))
	}
}

func (v *validator) validateCondition(field string, c ir.Condition) {
	switch c := c.(type) {
	case ir.TouchCondition:
		v.checkObject(field+".target", c.Target)
		v.checkEnum(field+".touchType", string(c.TouchType),
			string(ir.TouchDown), string(ir.TouchUp), string(ir.TouchHold))
		v.checkNonNegative(field+".holdDuration", c.HoldDuration)

	case ir.TimeCondition:
		switch c.TimeType {
		case ir.TimeExact:
			v.checkNonNegative(field+".seconds", c.Seconds)
		case ir.TimeRange:
			if c.Range == nil {
				v.warn(field+".range", WarnInvalidParameter, "range time condition has no range")
			} else if c.Range.Min > c.Range.Max {
				v.warn(field+".range", WarnOutOfRange,
					fmt.Sprintf("range min %v is greater than max %v and never matches", c.Range.Min, c.Range.Max))
			}
		case ir.TimeInterval:
			if !(c.Interval > 0) {
				v.warn(field+".interval", WarnOutOfRange,
					fmt.Sprintf("interval must be positive, got %v", c.Interval))
			}
		default:
			v.warn(field+".timeType", WarnInvalidParameter, fmt.Sprintf("unknown value %q", c.TimeType))
		}

	case ir.CollisionCondition:
		if c.Target == "" {
			v.warn(field+".target", WarnInvalidParameter, "collision condition has no target")
		}
		v.checkObject(field+".target", c.Target)
		v.checkEnum(field+".collisionType", string(c.CollisionType),
			string(ir.CollisionEnter), string(ir.CollisionStay), string(ir.CollisionExit))
		v.checkEnum(field+".checkMode", string(c.CheckMode),
			"", string(ir.CheckHitbox), string(ir.CheckPixel))

	case ir.CounterCondition:
		v.checkCounter(field+".counterName", c.CounterName)
		v.checkEnum(field+".comparison", string(c.Comparison),
			string(ir.CompareEquals), string(ir.CompareNotEquals),
			string(ir.CompareGreater), string(ir.CompareLess),
			string(ir.CompareGreaterOrEqual), string(ir.CompareLessOrEqual))

	case ir.FlagCondition:
		v.checkFlag(field+".flagId", c.FlagID)
		v.checkEnum(field+".condition", string(c.Condition), string(ir.FlagOn), string(ir.FlagOff))

	case ir.RandomCondition:
		if c.Probability < 0 || c.Probability > 1 || math.IsNaN(c.Probability) {
			v.warn(field+".probability", WarnOutOfRange,
				fmt.Sprintf("probability %v is outside [0, 1] and will be clamped", c.Probability))
		}
		v.checkNonNegative(field+".interval", c.Interval)

	case ir.PositionCondition:
		v.checkObject(field+".target", c.Target)
		v.checkEnum(field+".area", string(c.Area),
			string(ir.AreaInside), string(ir.AreaOutside), string(ir.AreaIntersect))
		v.checkEnum(field+".region.shape", string(c.Region.Shape),
			"", string(ir.ShapeRect), string(ir.ShapeCircle))
		v.checkNonNegative(field+".region.width", c.Region.Width)
		v.checkNonNegative(field+".region.height", c.Region.Height)
		v.checkNonNegative(field+".region.radius", c.Region.Radius)

	case ir.AnimationCondition:
		v.checkObject(field+".target", c.Target)
		v.checkEnum(field+".condition", string(c.Condition),
			string(ir.AnimationStart), string(ir.AnimationEnd),
			string(ir.AnimationFrame), string(ir.AnimationLoop))
		if c.Condition == ir.AnimationFrame {
			if c.FrameNumber == nil {
				v.warn(field+".frameNumber", WarnInvalidParameter, "frame condition has no frameNumber")
			} else if *c.FrameNumber < 0 {
				v.warn(field+".frameNumber", WarnOutOfRange,
					fmt.Sprintf("frame %d never matches", *c.FrameNumber))
			}
		}

	case ir.GameStateCondition:
		v.checkEnum(field+".state", string(c.State),
			string(ir.GamePlaying), string(ir.GameSuccess), string(ir.GameFailure))

	default:
		v.warn(field+".type", WarnUnknownKind,
			fmt.Sprintf("unknown condition type %q evaluates false", c.ConditionType()))
	}
}

func (v *validator) validateAction(field string, a ir.Action, depth int) {
	switch a := a.(type) {
	case ir.SuccessAction, ir.FailureAction, ir.AddScoreAction:

	case ir.ShowAction:
		v.checkObject(field+".targetId", a.TargetID)
	case ir.HideAction:
		v.checkObject(field+".targetId", a.TargetID)

	case ir.MoveAction:
		v.checkObject(field+".targetId", a.TargetID)
		m := a.Movement
		v.checkEnum(field+".movement.type", string(m.Type),
			string(ir.MovementTeleport), string(ir.MovementLinear), string(ir.MovementApproach),
			string(ir.MovementBounce), string(ir.MovementWander), string(ir.MovementStop))
		if m.Type == ir.MovementTeleport && m.Target == nil {
			v.warn(field+".movement.target", WarnInvalidParameter, "teleport has no target point")
		}
		v.checkNonNegative(field+".movement.speed", m.Speed)
		v.checkNonNegative(field+".movement.duration", m.Duration)

	case ir.EffectAction:
		v.checkObject(field+".targetId", a.TargetID)
		v.checkEnum(field+".effect.type", string(a.Effect.Type),
			string(ir.EffectFlash), string(ir.EffectShake), string(ir.EffectScale),
			string(ir.EffectRotate), string(ir.EffectParticles))
		v.checkNonNegative(field+".effect.duration", a.Effect.Duration)
		v.checkNonNegative(field+".effect.intensity", a.Effect.Intensity)

	case ir.PlaySoundAction:
		if a.SoundID == "" {
			v.warn(field+".soundId", WarnInvalidParameter, "playSound has no soundId")
		}
		if a.Volume != nil && (*a.Volume < 0 || *a.Volume > 1) {
			v.warn(field+".volume", WarnOutOfRange,
				fmt.Sprintf("volume %v is outside [0, 1] and will be clamped", *a.Volume))
		}

	case ir.SwitchAnimationAction:
		v.checkObject(field+".targetId", a.TargetID)
		if a.AnimationIndex < 0 {
			v.warn(field+".animationIndex", WarnOutOfRange,
				fmt.Sprintf("animation index %d is negative", a.AnimationIndex))
		}
		v.checkNonNegative(field+".speed", a.Speed)

	case ir.SetFlagAction:
		v.checkFlag(field+".flagId", a.FlagID)
	case ir.ToggleFlagAction:
		v.checkFlag(field+".flagId", a.FlagID)

	case ir.CounterAction:
		v.checkCounter(field+".counterName", a.CounterName)
		v.checkEnum(field+".operation", string(a.Operation),
			string(ir.CounterAdd), string(ir.CounterSubtract),
			string(ir.CounterSet), string(ir.CounterMultiply))

	case ir.RandomAction:
		if len(a.Actions) == 0 {
			v.warn(field+".actions", WarnInvalidParameter, "randomAction has no actions")
			return
		}
		if depth >= engine.MaxRandomDepth {
			v.warn(field+".actions", WarnOutOfRange,
				fmt.Sprintf("randomAction nested deeper than %d will not run", engine.MaxRandomDepth))
			return
		}
		for i, nested := range a.Actions {
			v.validateAction(fmt.Sprintf("%s.actions[%d]", field, i), nested, depth+1)
		}

	default:
		v.warn(field+".type", WarnUnknownKind,
			fmt.Sprintf("unknown action type %q is skipped", a.ActionType()))
	}
}
