package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/values"
)

// Execute runs actions in order for the current rule. Actions after a
// success or failure still run. Execution stops early only when the
// tick's action quota is exhausted.
func Execute(ctx *Context, actions ir.ActionList) {
	for i, a := range actions {
		if !executeAction(ctx, i, 0, a) {
			return
		}
	}
}

// executeAction runs one action. index is the top-level position in the
// rule, used for diagnostics; depth counts randomAction nesting. It
// returns false once the quota is exhausted.
func executeAction(ctx *Context, index, depth int, a ir.Action) bool {
	if ctx.quota != nil {
		if err := ctx.quota.Check(ctx.ruleID(), index); err != nil {
			ctx.report(err)
			return false
		}
	}

	switch act := a.(type) {
	case ir.SuccessAction:
		transition(ctx, ir.GameSuccess, act.Message)
	case ir.FailureAction:
		transition(ctx, ir.GameFailure, act.Message)
	case ir.ShowAction:
		setVisible(ctx, index, act.TargetID, true, act.Fade)
	case ir.HideAction:
		setVisible(ctx, index, act.TargetID, false, act.Fade)
	case ir.MoveAction:
		executeMove(ctx, index, act)
	case ir.EffectAction:
		executeEffect(ctx, index, act)
	case ir.PlaySoundAction:
		executePlaySound(ctx, index, act)
	case ir.SwitchAnimationAction:
		executeSwitchAnimation(ctx, index, act)
	case ir.SetFlagAction:
		ch, err := ctx.Values.SetFlag(act.FlagID, act.Value)
		recordFlag(ctx, index, act.FlagID, ch, err)
	case ir.ToggleFlagAction:
		ch, err := ctx.Values.ToggleFlag(act.FlagID)
		recordFlag(ctx, index, act.FlagID, ch, err)
	case ir.CounterAction:
		mutateCounter(ctx, index, act.CounterName, act.Operation, act.Value)
	case ir.AddScoreAction:
		mutateCounter(ctx, index, values.ScoreCounter, ir.CounterAdd, act.Points)
	case ir.RandomAction:
		return executeRandom(ctx, index, depth, act)
	default:
		ctx.report(NewKindError(ctx.ruleID(), SlotAction, index, string(a.ActionType())))
	}
	return true
}

func transition(ctx *Context, to ir.GameState, message string) {
	ch, ok := ctx.State.Transition(to, ctx.ruleID(), message)
	if ok && ctx.result.StateChange == nil {
		ctx.result.StateChange = &ch
	}
}

// targetObject resolves an action target and checks it against the world.
// With no world every id is accepted.
func targetObject(ctx *Context, index int, id string) (string, bool) {
	id = ctx.resolveTarget(id)
	_, found, known := ctx.object(SlotAction, index, id)
	if known && !found {
		return id, false
	}
	return id, true
}

func setVisible(ctx *Context, index int, target string, visible, fade bool) {
	id, ok := targetObject(ctx, index, target)
	if !ok {
		return
	}
	if mw, ok := ctx.World.(MutableWorld); ok {
		mw.SetVisible(id, visible)
	}
	kind := ir.MutationHide
	if visible {
		kind = ir.MutationShow
	}
	ctx.result.Mutations = append(ctx.result.Mutations, ir.ObjectMutation{
		RuleID:   ctx.ruleID(),
		ObjectID: id,
		Kind:     kind,
		Fade:     fade,
	})
}

func executeMove(ctx *Context, index int, act ir.MoveAction) {
	m := act.Movement
	switch m.Type {
	case ir.MovementTeleport:
		if m.Target == nil {
			ctx.report(NewParameterError(ctx.ruleID(), SlotAction, index, "teleport has no target point"))
			return
		}
	case ir.MovementLinear, ir.MovementApproach, ir.MovementBounce, ir.MovementWander, ir.MovementStop:
	default:
		ctx.report(NewParameterError(ctx.ruleID(), SlotAction, index,
			fmt.Sprintf("unknown movement type %q", m.Type)))
		return
	}
	if m.Speed < 0 {
		ctx.report(NewRangeError(ctx.ruleID(), SlotAction, index, "speed", m.Speed, 0))
		m.Speed = 0
	}
	if m.Duration < 0 {
		ctx.report(NewRangeError(ctx.ruleID(), SlotAction, index, "duration", m.Duration, 0))
		m.Duration = 0
	}

	id, ok := targetObject(ctx, index, act.TargetID)
	if !ok {
		return
	}
	// Teleport is applied immediately; other movements are animated by
	// the host from the mutation.
	if m.Type == ir.MovementTeleport {
		if mw, ok := ctx.World.(MutableWorld); ok {
			mw.SetPosition(id, *m.Target)
		}
	}
	ctx.result.Mutations = append(ctx.result.Mutations, ir.ObjectMutation{
		RuleID:   ctx.ruleID(),
		ObjectID: id,
		Kind:     ir.MutationMove,
		Movement: &m,
	})
}

func executeEffect(ctx *Context, index int, act ir.EffectAction) {
	e := act.Effect
	switch e.Type {
	case ir.EffectFlash, ir.EffectShake, ir.EffectScale, ir.EffectRotate, ir.EffectParticles:
	default:
		ctx.report(NewParameterError(ctx.ruleID(), SlotAction, index,
			fmt.Sprintf("unknown effect type %q", e.Type)))
		return
	}
	if e.Duration < 0 {
		ctx.report(NewRangeError(ctx.ruleID(), SlotAction, index, "duration", e.Duration, 0))
		e.Duration = 0
	}
	if e.Intensity < 0 {
		ctx.report(NewRangeError(ctx.ruleID(), SlotAction, index, "intensity", e.Intensity, 0))
		e.Intensity = 0
	}

	id, ok := targetObject(ctx, index, act.TargetID)
	if !ok {
		return
	}
	ctx.result.Effects = append(ctx.result.Effects, ir.EffectRequest{
		RuleID:   ctx.ruleID(),
		ObjectID: id,
		Effect:   e,
	})
}

func executePlaySound(ctx *Context, index int, act ir.PlaySoundAction) {
	if act.SoundID == "" {
		ctx.report(NewParameterError(ctx.ruleID(), SlotAction, index, "playSound has no soundId"))
		return
	}
	volume := 1.0
	if act.Volume != nil {
		volume = *act.Volume
		clamped := math.Min(math.Max(volume, 0), 1)
		if math.IsNaN(volume) {
			clamped = 1
		}
		if clamped != volume {
			ctx.report(NewRangeError(ctx.ruleID(), SlotAction, index, "volume", volume, clamped))
			volume = clamped
		}
	}
	ctx.result.Sounds = append(ctx.result.Sounds, ir.SoundRequest{
		RuleID:  ctx.ruleID(),
		SoundID: act.SoundID,
		Volume:  volume,
	})
}

func executeSwitchAnimation(ctx *Context, index int, act ir.SwitchAnimationAction) {
	if act.AnimationIndex < 0 {
		ctx.report(NewParameterError(ctx.ruleID(), SlotAction, index,
			fmt.Sprintf("animationIndex must not be negative, got %d", act.AnimationIndex)))
		return
	}
	id, ok := targetObject(ctx, index, act.TargetID)
	if !ok {
		return
	}

	change := ir.AnimationChange{Index: act.AnimationIndex, Speed: act.Speed, Loop: true, AutoPlay: true}
	if change.Speed <= 0 {
		change.Speed = 1
	}
	if act.Loop != nil {
		change.Loop = *act.Loop
	}
	if act.AutoPlay != nil {
		change.AutoPlay = *act.AutoPlay
	}
	if mw, ok := ctx.World.(MutableWorld); ok {
		mw.SetAnimation(id, act.AnimationIndex)
	}
	ctx.result.Mutations = append(ctx.result.Mutations, ir.ObjectMutation{
		RuleID:    ctx.ruleID(),
		ObjectID:  id,
		Kind:      ir.MutationAnimation,
		Animation: &change,
	})
}

func recordFlag(ctx *Context, index int, name string, ch values.FlagChange, err error) {
	if err != nil {
		ctx.report(NewReferenceError(ctx.ruleID(), SlotAction, index, "flag", name))
		return
	}
	ctx.result.ValueChanges = append(ctx.result.ValueChanges, ir.ValueChange{
		RuleID: ctx.ruleID(),
		Kind:   ir.ValueFlag,
		Name:   ch.Name,
		Before: ch.Before,
		After:  ch.After,
	})
}

func mutateCounter(ctx *Context, index int, name string, op ir.CounterOperation, operand float64) {
	m, err := ctx.Values.Mutate(name, op, operand)
	switch {
	case err == nil:
	case errors.Is(err, values.ErrUnknownCounter):
		ctx.report(NewReferenceError(ctx.ruleID(), SlotAction, index, "counter", name))
		return
	default:
		ctx.report(NewParameterError(ctx.ruleID(), SlotAction, index, err.Error()))
		return
	}
	if m.Overflow {
		ctx.report(NewRangeError(ctx.ruleID(), SlotAction, index, "counter "+name, m.After, m.After))
	}
	ctx.result.ValueChanges = append(ctx.result.ValueChanges, ir.ValueChange{
		RuleID: ctx.ruleID(),
		Kind:   ir.ValueCounter,
		Name:   m.Name,
		Before: m.Before,
		After:  m.After,
	})
}

// executeRandom runs exactly one nested action, chosen uniformly.
func executeRandom(ctx *Context, index, depth int, act ir.RandomAction) bool {
	if len(act.Actions) == 0 {
		ctx.report(NewParameterError(ctx.ruleID(), SlotAction, index, "randomAction has no actions"))
		return true
	}
	if depth >= MaxRandomDepth {
		ctx.report(NewParameterError(ctx.ruleID(), SlotAction, index,
			fmt.Sprintf("randomAction nested deeper than %d", MaxRandomDepth)))
		return true
	}
	pick := act.Actions[ctx.rng.IntN(len(act.Actions))]
	return executeAction(ctx, index, depth+1, pick)
}
