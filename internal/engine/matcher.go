package engine

import (
	"fmt"
	"math"

	"github.com/roach88/rulekit/internal/ir"
)

// timeEpsilon absorbs float drift from accumulating dt, so ten ticks of
// 0.1 reach one second.
const timeEpsilon = 1e-9

// matchCondition evaluates the condition at index of the current rule.
// Unknown kinds and bad references evaluate false.
func matchCondition(ctx *Context, index int, c ir.Condition) bool {
	key := condKey{RuleID: ctx.ruleID(), Index: index}

	switch cond := c.(type) {
	case ir.TouchCondition:
		return matchTouch(ctx, key, cond)
	case ir.TimeCondition:
		return matchTime(ctx, key, cond)
	case ir.CollisionCondition:
		return matchCollision(ctx, key, cond)
	case ir.CounterCondition:
		return matchCounter(ctx, index, cond)
	case ir.FlagCondition:
		return matchFlag(ctx, index, cond)
	case ir.RandomCondition:
		return matchRandom(ctx, key, cond)
	case ir.PositionCondition:
		return matchPosition(ctx, index, cond)
	case ir.AnimationCondition:
		return matchAnimation(ctx, index, cond)
	case ir.GameStateCondition:
		return ctx.State.Current() == cond.State
	default:
		ctx.report(NewKindError(ctx.ruleID(), SlotCondition, index, string(c.ConditionType())))
		return false
	}
}

// matchTouch: down and up are edge events from this tick's batch; hold
// fires once per press after the press has lasted HoldDuration.
func matchTouch(ctx *Context, key condKey, c ir.TouchCondition) bool {
	target := ctx.resolveTarget(c.Target)

	switch c.TouchType {
	case ir.TouchDown, ir.TouchUp:
		phase := ir.TouchPhaseDown
		if c.TouchType == ir.TouchUp {
			phase = ir.TouchPhaseUp
		}
		for _, t := range ctx.Inputs.Touches {
			if t.Type == phase && t.Target == target {
				return true
			}
		}
		return false

	case ir.TouchHold:
		start, held := ctx.touches.pressStart(target)
		if !held {
			return false
		}
		st := ctx.timing.get(key)
		if st.HoldFired && st.HoldStart == start {
			return false
		}
		hold := c.HoldDuration
		if hold < 0 {
			ctx.report(NewRangeError(key.RuleID, SlotCondition, key.Index, "holdDuration", hold, 0))
			hold = 0
		}
		if ctx.Elapsed-start+timeEpsilon < hold {
			return false
		}
		st.HoldFired, st.HoldStart = true, start
		ctx.timing.stage(key, st)
		return true

	default:
		ctx.report(NewParameterError(key.RuleID, SlotCondition, key.Index,
			fmt.Sprintf("unknown touchType %q", c.TouchType)))
		return false
	}
}

func matchTime(ctx *Context, key condKey, c ir.TimeCondition) bool {
	elapsed := ctx.Elapsed

	switch c.TimeType {
	case ir.TimeExact:
		st := ctx.timing.get(key)
		if st.Fired || elapsed+timeEpsilon < c.Seconds {
			return false
		}
		st.Fired = true
		ctx.timing.stage(key, st)
		return true

	case ir.TimeRange:
		if c.Range == nil {
			ctx.report(NewParameterError(key.RuleID, SlotCondition, key.Index, "time range condition has no range"))
			return false
		}
		return elapsed+timeEpsilon >= c.Range.Min && elapsed-timeEpsilon <= c.Range.Max

	case ir.TimeInterval:
		if c.Interval <= 0 || math.IsNaN(c.Interval) {
			ctx.report(NewParameterError(key.RuleID, SlotCondition, key.Index,
				fmt.Sprintf("time interval must be positive, got %v", c.Interval)))
			return false
		}
		st := ctx.timing.get(key)
		next := st.NextFire
		if next == 0 {
			next = c.Interval
		}
		if elapsed+timeEpsilon < next {
			return false
		}
		// Coalesce: however many intervals dt spanned, fire once and
		// schedule the next boundary after now.
		st.NextFire = (math.Floor((elapsed+timeEpsilon)/c.Interval) + 1) * c.Interval
		ctx.timing.stage(key, st)
		return true

	default:
		ctx.report(NewParameterError(key.RuleID, SlotCondition, key.Index,
			fmt.Sprintf("unknown timeType %q", c.TimeType)))
		return false
	}
}

// matchCollision tracks the overlap of the rule's target object with
// c.Target. A host-reported pair for this tick decides the overlap state;
// otherwise it is computed from world geometry.
func matchCollision(ctx *Context, key condKey, c ir.CollisionCondition) bool {
	self := ctx.resolveTarget("")
	other := c.Target

	st := ctx.timing.get(key)
	prev := st.Overlap
	ct, ok := collisionState(ctx, key, self, other, c.CheckMode, prev)
	if !ok {
		ct = contact{}
	}
	if ct.overlap != prev {
		st.Overlap = ct.overlap
		ctx.timing.stage(key, st)
	}
	if !ok {
		return false
	}

	switch c.CollisionType {
	case ir.CollisionEnter:
		return ct.entered || (ct.overlap && !prev)
	case ir.CollisionStay:
		return ct.overlap
	case ir.CollisionExit:
		return ct.exited || (prev && !ct.overlap)
	default:
		ctx.report(NewParameterError(key.RuleID, SlotCondition, key.Index,
			fmt.Sprintf("unknown collisionType %q", c.CollisionType)))
		return false
	}
}

// contact is a pair's overlap at the end of the tick. entered and exited
// record host-reported enter and exit phases, so a contact that begins
// and ends within one tick still produces both edges.
type contact struct {
	overlap bool
	entered bool
	exited  bool
}

func collisionState(ctx *Context, key condKey, self, other string, mode ir.CheckMode, prev bool) (contact, bool) {
	var ct contact
	seen := false
	for _, ev := range ctx.Inputs.Collisions {
		if !ev.Involves(self, other) {
			continue
		}
		seen = true
		switch ev.Phase {
		case ir.CollisionPhaseEnter:
			ct.entered, ct.overlap = true, true
		case ir.CollisionPhaseStay:
			ct.overlap = true
		case ir.CollisionPhaseExit:
			ct.exited, ct.overlap = true, false
		}
	}
	if seen {
		return ct, true
	}
	if ctx.World == nil {
		return contact{overlap: prev}, true
	}

	a, foundA, _ := ctx.object(SlotCondition, key.Index, self)
	b, foundB, _ := ctx.object(SlotCondition, key.Index, other)
	if !foundA || !foundB {
		return contact{}, false
	}
	if !hitboxOverlap(a, b) {
		return contact{}, true
	}
	switch mode {
	case ir.CheckHitbox, "":
		return contact{overlap: true}, true
	case ir.CheckPixel:
		return contact{overlap: pixelOverlap(a, b)}, true
	default:
		ctx.report(NewParameterError(key.RuleID, SlotCondition, key.Index,
			fmt.Sprintf("unknown checkMode %q", mode)))
		return contact{}, false
	}
}

func matchCounter(ctx *Context, index int, c ir.CounterCondition) bool {
	v, err := ctx.Values.Counter(c.CounterName)
	if err != nil {
		ctx.report(NewReferenceError(ctx.ruleID(), SlotCondition, index, "counter", c.CounterName))
		return false
	}
	switch c.Comparison {
	case ir.CompareEquals:
		return v == c.Value
	case ir.CompareNotEquals:
		return v != c.Value
	case ir.CompareGreater:
		return v > c.Value
	case ir.CompareLess:
		return v < c.Value
	case ir.CompareGreaterOrEqual:
		return v >= c.Value
	case ir.CompareLessOrEqual:
		return v <= c.Value
	default:
		ctx.report(NewParameterError(ctx.ruleID(), SlotCondition, index,
			fmt.Sprintf("unknown comparison %q", c.Comparison)))
		return false
	}
}

func matchFlag(ctx *Context, index int, c ir.FlagCondition) bool {
	v, err := ctx.Values.Flag(c.FlagID)
	if err != nil {
		ctx.report(NewReferenceError(ctx.ruleID(), SlotCondition, index, "flag", c.FlagID))
		return false
	}
	switch c.Condition {
	case ir.FlagOn:
		return v
	case ir.FlagOff:
		return !v
	default:
		ctx.report(NewParameterError(ctx.ruleID(), SlotCondition, index,
			fmt.Sprintf("unknown flag condition %q", c.Condition)))
		return false
	}
}

// matchRandom rolls on the first evaluation and then whenever Interval
// milliseconds have passed since the last roll. Ticks without a roll
// evaluate false.
func matchRandom(ctx *Context, key condKey, c ir.RandomCondition) bool {
	p := c.Probability
	switch {
	case math.IsNaN(p):
		ctx.report(NewRangeError(key.RuleID, SlotCondition, key.Index, "probability", p, 0))
		p = 0
	case p < 0:
		ctx.report(NewRangeError(key.RuleID, SlotCondition, key.Index, "probability", p, 0))
		p = 0
	case p > 1:
		ctx.report(NewRangeError(key.RuleID, SlotCondition, key.Index, "probability", p, 1))
		p = 1
	}

	interval := c.Interval
	if interval < 0 || math.IsNaN(interval) {
		ctx.report(NewRangeError(key.RuleID, SlotCondition, key.Index, "interval", interval, 0))
		interval = 0
	}

	st := ctx.timing.get(key)
	if st.Rolled && (ctx.Elapsed-st.LastRoll)*1000+timeEpsilon < interval {
		return false
	}
	st.Rolled, st.LastRoll = true, ctx.Elapsed
	ctx.timing.stage(key, st)
	return ctx.rng.Float64() < p
}

// matchPosition tests the object's center for inside/outside and its
// bounding box for intersect.
func matchPosition(ctx *Context, index int, c ir.PositionCondition) bool {
	target := ctx.resolveTarget(c.Target)
	obj, found, _ := ctx.object(SlotCondition, index, target)
	if !found {
		return false
	}

	var (
		hit bool
		err error
	)
	switch c.Area {
	case ir.AreaInside, ir.AreaOutside:
		hit, err = regionContains(c.Region, obj.Center())
		if c.Area == ir.AreaOutside {
			hit = !hit
		}
	case ir.AreaIntersect:
		hit, err = regionIntersects(c.Region, objectRect(obj))
	default:
		err = fmt.Errorf("unknown area %q", c.Area)
	}
	if err != nil {
		ctx.report(NewParameterError(ctx.ruleID(), SlotCondition, index, err.Error()))
		return false
	}
	return hit
}

// matchAnimation: start, end and loop are edge events reported by the
// host's animation player this tick; frame holds while the current frame
// equals FrameNumber.
func matchAnimation(ctx *Context, index int, c ir.AnimationCondition) bool {
	target := ctx.resolveTarget(c.Target)

	switch c.Condition {
	case ir.AnimationStart, ir.AnimationEnd, ir.AnimationLoop:
		for _, ev := range ctx.Inputs.Animations {
			if ev.ObjectID == target && ev.Phase == c.Condition {
				return true
			}
		}
		return false

	case ir.AnimationFrame:
		if c.FrameNumber == nil {
			ctx.report(NewParameterError(ctx.ruleID(), SlotCondition, index, "frame condition has no frameNumber"))
			return false
		}
		obj, found, _ := ctx.object(SlotCondition, index, target)
		return found && obj.Frame == *c.FrameNumber

	default:
		ctx.report(NewParameterError(ctx.ruleID(), SlotCondition, index,
			fmt.Sprintf("unknown animation condition %q", c.Condition)))
		return false
	}
}
