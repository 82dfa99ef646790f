package engine

import (
	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/values"
)

// Context is everything a matcher or executor may read or write during one
// tick. It is created by Tick and threaded explicitly through every call;
// nothing in the engine is package-global.
type Context struct {
	// Values is the session's Value Store.
	Values *values.Store

	// World is the host's object accessor. It may be nil, in which case
	// geometry-based conditions only see host-reported events.
	World World

	// State is the game state machine.
	State *StateMachine

	// Elapsed is session time in seconds after this tick's dt was added.
	Elapsed float64

	// Dt is this tick's time step.
	Dt float64

	// Inputs is this tick's input batch with untargeted touches resolved
	// by hit-testing.
	Inputs ir.Inputs

	// Rule is the rule currently being evaluated or executed.
	Rule *ir.Rule

	rng      *RNG
	timing   *timingArena
	touches  *touchTracker
	reporter *reporter
	quota    *ActionQuota
	result   *ir.TickResult
}

// report sends a runtime error to the session's reporter.
func (c *Context) report(e *RuntimeError) {
	if c.reporter != nil {
		c.reporter.report(c.result, e)
	}
}

func (c *Context) ruleID() string {
	if c.Rule == nil {
		return ""
	}
	return c.Rule.ID
}

// resolveTarget maps an empty target to the current rule's target object.
func (c *Context) resolveTarget(target string) string {
	if target == "" && c.Rule != nil {
		return c.Rule.TargetObjectID
	}
	return target
}

// object looks up id in the world, reporting an unknown reference when
// the world exists and does not have it. known is false when there is no
// world to consult.
func (c *Context) object(slot string, index int, id string) (obj ir.ObjectState, found, known bool) {
	if c.World == nil {
		return ir.ObjectState{}, false, false
	}
	obj, found = c.World.Object(id)
	if !found {
		c.report(NewReferenceError(c.ruleID(), slot, index, "object", id))
	}
	return obj, found, true
}
