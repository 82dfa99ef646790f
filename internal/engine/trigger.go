package engine

import (
	"fmt"

	"github.com/roach88/rulekit/internal/ir"
)

// Evaluate reports whether rule's triggers hold in ctx.
//
// An empty condition list is true under AND and false under OR. Every
// condition is evaluated, even after the result is decided, so each
// condition's timing state sees every tick.
func Evaluate(ctx *Context, rule *ir.Rule) bool {
	ctx.Rule = rule
	op := rule.Triggers.Operator
	switch op {
	case ir.OperatorAnd, ir.OperatorOr:
	case "":
		op = ir.OperatorAnd
	default:
		ctx.report(NewParameterError(rule.ID, SlotTrigger, 0,
			fmt.Sprintf("unknown operator %q, using AND", op)))
		op = ir.OperatorAnd
	}

	conds := rule.Triggers.Conditions
	if len(conds) == 0 {
		return op == ir.OperatorAnd
	}

	all, any := true, false
	for i, c := range conds {
		if matchCondition(ctx, i, c) {
			any = true
		} else {
			all = false
		}
	}
	if op == ir.OperatorOr {
		return any
	}
	return all
}
