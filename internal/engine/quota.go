package engine

// DefaultMaxActionsPerTick bounds how many actions one tick may execute,
// nested randomAction picks included.
const DefaultMaxActionsPerTick = 10000

// MaxRandomDepth bounds randomAction nesting.
const MaxRandomDepth = 16

// ActionQuota counts executed actions within one tick and enforces the
// per-tick limit. It is reset at the start of every tick.
type ActionQuota struct {
	maxActions int
	current    int
}

// NewActionQuota creates a quota with the given per-tick limit.
func NewActionQuota(maxActions int) *ActionQuota {
	return &ActionQuota{maxActions: maxActions}
}

// Check counts one action and reports an error once the limit is passed.
func (q *ActionQuota) Check(ruleID string, index int) *RuntimeError {
	q.current++
	if q.current > q.maxActions {
		return NewQuotaError(ruleID, index, q.maxActions)
	}
	return nil
}

// Reset sets the counter to 0.
func (q *ActionQuota) Reset() {
	q.current = 0
}
