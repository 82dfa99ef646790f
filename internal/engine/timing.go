package engine

// condKey identifies one condition instance across ticks.
type condKey struct {
	RuleID string
	Index  int
}

// condState is the per-condition timing state. Only the fields relevant
// to the condition's kind are used.
type condState struct {
	// time/exact
	Fired bool

	// time/interval: elapsed time of the next fire; 0 until scheduled.
	NextFire float64

	// touch/hold: press start of the press that already fired.
	HoldFired bool
	HoldStart float64

	// collision
	Overlap bool

	// random
	Rolled   bool
	LastRoll float64
}

// timingArena owns every condState of a session. Matchers read committed
// state and stage updates; commit applies them once at the end of a tick,
// so all rules in a tick observe the same prior state.
type timingArena struct {
	committed map[condKey]condState
	pending   map[condKey]condState
}

func newTimingArena() *timingArena {
	return &timingArena{
		committed: make(map[condKey]condState),
		pending:   make(map[condKey]condState),
	}
}

func (a *timingArena) get(k condKey) condState {
	return a.committed[k]
}

func (a *timingArena) stage(k condKey, s condState) {
	a.pending[k] = s
}

func (a *timingArena) commit() {
	for k, s := range a.pending {
		a.committed[k] = s
	}
	clear(a.pending)
}

func (a *timingArena) reset() {
	clear(a.committed)
	clear(a.pending)
}

// touchTracker records when each currently pressed object was pressed.
// It models a single pointer: an untargeted release ends every press.
type touchTracker struct {
	pressed map[string]float64
}

func newTouchTracker() *touchTracker {
	return &touchTracker{pressed: make(map[string]float64)}
}

func (t *touchTracker) press(target string, at float64) {
	if _, held := t.pressed[target]; held {
		return
	}
	t.pressed[target] = at
}

func (t *touchTracker) release(target string) {
	if target == "" {
		clear(t.pressed)
		return
	}
	delete(t.pressed, target)
}

func (t *touchTracker) pressStart(target string) (float64, bool) {
	at, ok := t.pressed[target]
	return at, ok
}

func (t *touchTracker) reset() {
	clear(t.pressed)
}
