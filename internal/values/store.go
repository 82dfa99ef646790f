package values

import (
	"fmt"
	"math"

	"github.com/roach88/rulekit/internal/ir"
)

// MaxSafeInteger is the largest magnitude a counter may hold. Results
// beyond it are clamped and flagged as overflow.
const MaxSafeInteger = 9007199254740991

// ScoreCounter is the counter addScore actions write to.
const ScoreCounter = "score"

type counterSlot struct {
	def   ir.Counter
	value float64
}

type flagSlot struct {
	def   ir.Flag
	value bool
}

// Store holds the counters and flags of one session.
type Store struct {
	counters      []*counterSlot
	counterByName map[string]*counterSlot
	counterByID   map[string]*counterSlot

	flags      []*flagSlot
	flagByName map[string]*flagSlot
	flagByID   map[string]*flagSlot
}

// New builds a Store from snapshot definitions and resets it.
// Definitions are copied; the snapshot is never written to.
func New(counters []ir.Counter, flags []ir.Flag) *Store {
	s := &Store{
		counterByName: make(map[string]*counterSlot, len(counters)),
		counterByID:   make(map[string]*counterSlot, len(counters)),
		flagByName:    make(map[string]*flagSlot, len(flags)),
		flagByID:      make(map[string]*flagSlot, len(flags)),
	}
	for _, c := range counters {
		s.addCounter(c)
	}
	for _, f := range flags {
		slot := &flagSlot{def: f}
		s.flags = append(s.flags, slot)
		if _, dup := s.flagByName[f.Name]; !dup && f.Name != "" {
			s.flagByName[f.Name] = slot
		}
		if _, dup := s.flagByID[f.ID]; !dup && f.ID != "" {
			s.flagByID[f.ID] = slot
		}
	}
	s.Reset()
	return s
}

func (s *Store) addCounter(c ir.Counter) *counterSlot {
	slot := &counterSlot{def: c}
	s.counters = append(s.counters, slot)
	if _, dup := s.counterByName[c.Name]; !dup && c.Name != "" {
		s.counterByName[c.Name] = slot
	}
	if _, dup := s.counterByID[c.ID]; !dup && c.ID != "" {
		s.counterByID[c.ID] = slot
	}
	return slot
}

// Reset restores every counter to its clamped initial value and every
// flag to false.
func (s *Store) Reset() {
	for _, c := range s.counters {
		c.value, _ = clamp(c.def, c.def.InitialValue)
	}
	for _, f := range s.flags {
		f.value = false
	}
}

// EnsureCounter provisions an unbounded counter called name if none
// resolves. It reports whether a counter was created.
func (s *Store) EnsureCounter(name string) bool {
	if _, ok := s.counter(name); ok {
		return false
	}
	s.addCounter(ir.Counter{ID: name, Name: name})
	return true
}

func (s *Store) counter(name string) (*counterSlot, bool) {
	if c, ok := s.counterByName[name]; ok {
		return c, true
	}
	c, ok := s.counterByID[name]
	return c, ok
}

func (s *Store) flag(name string) (*flagSlot, bool) {
	if f, ok := s.flagByName[name]; ok {
		return f, true
	}
	f, ok := s.flagByID[name]
	return f, ok
}

// HasCounter reports whether name resolves to a counter.
func (s *Store) HasCounter(name string) bool {
	_, ok := s.counter(name)
	return ok
}

// HasFlag reports whether name resolves to a flag.
func (s *Store) HasFlag(name string) bool {
	_, ok := s.flag(name)
	return ok
}

// Counter returns the current value of a counter.
func (s *Store) Counter(name string) (float64, error) {
	c, ok := s.counter(name)
	if !ok {
		return 0, fmt.Errorf("counter %q: %w", name, ErrUnknownCounter)
	}
	return c.value, nil
}

// Flag returns the current value of a flag.
func (s *Store) Flag(name string) (bool, error) {
	f, ok := s.flag(name)
	if !ok {
		return false, fmt.Errorf("flag %q: %w", name, ErrUnknownFlag)
	}
	return f.value, nil
}

// Get returns a counter value as float64 or a flag value as bool.
// Counters shadow flags of the same name.
func (s *Store) Get(name string) (any, error) {
	if c, ok := s.counter(name); ok {
		return c.value, nil
	}
	if f, ok := s.flag(name); ok {
		return f.value, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownName)
}

// Set writes a counter (any numeric value, clamped) or a flag (bool).
func (s *Store) Set(name string, value any) error {
	if _, ok := s.counter(name); ok {
		n, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("counter %q: %T: %w", name, value, ErrTypeMismatch)
		}
		_, err := s.Mutate(name, ir.CounterSet, n)
		return err
	}
	if _, ok := s.flag(name); ok {
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("flag %q: %T: %w", name, value, ErrTypeMismatch)
		}
		_, err := s.SetFlag(name, b)
		return err
	}
	return fmt.Errorf("%q: %w", name, ErrUnknownName)
}

// Mutation describes the effect of one counter mutation.
type Mutation struct {
	Name     string
	Before   float64
	After    float64
	Clamped  bool // result was pulled back into [min, max]
	Overflow bool // result exceeded MaxSafeInteger in magnitude
}

// Mutate applies op with operand to a counter and clamps the result.
// On error the counter is unchanged.
func (s *Store) Mutate(name string, op ir.CounterOperation, operand float64) (Mutation, error) {
	c, ok := s.counter(name)
	if !ok {
		return Mutation{}, fmt.Errorf("counter %q: %w", name, ErrUnknownCounter)
	}
	if math.IsNaN(operand) || math.IsInf(operand, 0) {
		return Mutation{}, fmt.Errorf("counter %q: %v: %w", name, operand, ErrInvalidOperand)
	}

	before := c.value
	var next float64
	switch op {
	case ir.CounterAdd:
		next = before + operand
	case ir.CounterSubtract:
		next = before - operand
	case ir.CounterSet:
		next = operand
	case ir.CounterMultiply:
		next = before * operand
	default:
		return Mutation{}, fmt.Errorf("counter %q: %q: %w", name, op, ErrUnknownOperation)
	}

	m := Mutation{Name: c.def.Name, Before: before}
	if next > MaxSafeInteger {
		next, m.Overflow = MaxSafeInteger, true
	} else if next < -MaxSafeInteger {
		next, m.Overflow = -MaxSafeInteger, true
	}
	next, m.Clamped = clamp(c.def, next)
	if next == 0 {
		// Normalize -0 so results hash identically.
		next = 0
	}
	c.value = next
	m.After = next
	return m, nil
}

// FlagChange describes the effect of one flag write.
type FlagChange struct {
	Name   string
	Before bool
	After  bool
}

// SetFlag writes a flag.
func (s *Store) SetFlag(name string, value bool) (FlagChange, error) {
	f, ok := s.flag(name)
	if !ok {
		return FlagChange{}, fmt.Errorf("flag %q: %w", name, ErrUnknownFlag)
	}
	ch := FlagChange{Name: f.def.Name, Before: f.value, After: value}
	f.value = value
	return ch, nil
}

// ToggleFlag inverts a flag.
func (s *Store) ToggleFlag(name string) (FlagChange, error) {
	f, ok := s.flag(name)
	if !ok {
		return FlagChange{}, fmt.Errorf("flag %q: %w", name, ErrUnknownFlag)
	}
	return s.SetFlag(name, !f.value)
}

// Counters returns the counters in definition order with CurrentValue
// filled in.
func (s *Store) Counters() []ir.Counter {
	out := make([]ir.Counter, len(s.counters))
	for i, c := range s.counters {
		out[i] = c.def
		out[i].CurrentValue = c.value
	}
	return out
}

// Flags returns the flags in definition order with CurrentValue filled in.
func (s *Store) Flags() []ir.Flag {
	out := make([]ir.Flag, len(s.flags))
	for i, f := range s.flags {
		out[i] = f.def
		out[i].CurrentValue = f.value
	}
	return out
}

// clamp bounds v by the counter's min and max, each applied when present.
func clamp(def ir.Counter, v float64) (float64, bool) {
	out := v
	if def.Min != nil && out < *def.Min {
		out = *def.Min
	}
	if def.Max != nil && out > *def.Max {
		out = *def.Max
	}
	return out, out != v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
