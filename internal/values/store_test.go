package values

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rulekit/internal/ir"
)

func newTestStore() *Store {
	return New(
		[]ir.Counter{
			{ID: "c-lives", Name: "lives", InitialValue: 3, Min: ir.Float(0), Max: ir.Float(5)},
			{ID: "c-coins", Name: "coins", InitialValue: 0},
			{ID: "c-temp", Name: "temp", InitialValue: 50, Max: ir.Float(10)},
		},
		[]ir.Flag{
			{ID: "f-door", Name: "door", CurrentValue: true},
		},
	)
}

func TestNewResetsValues(t *testing.T) {
	s := newTestStore()

	lives, err := s.Counter("lives")
	require.NoError(t, err)
	assert.Equal(t, 3.0, lives)

	temp, err := s.Counter("temp")
	require.NoError(t, err)
	assert.Equal(t, 10.0, temp, "initial value is clamped")

	door, err := s.Flag("door")
	require.NoError(t, err)
	assert.False(t, door, "flags start false regardless of saved value")
}

func TestLookupByNameOrID(t *testing.T) {
	s := newTestStore()

	_, err := s.Mutate("c-coins", ir.CounterAdd, 4)
	require.NoError(t, err)
	coins, err := s.Counter("coins")
	require.NoError(t, err)
	assert.Equal(t, 4.0, coins)

	_, err = s.ToggleFlag("f-door")
	require.NoError(t, err)
	door, err := s.Flag("door")
	require.NoError(t, err)
	assert.True(t, door)
}

func TestMutateOperations(t *testing.T) {
	tests := []struct {
		name    string
		op      ir.CounterOperation
		operand float64
		want    float64
		clamped bool
	}{
		{"add", ir.CounterAdd, 1, 4, false},
		{"add past max", ir.CounterAdd, 10, 5, true},
		{"subtract", ir.CounterSubtract, 2, 1, false},
		{"subtract past min", ir.CounterSubtract, 7, 0, true},
		{"set", ir.CounterSet, 2, 2, false},
		{"set out of range", ir.CounterSet, -4, 0, true},
		{"multiply", ir.CounterMultiply, 1.5, 4.5, false},
		{"multiply past max", ir.CounterMultiply, 3, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			m, err := s.Mutate("lives", tt.op, tt.operand)
			require.NoError(t, err)
			assert.Equal(t, 3.0, m.Before)
			assert.Equal(t, tt.want, m.After)
			assert.Equal(t, tt.clamped, m.Clamped)

			got, err := s.Counter("lives")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMutateErrors(t *testing.T) {
	s := newTestStore()

	_, err := s.Mutate("missing", ir.CounterAdd, 1)
	assert.ErrorIs(t, err, ErrUnknownCounter)

	_, err = s.Mutate("lives", ir.CounterOperation("divide"), 2)
	assert.ErrorIs(t, err, ErrUnknownOperation)

	lives, err := s.Counter("lives")
	require.NoError(t, err)
	assert.Equal(t, 3.0, lives, "failed mutation leaves value unchanged")
}

func TestMutateOverflow(t *testing.T) {
	s := newTestStore()

	_, err := s.Mutate("coins", ir.CounterSet, MaxSafeInteger)
	require.NoError(t, err)
	m, err := s.Mutate("coins", ir.CounterMultiply, 1000)
	require.NoError(t, err)
	assert.True(t, m.Overflow)
	assert.Equal(t, float64(MaxSafeInteger), m.After)

	m, err = s.Mutate("coins", ir.CounterSet, -MaxSafeInteger*4)
	require.NoError(t, err)
	assert.True(t, m.Overflow)
	assert.Equal(t, float64(-MaxSafeInteger), m.After)
}

func TestCountersStayWithinBounds(t *testing.T) {
	ops := []ir.CounterOperation{ir.CounterAdd, ir.CounterSubtract, ir.CounterSet, ir.CounterMultiply}
	rng := rand.New(rand.NewPCG(7, 11))

	for run := 0; run < 50; run++ {
		s := newTestStore()
		for step := 0; step < 200; step++ {
			op := ops[rng.IntN(len(ops))]
			operand := rng.Float64()*40 - 20
			_, err := s.Mutate("lives", op, operand)
			require.NoError(t, err)

			v, err := s.Counter("lives")
			require.NoError(t, err)
			require.GreaterOrEqual(t, v, 0.0, "run %d step %d", run, step)
			require.LessOrEqual(t, v, 5.0, "run %d step %d", run, step)
		}
	}
}

func TestGetSet(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.Set("coins", 12))
	v, err := s.Get("coins")
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)

	require.NoError(t, s.Set("door", true))
	v, err = s.Get("door")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	assert.ErrorIs(t, s.Set("door", 1), ErrTypeMismatch)
	assert.ErrorIs(t, s.Set("coins", "many"), ErrTypeMismatch)
	assert.ErrorIs(t, s.Set("nothing", 1), ErrUnknownName)

	_, err = s.Get("nothing")
	assert.ErrorIs(t, err, ErrUnknownName)
}

func TestEnsureCounter(t *testing.T) {
	s := newTestStore()

	assert.True(t, s.EnsureCounter(ScoreCounter))
	assert.False(t, s.EnsureCounter(ScoreCounter))
	assert.False(t, s.EnsureCounter("c-lives"), "resolves by id")

	m, err := s.Mutate(ScoreCounter, ir.CounterAdd, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.After)

	counters := s.Counters()
	require.Len(t, counters, 4)
	assert.Equal(t, ScoreCounter, counters[3].Name)
	assert.Equal(t, 5.0, counters[3].CurrentValue)
}

func TestResetRestoresInitialValues(t *testing.T) {
	s := newTestStore()
	_, err := s.Mutate("lives", ir.CounterSet, 1)
	require.NoError(t, err)
	_, err = s.SetFlag("door", true)
	require.NoError(t, err)

	s.Reset()

	lives, _ := s.Counter("lives")
	door, _ := s.Flag("door")
	assert.Equal(t, 3.0, lives)
	assert.False(t, door)
	assert.False(t, s.Flags()[0].CurrentValue)
}
