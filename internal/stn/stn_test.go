package stn

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 0.001

func TestNew(t *testing.T) {
	n := New()
	assert.Equal(t, 1, n.Len())
	assert.Zero(t, n.Earliest(Origin))
	assert.Zero(t, n.Latest(Origin))
	assert.Zero(t, n.Makespan())
	assert.NoError(t, n.Check())
}

func TestExtend_DurationChain(t *testing.T) {
	n, err := New().Extend(2, []Constraint{Between(1, 2, 2, 2)})
	require.NoError(t, err)
	assert.Equal(t, 3, n.Len())
	assert.Equal(t, 0.0, n.Earliest(1))
	assert.Equal(t, 2.0, n.Earliest(2))
	assert.Equal(t, Inf, n.Latest(2))

	m, err := n.Extend(2, []Constraint{Between(3, 4, 3, 3), After(2, 3, eps)})
	require.NoError(t, err)
	assert.InDelta(t, 2.001, m.Earliest(3), 1e-9)
	assert.InDelta(t, 5.001, m.Earliest(4), 1e-9)
	assert.InDelta(t, 5.001, m.Makespan(), 1e-9)
	assert.NoError(t, m.Check())
}

func TestExtend_ParentUntouched(t *testing.T) {
	parent, err := New().Extend(2, []Constraint{Between(1, 2, 1, 4)})
	require.NoError(t, err)
	arcs := parent.Arcs()
	rows := make([]int, parent.Len())
	for i := range rows {
		rows[i] = len(parent.out[i])
	}

	a, err := parent.Extend(1, []Constraint{After(2, 3, eps)})
	require.NoError(t, err)
	b, err := parent.Extend(1, []Constraint{After(1, 3, 10)})
	require.NoError(t, err)

	assert.Equal(t, 3, parent.Len())
	assert.Equal(t, arcs, parent.Arcs())
	for i := range rows {
		assert.Len(t, parent.out[i], rows[i], "row %d", i)
	}
	assert.InDelta(t, 1.001, a.Earliest(3), 1e-9)
	assert.Equal(t, 10.0, b.Earliest(3))
	assert.Equal(t, 1.0, parent.Earliest(2))
}

func TestExtend_NegativeCycle(t *testing.T) {
	n, err := New().Extend(4, []Constraint{Between(1, 2, 1, 1), Between(3, 4, 1, 1)})
	require.NoError(t, err)

	// A before B and B before A, both with positive separation
	_, err = n.Extend(0, []Constraint{After(2, 3, eps), After(4, 1, eps)})
	assert.ErrorIs(t, err, ErrInconsistent)

	// n is still usable
	ok, err := n.Extend(0, []Constraint{After(2, 3, eps)})
	require.NoError(t, err)
	assert.NoError(t, ok.Check())
}

func TestExtend_Deadline(t *testing.T) {
	n, err := New().Extend(2, []Constraint{Between(1, 2, 2, 2), Between(Origin, 2, 0, 10)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, n.Latest(2))
	assert.Equal(t, 8.0, n.Latest(1))

	_, err = New().Extend(2, []Constraint{Between(1, 2, 2, 2), Between(Origin, 2, 0, 1)})
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestExtend_BadInput(t *testing.T) {
	_, err := New().Extend(1, []Constraint{Between(1, 1, 2, 1)})
	assert.ErrorIs(t, err, ErrInconsistent)

	_, err = New().Extend(1, []Constraint{Between(1, 5, 0, 1)})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInconsistent))

	_, err = New().Extend(-1, nil)
	assert.Error(t, err)
}

// Random forward-ordered durations are always consistent and the earliest
// schedule satisfies every constraint.
func TestExtend_Soundness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := New()
	var all []Constraint
	for i := 0; i < 60; i++ {
		start := Point(n.Len())
		end := start + 1
		d := 0.5 + rng.Float64()*5
		cs := []Constraint{Between(start, end, d, d)}
		for j := 0; j < 3 && n.Len() > 1; j++ {
			prev := Point(1 + rng.Intn(n.Len()-1))
			cs = append(cs, After(prev, start, eps))
		}
		var err error
		n, err = n.Extend(2, cs)
		require.NoError(t, err, "step %d", i)
		all = append(all, cs...)
	}
	require.NoError(t, n.Check())

	for _, c := range all {
		gap := n.Earliest(c.To) - n.Earliest(c.From)
		assert.GreaterOrEqual(t, gap, c.Min-1e-6, c.String())
		assert.LessOrEqual(t, gap, c.Max+1e-6, c.String())
	}
	for p := 0; p < n.Len(); p++ {
		assert.GreaterOrEqual(t, n.Earliest(Point(p)), 0.0)
	}
}
