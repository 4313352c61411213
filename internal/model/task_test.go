package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprEval(t *testing.T) {
	// (/ (+ (fuel t1) 2) ?duration)
	e := &Expr{Kind: ExprBinary, Op: "/",
		Left:  &Expr{Kind: ExprBinary, Op: "+", Left: &Expr{Kind: ExprFluent, Fluent: Atom{Predicate: "fuel", Args: []string{"t1"}}}, Right: Const(2)},
		Right: &Expr{Kind: ExprDuration},
	}
	lookup := func(a Atom) (float64, bool) {
		if a.String() == "(fuel t1)" {
			return 10, true
		}
		return 0, false
	}

	v, err := e.Eval(lookup, 4)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = e.Eval(lookup, 0)
	assert.Error(t, err, "division by zero")

	_, ok := e.Constant()
	assert.False(t, ok)
	assert.Equal(t, []Atom{{Predicate: "fuel", Args: []string{"t1"}}}, e.Fluents())
	assert.Equal(t, "(/ (+ (fuel t1) 2) ?duration)", e.String())

	neg := &Expr{Kind: ExprNegate, Left: Const(1.5)}
	c, ok := neg.Constant()
	require.True(t, ok)
	assert.Equal(t, -1.5, c)
	assert.False(t, math.IsNaN(c))
}

func TestFormulaConjuncts(t *testing.T) {
	f := And(AtomFormula("a"), And(AtomFormula("b", "x"), Not(AtomFormula("c"))))
	cs := f.Conjuncts()
	require.Len(t, cs, 3)
	assert.Equal(t, "(b x)", cs[1].String())
	assert.Equal(t, "(not (c))", cs[2].String())
	assert.Len(t, f.Atoms(), 3)

	var nilF *Formula
	assert.Nil(t, nilF.Conjuncts())
	assert.Equal(t, "(and (a) (and (b x) (not (c))))", f.String())
}

func TestActionConstantDuration(t *testing.T) {
	a := &Action{Name: "wait", Durative: true, Duration: []DurationConstraint{{Op: DurationEq, Expr: Const(2)}}}
	d, ok := a.ConstantDuration()
	require.True(t, ok)
	assert.Equal(t, 2.0, d)

	a.Duration = append(a.Duration, DurationConstraint{Op: DurationLE, Expr: Const(3)})
	_, ok = a.ConstantDuration()
	assert.False(t, ok)
}
