package statespace

import (
	"math"
	"sort"

	"github.com/msageha/temporal_planner/internal/model"
)

// Expr is a ground numeric expression over fluent ids.
type Expr struct {
	Kind   model.ExprKind
	Value  float64
	Fluent FluentID
	Op     string
	Left   *Expr
	Right  *Expr
}

// Eval returns false when a referenced fluent is undefined or the result is
// not a finite number.
func (e *Expr) Eval(vals []float64, duration float64) (float64, bool) {
	v := e.eval(vals, duration)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (e *Expr) eval(vals []float64, duration float64) float64 {
	switch e.Kind {
	case model.ExprConst:
		return e.Value
	case model.ExprDuration:
		return duration
	case model.ExprFluent:
		return vals[e.Fluent]
	case model.ExprNegate:
		return -e.Left.eval(vals, duration)
	}
	l, r := e.Left.eval(vals, duration), e.Right.eval(vals, duration)
	switch e.Op {
	case "+":
		return l + r
	case "-":
		return l - r
	case "*":
		return l * r
	case "/":
		if r == 0 {
			return math.NaN()
		}
		return l / r
	}
	return math.NaN()
}

func (e *Expr) fluents(out []int) []int {
	if e == nil {
		return out
	}
	switch e.Kind {
	case model.ExprFluent:
		return append(out, int(e.Fluent))
	case model.ExprBinary:
		return e.Right.fluents(e.Left.fluents(out))
	case model.ExprNegate:
		return e.Left.fluents(out)
	}
	return out
}

type Comparison struct {
	Op    string
	Left  *Expr
	Right *Expr
}

func (c *Comparison) holds(vals []float64) bool {
	l, ok := c.Left.Eval(vals, 0)
	if !ok {
		return false
	}
	r, ok := c.Right.Eval(vals, 0)
	if !ok {
		return false
	}
	switch c.Op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case "=":
		return l == r
	case ">=":
		return l >= r
	case ">":
		return l > r
	}
	return false
}

// Fluents lists the fluents either side of the comparison reads.
func (c *Comparison) Fluents() []FluentID {
	ids := c.Right.fluents(c.Left.fluents(nil))
	out := make([]FluentID, len(ids))
	for i, id := range ids {
		out[i] = FluentID(id)
	}
	return out
}

// Cond is a ground condition. A nil Cond always holds.
type Cond struct {
	Kind     model.FormulaKind
	Fact     FactID
	Children []*Cond
	Cmp      *Comparison
}

func (c *Cond) Holds(s *State) bool {
	if c == nil {
		return true
	}
	switch c.Kind {
	case model.FormulaAtom:
		return s.facts.has(int(c.Fact))
	case model.FormulaCompare:
		return c.Cmp.holds(s.fluents)
	case model.FormulaNot:
		return !c.Children[0].Holds(s)
	case model.FormulaOr:
		for _, ch := range c.Children {
			if ch.Holds(s) {
				return true
			}
		}
		return false
	}
	for _, ch := range c.Children {
		if !ch.Holds(s) {
			return false
		}
	}
	return true
}

// reads adds every fact and fluent the condition mentions.
func (c *Cond) reads(a *access) {
	if c == nil {
		return
	}
	switch c.Kind {
	case model.FormulaAtom:
		a.facts = append(a.facts, int(c.Fact))
	case model.FormulaCompare:
		a.fluents = c.Cmp.Right.fluents(c.Cmp.Left.fluents(a.fluents))
	}
	for _, ch := range c.Children {
		ch.reads(a)
	}
}

type NumEffect struct {
	Op     string
	Fluent FluentID
	Expr   *Expr
}

// Effects of one happening. Deletes are applied before adds.
type Effects struct {
	Add []FactID
	Del []FactID
	Num []NumEffect
}

func (e *Effects) writes(a *access) {
	for _, f := range e.Add {
		a.facts = append(a.facts, int(f))
	}
	for _, f := range e.Del {
		a.facts = append(a.facts, int(f))
	}
	for _, n := range e.Num {
		a.fluents = append(a.fluents, int(n.Fluent))
	}
}

func (e *Effects) exprReads(a *access) {
	for _, n := range e.Num {
		a.fluents = n.Expr.fluents(a.fluents)
		if n.Op != "assign" {
			a.fluents = append(a.fluents, int(n.Fluent))
		}
	}
}

// access is a sorted, duplicate-free set of fact and fluent ids.
type access struct {
	facts   []int
	fluents []int
}

func (a *access) normalize() {
	a.facts = uniq(a.facts)
	a.fluents = uniq(a.fluents)
}

func (a access) intersects(b access) bool {
	return overlap(a.facts, b.facts) || overlap(a.fluents, b.fluents)
}

func uniq(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	sort.Ints(ids)
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

func overlap(a, b []int) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// footprint is what one happening reads and writes.
type footprint struct {
	reads  access
	writes access
}

// interferes reports whether two happenings cannot be reordered freely.
func (f *footprint) interferes(g *footprint) bool {
	return f.writes.intersects(g.reads) || f.writes.intersects(g.writes) || g.writes.intersects(f.reads)
}
