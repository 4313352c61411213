package model

import (
	"fmt"
	"strconv"
	"strings"
)

type FormulaKind int

const (
	FormulaAnd FormulaKind = iota
	FormulaOr
	FormulaNot
	FormulaAtom
	FormulaCompare
)

// Atom is a predicate applied to terms. A term starting with '?' is a
// variable, anything else an object name.
type Atom struct {
	Predicate string
	Args      []string
}

func (a Atom) String() string {
	if len(a.Args) == 0 {
		return "(" + a.Predicate + ")"
	}
	return "(" + a.Predicate + " " + strings.Join(a.Args, " ") + ")"
}

// Comparison is a numeric condition such as (>= (fuel ?t) 10).
type Comparison struct {
	Op    string
	Left  *Expr
	Right *Expr
}

// Formula is a read-only condition tree. Sub-formulas may be shared between
// actions, so nothing may modify a Formula after parsing.
type Formula struct {
	Kind     FormulaKind
	Children []*Formula
	Atom     Atom
	Compare  *Comparison
}

func And(children ...*Formula) *Formula {
	return &Formula{Kind: FormulaAnd, Children: children}
}

func Not(child *Formula) *Formula {
	return &Formula{Kind: FormulaNot, Children: []*Formula{child}}
}

func AtomFormula(predicate string, args ...string) *Formula {
	return &Formula{Kind: FormulaAtom, Atom: Atom{Predicate: predicate, Args: args}}
}

// Conjuncts flattens nested conjunctions into their members.
func (f *Formula) Conjuncts() []*Formula {
	if f == nil {
		return nil
	}
	if f.Kind != FormulaAnd {
		return []*Formula{f}
	}
	var out []*Formula
	for _, c := range f.Children {
		out = append(out, c.Conjuncts()...)
	}
	return out
}

// Atoms collects every atom mentioned in the formula, positive or negated.
func (f *Formula) Atoms() []Atom {
	if f == nil {
		return nil
	}
	switch f.Kind {
	case FormulaAtom:
		return []Atom{f.Atom}
	case FormulaCompare:
		return nil
	}
	var out []Atom
	for _, c := range f.Children {
		out = append(out, c.Atoms()...)
	}
	return out
}

func (f *Formula) String() string {
	if f == nil {
		return "()"
	}
	switch f.Kind {
	case FormulaAtom:
		return f.Atom.String()
	case FormulaCompare:
		return "(" + f.Compare.Op + " " + f.Compare.Left.String() + " " + f.Compare.Right.String() + ")"
	case FormulaNot:
		return "(not " + f.Children[0].String() + ")"
	}
	op := "and"
	if f.Kind == FormulaOr {
		op = "or"
	}
	parts := make([]string, 0, len(f.Children)+1)
	parts = append(parts, op)
	for _, c := range f.Children {
		parts = append(parts, c.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

type ExprKind int

const (
	ExprConst ExprKind = iota
	ExprFluent
	ExprBinary
	ExprNegate
	ExprDuration
)

// Expr is a numeric expression. Binary operators are + - * /.
type Expr struct {
	Kind   ExprKind
	Value  float64
	Fluent Atom
	Op     string
	Left   *Expr
	Right  *Expr
}

func Const(v float64) *Expr {
	return &Expr{Kind: ExprConst, Value: v}
}

// Constant folds the expression when it references no fluents.
func (e *Expr) Constant() (float64, bool) {
	v, err := e.Eval(func(Atom) (float64, bool) { return 0, false }, 0)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Fluents lists the fluent references in the expression.
func (e *Expr) Fluents() []Atom {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ExprFluent:
		return []Atom{e.Fluent}
	case ExprBinary:
		return append(e.Left.Fluents(), e.Right.Fluents()...)
	case ExprNegate:
		return e.Left.Fluents()
	}
	return nil
}

// Eval evaluates the expression. lookup resolves fluents; duration is the
// value substituted for ?duration.
func (e *Expr) Eval(lookup func(Atom) (float64, bool), duration float64) (float64, error) {
	switch e.Kind {
	case ExprConst:
		return e.Value, nil
	case ExprDuration:
		return duration, nil
	case ExprFluent:
		v, ok := lookup(e.Fluent)
		if !ok {
			return 0, fmt.Errorf("fluent %s is undefined", e.Fluent)
		}
		return v, nil
	case ExprNegate:
		v, err := e.Left.Eval(lookup, duration)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case ExprBinary:
		l, err := e.Left.Eval(lookup, duration)
		if err != nil {
			return 0, err
		}
		r, err := e.Right.Eval(lookup, duration)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case "+":
			return l + r, nil
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		case "/":
			if r == 0 {
				return 0, fmt.Errorf("division by zero in %s", e)
			}
			return l / r, nil
		}
		return 0, fmt.Errorf("unknown operator %q", e.Op)
	}
	return 0, fmt.Errorf("unknown expression kind %d", e.Kind)
}

func (e *Expr) String() string {
	if e == nil {
		return "()"
	}
	switch e.Kind {
	case ExprConst:
		return strconv.FormatFloat(e.Value, 'g', -1, 64)
	case ExprDuration:
		return "?duration"
	case ExprFluent:
		return e.Fluent.String()
	case ExprNegate:
		return "(- " + e.Left.String() + ")"
	}
	return "(" + e.Op + " " + e.Left.String() + " " + e.Right.String() + ")"
}

type EffectKind int

const (
	EffectAdd EffectKind = iota
	EffectDelete
	EffectNumeric
)

// Effect is a single add, delete, or numeric update. For numeric effects Op
// is one of assign, increase, decrease, scale-up, scale-down.
type Effect struct {
	Kind   EffectKind
	Atom   Atom
	Op     string
	Fluent Atom
	Expr   *Expr
}

func (e Effect) String() string {
	switch e.Kind {
	case EffectAdd:
		return e.Atom.String()
	case EffectDelete:
		return "(not " + e.Atom.String() + ")"
	}
	return "(" + e.Op + " " + e.Fluent.String() + " " + e.Expr.String() + ")"
}
