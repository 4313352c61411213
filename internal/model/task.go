// Package model defines the planning task produced by the parser and the
// configuration shared by the planner components.
package model

// RootType is the implicit ancestor of every declared type.
const RootType = "object"

// Type is a declared object type. Parent is RootType for top-level types.
type Type struct {
	Name   string
	Parent string
}

// Param is a typed variable of a predicate, function or action.
type Param struct {
	Name string // includes the leading '?'
	Type string
}

type Predicate struct {
	Name   string
	Params []Param
}

// Function is a numeric fluent signature.
type Function struct {
	Name   string
	Params []Param
}

type Object struct {
	Name string
	Type string
}

// GroundAtom is a predicate applied to object names.
type GroundAtom struct {
	Predicate string
	Args      []string
}

// FluentValue is an initial assignment (= (f args) value).
type FluentValue struct {
	Function string
	Args     []string
	Value    float64
}

// DurationOp is the relation in a duration constraint.
type DurationOp string

const (
	DurationEq DurationOp = "="
	DurationLE DurationOp = "<="
	DurationGE DurationOp = ">="
)

// DurationConstraint relates ?duration to an unevaluated expression.
type DurationConstraint struct {
	Op   DurationOp
	Expr *Expr
}

// Action is a lifted action schema. Instantaneous actions have Durative
// false, no duration constraints, and every condition and effect classified
// at start.
type Action struct {
	Name        string
	Params      []Param
	Durative    bool
	Duration    []DurationConstraint
	CondStart   []*Formula
	CondOverAll []*Formula
	CondEnd     []*Formula
	EffStart    []Effect
	EffEnd      []Effect
}

// ConstantDuration reports the duration of the action when it is a single
// "=" constraint over a constant expression. Instantaneous actions report 0.
func (a *Action) ConstantDuration() (float64, bool) {
	if !a.Durative {
		return 0, true
	}
	if len(a.Duration) != 1 || a.Duration[0].Op != DurationEq {
		return 0, false
	}
	return a.Duration[0].Expr.Constant()
}

// Metric is the problem's optimisation directive. It is informational: the
// search cost model is chosen by configuration.
type Metric struct {
	Minimize bool
	Expr     *Expr
}

// Task is the immutable result of parsing a domain and a problem.
type Task struct {
	Domain       string
	Problem      string
	Requirements []string
	Types        []Type
	Predicates   []Predicate
	Functions    []Function
	Objects      []Object
	Actions      []*Action
	Init         []GroundAtom
	InitFluents  []FluentValue
	Goal         *Formula
	Metric       *Metric
}

// Action returns the lifted action with the given name.
func (t *Task) Action(name string) *Action {
	for _, a := range t.Actions {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Predicate returns the declaration of the named predicate.
func (t *Task) Predicate(name string) (Predicate, bool) {
	for _, p := range t.Predicates {
		if p.Name == name {
			return p, true
		}
	}
	return Predicate{}, false
}

// IsSubtype reports whether typ equals ancestor or inherits from it.
func (t *Task) IsSubtype(typ, ancestor string) bool {
	if ancestor == RootType || typ == ancestor {
		return true
	}
	parents := make(map[string]string, len(t.Types))
	for _, ty := range t.Types {
		parents[ty.Name] = ty.Parent
	}
	seen := make(map[string]bool)
	for cur := typ; cur != "" && cur != RootType && !seen[cur]; cur = parents[cur] {
		if cur == ancestor {
			return true
		}
		seen[cur] = true
	}
	return false
}

// ObjectsOfType buckets the task's objects by every type they belong to,
// including ancestors. Bucket order follows declaration order.
func (t *Task) ObjectsOfType() map[string][]string {
	parents := make(map[string]string, len(t.Types))
	for _, ty := range t.Types {
		parents[ty.Name] = ty.Parent
	}
	buckets := make(map[string][]string)
	for _, obj := range t.Objects {
		seen := make(map[string]bool)
		for cur := obj.Type; cur != "" && !seen[cur]; cur = parents[cur] {
			seen[cur] = true
			buckets[cur] = append(buckets[cur], obj.Name)
			if cur == RootType {
				break
			}
		}
		if !seen[RootType] {
			buckets[RootType] = append(buckets[RootType], obj.Name)
		}
	}
	return buckets
}
