// Package statespace grounds a planning task and defines its temporal
// transition model: states, applicability, and the start and end of actions
// together with the timing constraints they induce.
package statespace

import (
	"fmt"
	"math"
	"strings"

	"github.com/msageha/temporal_planner/internal/model"
)

type (
	ActionID int
	FactID   int
	FluentID int
)

// DurationBound is a ground duration constraint, evaluated when the action
// starts.
type DurationBound struct {
	Op   model.DurationOp
	Expr *Expr
}

// GroundAction is a lifted action with its parameters bound to objects.
type GroundAction struct {
	ID       ActionID
	Schema   *model.Action
	Args     []string
	Name     string
	Durative bool
	Duration []DurationBound

	CondStart   *Cond
	CondOverAll *Cond
	CondEnd     *Cond
	EffStart    Effects
	EffEnd      Effects

	start footprint
	end   footprint

	// Bounds precomputed when the duration only reads static fluents.
	static       bool
	staticLo     float64
	staticHi     float64
	staticValid  bool
	durationRefs []int
}

// Table is the ground action arena plus fact and fluent interning for a task.
type Table struct {
	Task    *model.Task
	Actions []*GroundAction
	Goal    *Cond

	facts       []string
	factIndex   map[string]FactID
	fluents     []string
	fluentIndex map[string]FluentID
	written     []bool // per fluent, true when some effect changes it

	initFacts   []FactID
	initFluents map[FluentID]float64
	byName      map[string]ActionID
}

// Ground enumerates every type-compatible binding of every action. A
// parameter type without objects yields no instances of that action.
func Ground(task *model.Task) (*Table, error) {
	t := &Table{
		Task:        task,
		factIndex:   map[string]FactID{},
		fluentIndex: map[string]FluentID{},
		initFluents: map[FluentID]float64{},
		byName:      map[string]ActionID{},
	}
	for _, a := range task.Init {
		t.initFacts = append(t.initFacts, t.fact(model.Atom{Predicate: a.Predicate, Args: a.Args}))
	}
	for _, fv := range task.InitFluents {
		t.initFluents[t.fluent(model.Atom{Predicate: fv.Function, Args: fv.Args})] = fv.Value
	}

	buckets := task.ObjectsOfType()
	for _, schema := range task.Actions {
		domains := make([][]string, len(schema.Params))
		empty := false
		for i, p := range schema.Params {
			domains[i] = buckets[p.Type]
			if len(domains[i]) == 0 {
				empty = true
			}
		}
		if empty {
			continue
		}
		idx := make([]int, len(domains))
		for {
			args := make([]string, len(domains))
			bind := make(map[string]string, len(domains))
			for i, d := range domains {
				args[i] = d[idx[i]]
				bind[schema.Params[i].Name] = args[i]
			}
			ga, err := t.ground(schema, args, bind)
			if err != nil {
				return nil, err
			}
			t.byName[ga.Name] = ga.ID
			t.Actions = append(t.Actions, ga)

			// odometer over the parameter domains, last parameter fastest
			k := len(idx) - 1
			for k >= 0 {
				idx[k]++
				if idx[k] < len(domains[k]) {
					break
				}
				idx[k] = 0
				k--
			}
			if k < 0 {
				break
			}
		}
	}

	goal, err := t.cond(task.Goal, nil)
	if err != nil {
		return nil, fmt.Errorf("ground goal: %w", err)
	}
	t.Goal = goal

	t.written = make([]bool, len(t.fluents))
	for _, ga := range t.Actions {
		for _, e := range [][]NumEffect{ga.EffStart.Num, ga.EffEnd.Num} {
			for _, n := range e {
				t.written[n.Fluent] = true
			}
		}
	}
	for _, ga := range t.Actions {
		t.precomputeDuration(ga)
	}
	return t, nil
}

func (t *Table) ground(schema *model.Action, args []string, bind map[string]string) (*GroundAction, error) {
	ga := &GroundAction{
		ID:       ActionID(len(t.Actions)),
		Schema:   schema,
		Args:     args,
		Name:     model.Atom{Predicate: schema.Name, Args: args}.String(),
		Durative: schema.Durative,
	}
	var err error
	wrap := func(err error) error { return fmt.Errorf("ground %s: %w", ga.Name, err) }
	if ga.CondStart, err = t.conds(schema.CondStart, bind); err != nil {
		return nil, wrap(err)
	}
	if ga.CondOverAll, err = t.conds(schema.CondOverAll, bind); err != nil {
		return nil, wrap(err)
	}
	if ga.CondEnd, err = t.conds(schema.CondEnd, bind); err != nil {
		return nil, wrap(err)
	}
	if ga.EffStart, err = t.effects(schema.EffStart, bind); err != nil {
		return nil, wrap(err)
	}
	if ga.EffEnd, err = t.effects(schema.EffEnd, bind); err != nil {
		return nil, wrap(err)
	}
	for _, d := range schema.Duration {
		e, err := t.expr(d.Expr, bind)
		if err != nil {
			return nil, wrap(err)
		}
		ga.Duration = append(ga.Duration, DurationBound{Op: d.Op, Expr: e})
		ga.durationRefs = e.fluents(ga.durationRefs)
	}

	// Over-all conditions are read by both ends of the action.
	ga.CondStart.reads(&ga.start.reads)
	ga.CondOverAll.reads(&ga.start.reads)
	ga.start.reads.fluents = append(ga.start.reads.fluents, ga.durationRefs...)
	ga.EffStart.exprReads(&ga.start.reads)
	ga.EffStart.writes(&ga.start.writes)
	ga.CondOverAll.reads(&ga.end.reads)
	ga.CondEnd.reads(&ga.end.reads)
	ga.EffEnd.exprReads(&ga.end.reads)
	ga.EffEnd.writes(&ga.end.writes)
	for _, a := range []*access{&ga.start.reads, &ga.start.writes, &ga.end.reads, &ga.end.writes} {
		a.normalize()
	}
	return ga, nil
}

func (t *Table) precomputeDuration(ga *GroundAction) {
	for _, f := range ga.durationRefs {
		if t.written[f] {
			return
		}
	}
	vals := make([]float64, len(t.fluents))
	for i := range vals {
		vals[i] = math.NaN()
	}
	for f, v := range t.initFluents {
		vals[f] = v
	}
	ga.static = true
	ga.staticLo, ga.staticHi, ga.staticValid = ga.bounds(vals)
}

// bounds evaluates the duration interval against fluent values.
// Instantaneous actions have [0, 0].
func (ga *GroundAction) bounds(vals []float64) (float64, float64, bool) {
	if !ga.Durative {
		return 0, 0, true
	}
	lo, hi := 0.0, math.Inf(1)
	for _, d := range ga.Duration {
		v, ok := d.Expr.Eval(vals, 0)
		if !ok {
			return 0, 0, false
		}
		switch d.Op {
		case model.DurationEq:
			lo, hi = math.Max(lo, v), math.Min(hi, v)
		case model.DurationLE:
			hi = math.Min(hi, v)
		case model.DurationGE:
			lo = math.Max(lo, v)
		}
	}
	if lo > hi || hi <= 0 {
		return 0, 0, false
	}
	return lo, hi, true
}

// Bounds returns the duration interval of the action in state s.
func (ga *GroundAction) Bounds(s *State) (lo, hi float64, ok bool) {
	if ga.static {
		return ga.staticLo, ga.staticHi, ga.staticValid
	}
	return ga.bounds(s.fluents)
}

func (t *Table) fact(a model.Atom) FactID {
	key := a.String()
	if id, ok := t.factIndex[key]; ok {
		return id
	}
	id := FactID(len(t.facts))
	t.facts = append(t.facts, key)
	t.factIndex[key] = id
	return id
}

func (t *Table) fluent(a model.Atom) FluentID {
	key := a.String()
	if id, ok := t.fluentIndex[key]; ok {
		return id
	}
	id := FluentID(len(t.fluents))
	t.fluents = append(t.fluents, key)
	t.fluentIndex[key] = id
	return id
}

func substitute(a model.Atom, bind map[string]string) (model.Atom, error) {
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		if strings.HasPrefix(arg, "?") {
			v, ok := bind[arg]
			if !ok {
				return model.Atom{}, fmt.Errorf("unbound variable %s in %s", arg, a)
			}
			arg = v
		}
		args[i] = arg
	}
	return model.Atom{Predicate: a.Predicate, Args: args}, nil
}

func (t *Table) conds(fs []*model.Formula, bind map[string]string) (*Cond, error) {
	if len(fs) == 0 {
		return nil, nil
	}
	return t.cond(model.And(fs...), bind)
}

func (t *Table) cond(f *model.Formula, bind map[string]string) (*Cond, error) {
	if f == nil {
		return nil, nil
	}
	c := &Cond{Kind: f.Kind}
	switch f.Kind {
	case model.FormulaAtom:
		a, err := substitute(f.Atom, bind)
		if err != nil {
			return nil, err
		}
		c.Fact = t.fact(a)
		return c, nil
	case model.FormulaCompare:
		l, err := t.expr(f.Compare.Left, bind)
		if err != nil {
			return nil, err
		}
		r, err := t.expr(f.Compare.Right, bind)
		if err != nil {
			return nil, err
		}
		c.Cmp = &Comparison{Op: f.Compare.Op, Left: l, Right: r}
		return c, nil
	}
	for _, ch := range f.Children {
		g, err := t.cond(ch, bind)
		if err != nil {
			return nil, err
		}
		c.Children = append(c.Children, g)
	}
	return c, nil
}

func (t *Table) expr(e *model.Expr, bind map[string]string) (*Expr, error) {
	if e == nil {
		return nil, nil
	}
	out := &Expr{Kind: e.Kind, Value: e.Value, Op: e.Op}
	switch e.Kind {
	case model.ExprFluent:
		a, err := substitute(e.Fluent, bind)
		if err != nil {
			return nil, err
		}
		out.Fluent = t.fluent(a)
	case model.ExprBinary, model.ExprNegate:
		var err error
		if out.Left, err = t.expr(e.Left, bind); err != nil {
			return nil, err
		}
		if out.Right, err = t.expr(e.Right, bind); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *Table) effects(es []model.Effect, bind map[string]string) (Effects, error) {
	var out Effects
	for _, e := range es {
		switch e.Kind {
		case model.EffectAdd, model.EffectDelete:
			a, err := substitute(e.Atom, bind)
			if err != nil {
				return out, err
			}
			if e.Kind == model.EffectAdd {
				out.Add = append(out.Add, t.fact(a))
			} else {
				out.Del = append(out.Del, t.fact(a))
			}
		case model.EffectNumeric:
			a, err := substitute(e.Fluent, bind)
			if err != nil {
				return out, err
			}
			x, err := t.expr(e.Expr, bind)
			if err != nil {
				return out, err
			}
			out.Num = append(out.Num, NumEffect{Op: e.Op, Fluent: t.fluent(a), Expr: x})
		}
	}
	return out, nil
}

func (t *Table) NumFacts() int   { return len(t.facts) }
func (t *Table) NumFluents() int { return len(t.fluents) }

func (t *Table) FactName(id FactID) string     { return t.facts[id] }
func (t *Table) FluentName(id FluentID) string { return t.fluents[id] }

// FactID looks up an interned fact such as "(delivered package1)".
func (t *Table) FactID(name string) (FactID, bool) {
	id, ok := t.factIndex[name]
	return id, ok
}

func (t *Table) FluentID(name string) (FluentID, bool) {
	id, ok := t.fluentIndex[name]
	return id, ok
}

// Lookup finds a ground action by name and arguments.
func (t *Table) Lookup(name string, args ...string) (ActionID, bool) {
	id, ok := t.byName[model.Atom{Predicate: name, Args: args}.String()]
	return id, ok
}

func (t *Table) Action(id ActionID) *GroundAction { return t.Actions[id] }

// IsStatic reports whether no action effect changes the fluent.
func (t *Table) IsStatic(f FluentID) bool { return !t.written[f] }

// Count returns how many ground instances the named action has.
func (t *Table) Count(name string) int {
	n := 0
	for _, ga := range t.Actions {
		if ga.Schema.Name == name {
			n++
		}
	}
	return n
}
