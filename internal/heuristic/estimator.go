// Package heuristic estimates the remaining cost of a temporal planning
// state with a delete-relaxed temporal planning graph.
package heuristic

import (
	"math"

	"golang.org/x/sync/singleflight"

	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/statespace"
	"github.com/msageha/temporal_planner/internal/stn"
)

// Infinity marks a state from which the goal is unreachable even with
// deletes ignored.
var Infinity = math.Inf(1)

type Options struct {
	Kind      model.HeuristicKind
	CostModel model.CostModel
	Epsilon   float64
	CacheSize int
}

// Estimator is safe for concurrent use.
type Estimator struct {
	model *statespace.Model
	opts  Options
	cache *Cache
	group singleflight.Group

	writes [][]statespace.FluentID // numeric fluents each action changes
}

func New(m *statespace.Model, opts Options) *Estimator {
	if opts.Kind == "" {
		opts.Kind = model.HeuristicMax
	}
	if opts.CostModel == "" {
		opts.CostModel = model.CostDuration
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = m.Epsilon()
	}
	e := &Estimator{model: m, opts: opts, cache: NewCache(opts.CacheSize)}
	e.writes = make([][]statespace.FluentID, m.NumActions())
	for i, ga := range m.Table().Actions {
		for _, n := range ga.EffStart.Num {
			e.writes[i] = append(e.writes[i], n.Fluent)
		}
		for _, n := range ga.EffEnd.Num {
			e.writes[i] = append(e.writes[i], n.Fluent)
		}
	}
	return e
}

func (e *Estimator) Kind() model.HeuristicKind { return e.opts.Kind }

func (e *Estimator) CacheStats() CacheStats { return e.cache.Stats() }

// Estimate returns 0 when the goal holds in s, Infinity when the goal is
// relaxed-unreachable, and a positive value otherwise.
func (e *Estimator) Estimate(s *statespace.State, net *stn.Network) float64 {
	if e.model.GoalHolds(s) {
		return 0
	}
	if e.opts.Kind == model.HeuristicBlind {
		return e.opts.Epsilon
	}
	// makespan estimates depend on the schedule, not just the state
	if e.opts.CostModel == model.CostMakespan {
		return e.compute(s, net)
	}
	key := e.model.Fingerprint(s, true)
	if v, ok := e.cache.Get(key); ok {
		return v
	}
	v, _, _ := e.group.Do(key, func() (any, error) {
		h := e.compute(s, net)
		e.cache.Set(key, h)
		return h, nil
	})
	return v.(float64)
}

// relaxed holds the reach cost of every fact and numeric fluent.
type relaxed struct {
	state  *statespace.State
	facts  []float64
	fluent []float64
	add    bool
}

func (e *Estimator) compute(s *statespace.State, net *stn.Network) float64 {
	table := e.model.Table()
	r := &relaxed{
		state:  s,
		facts:  make([]float64, table.NumFacts()),
		fluent: make([]float64, table.NumFluents()),
		add:    e.opts.Kind == model.HeuristicAdd,
	}
	for i := range r.facts {
		if s.Has(statespace.FactID(i)) {
			r.facts[i] = 0
		} else {
			r.facts[i] = Infinity
		}
	}
	for i := range r.fluent {
		r.fluent[i] = Infinity
	}

	now, makespan := 0.0, 0.0
	if e.opts.CostModel == model.CostMakespan {
		for _, h := range s.Happenings() {
			now = math.Max(now, net.Earliest(h.Point))
		}
		makespan = net.Makespan()
	}
	for _, p := range s.Pending() {
		at := 0.0
		if e.opts.CostModel == model.CostMakespan {
			at = math.Max(0, net.Earliest(p.End)-now)
		}
		ga := table.Action(p.Action)
		for _, f := range ga.EffEnd.Add {
			r.facts[f] = math.Min(r.facts[f], at)
		}
		for _, n := range ga.EffEnd.Num {
			r.fluent[n.Fluent] = math.Min(r.fluent[n.Fluent], at)
		}
	}

	costs := make([]float64, len(table.Actions))
	for i, ga := range table.Actions {
		costs[i] = e.actionCost(ga, s)
	}

	// Bellman-Ford style fixpoint; costs only decrease
	limit := table.NumFacts() + table.NumFluents() + 2
	for iter := 0; iter < limit; iter++ {
		changed := false
		for i, ga := range table.Actions {
			pre := r.combine(r.cost(ga.CondStart), r.cost(ga.CondOverAll), r.cost(ga.CondEnd))
			if math.IsInf(pre, 1) {
				continue
			}
			done := pre + costs[i]
			for _, adds := range [][]statespace.FactID{ga.EffStart.Add, ga.EffEnd.Add} {
				for _, f := range adds {
					if done < r.facts[f]-1e-12 {
						r.facts[f] = done
						changed = true
					}
				}
			}
			for _, f := range e.writes[i] {
				if done < r.fluent[f]-1e-12 {
					r.fluent[f] = done
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	h := r.cost(table.Goal)
	if math.IsInf(h, 1) {
		return Infinity
	}
	if e.opts.CostModel == model.CostMakespan {
		h = now + h - makespan
	}
	return math.Max(h, e.opts.Epsilon)
}

func (e *Estimator) actionCost(ga *statespace.GroundAction, s *statespace.State) float64 {
	if e.opts.CostModel == model.CostUnit {
		return 1
	}
	lo, _, ok := ga.Bounds(s)
	if !ok {
		// the duration may become defined later; stay optimistic
		return e.opts.Epsilon
	}
	return math.Max(lo, e.opts.Epsilon)
}

func (r *relaxed) combine(vs ...float64) float64 {
	out := 0.0
	for _, v := range vs {
		if r.add {
			out += v
		} else {
			out = math.Max(out, v)
		}
	}
	return out
}

// cost of a condition in the relaxation. Negative literals are ignored; a
// comparison is reached when it holds now or some reached action changes
// one of its fluents.
func (r *relaxed) cost(c *statespace.Cond) float64 {
	if c == nil {
		return 0
	}
	switch c.Kind {
	case model.FormulaAtom:
		return r.facts[c.Fact]
	case model.FormulaNot:
		return 0
	case model.FormulaCompare:
		if c.Holds(r.state) {
			return 0
		}
		best := Infinity
		for _, f := range c.Cmp.Fluents() {
			best = math.Min(best, r.fluent[f])
		}
		return best
	case model.FormulaOr:
		best := Infinity
		for _, ch := range c.Children {
			best = math.Min(best, r.cost(ch))
		}
		return best
	}
	vs := make([]float64, len(c.Children))
	for i, ch := range c.Children {
		vs[i] = r.cost(ch)
	}
	return r.combine(vs...)
}
