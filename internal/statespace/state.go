package statespace

import (
	"math"
	"math/bits"

	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/stn"
)

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }
func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) clear(i int)    { b[i/64] &^= 1 << (uint(i) % 64) }

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// Pending is a started durative action whose end has not happened yet.
type Pending struct {
	Action   ActionID
	Start    stn.Point
	End      stn.Point
	Duration float64 // value bound to ?duration in the end effects
}

// Happening is one executed action start or end.
type Happening struct {
	Action ActionID
	Phase  model.Phase
	Point  stn.Point
}

// history is a persistent list of happenings, newest first.
type history struct {
	h    Happening
	prev *history
	n    int
}

func (h *history) push(x Happening) *history {
	n := 1
	if h != nil {
		n = h.n + 1
	}
	return &history{h: x, prev: h, n: n}
}

// State is an immutable search state: true facts, fluent values (NaN when
// undefined), in-flight actions and the happenings that led here.
type State struct {
	facts   bitset
	fluents []float64
	pending []Pending
	log     *history
	next    stn.Point
}

func (s *State) Has(f FactID) bool { return s.facts.has(int(f)) }

// Value returns the fluent value, or false when it is undefined.
func (s *State) Value(f FluentID) (float64, bool) {
	v := s.fluents[f]
	return v, !math.IsNaN(v)
}

// Pending returns the in-flight actions. The slice must not be modified.
func (s *State) Pending() []Pending { return s.pending }

// NextPoint is the first STN point not yet used along this path. It equals
// the Len of the network built from the same deltas.
func (s *State) NextPoint() stn.Point { return s.next }

// FactCount is the number of true facts.
func (s *State) FactCount() int { return s.facts.count() }

// Happenings returns the executed happenings in order.
func (s *State) Happenings() []Happening {
	if s.log == nil {
		return nil
	}
	out := make([]Happening, s.log.n)
	for h, i := s.log, s.log.n-1; h != nil; h, i = h.prev, i-1 {
		out[i] = h.h
	}
	return out
}

func (s *State) clone() *State {
	return &State{
		facts:   append(bitset(nil), s.facts...),
		fluents: append([]float64(nil), s.fluents...),
		pending: s.pending,
		log:     s.log,
		next:    s.next,
	}
}

// apply writes effects evaluated against pre into s.
func (s *State) apply(pre *State, e *Effects, duration float64) bool {
	vals := make([]float64, len(e.Num))
	for i, n := range e.Num {
		v, ok := n.Expr.Eval(pre.fluents, duration)
		if !ok {
			return false
		}
		cur := pre.fluents[n.Fluent]
		if n.Op != "assign" && math.IsNaN(cur) {
			return false
		}
		switch n.Op {
		case "assign":
			vals[i] = v
		case "increase":
			vals[i] = cur + v
		case "decrease":
			vals[i] = cur - v
		case "scale-up":
			vals[i] = cur * v
		case "scale-down":
			if v == 0 {
				return false
			}
			vals[i] = cur / v
		default:
			return false
		}
	}
	for _, f := range e.Del {
		s.facts.clear(int(f))
	}
	for _, f := range e.Add {
		s.facts.set(int(f))
	}
	for i, n := range e.Num {
		s.fluents[n.Fluent] = vals[i]
	}
	return true
}
