package statespace

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/stn"
)

// Delta is the STN extension a happening requires.
type Delta struct {
	Points      int
	Constraints []stn.Constraint
}

// Apply extends net with the delta.
func (d Delta) Apply(net *stn.Network) (*stn.Network, error) {
	return net.Extend(d.Points, d.Constraints)
}

// Step identifies the happening that produced a successor. For ends,
// Pending is the index into the parent's pending queue.
type Step struct {
	Action  ActionID
	Phase   model.Phase
	Pending int
}

type Successor struct {
	Step  Step
	State *State
	Net   *stn.Network
}

// Model is the transition model over a ground table. It is safe for
// concurrent use.
type Model struct {
	table   *Table
	epsilon float64
}

// NewModel returns a model that separates interfering happenings by epsilon.
func NewModel(t *Table, epsilon float64) *Model {
	return &Model{table: t, epsilon: epsilon}
}

func (m *Model) Table() *Table           { return m.table }
func (m *Model) Epsilon() float64        { return m.epsilon }
func (m *Model) NumActions() int         { return len(m.table.Actions) }
func (m *Model) Name(id ActionID) string { return m.table.Actions[id].Name }

// Initial builds the initial state. The matching network is stn.New().
func (m *Model) Initial() *State {
	s := &State{
		facts:   newBitset(m.table.NumFacts()),
		fluents: make([]float64, m.table.NumFluents()),
		next:    1,
	}
	for _, f := range m.table.initFacts {
		s.facts.set(int(f))
	}
	for i := range s.fluents {
		s.fluents[i] = math.NaN()
	}
	for f, v := range m.table.initFluents {
		s.fluents[f] = v
	}
	return s
}

// GoalHolds reports whether the goal formula holds in s. It ignores pending
// actions.
func (m *Model) GoalHolds(s *State) bool {
	return m.table.Goal.Holds(s)
}

// IsGoal is GoalHolds with no action still in flight.
func (m *Model) IsGoal(s *State) bool {
	return len(s.pending) == 0 && m.GoalHolds(s)
}

// Applicable reports whether the start of id can be appended to s and the
// resulting timing is consistent with net.
func (m *Model) Applicable(s *State, net *stn.Network, id ActionID) bool {
	_, d, ok := m.start(s, id)
	if !ok {
		return false
	}
	_, err := d.Apply(net)
	return err == nil
}

// ApplyStart starts id. The caller must have checked Applicable; starting an
// inapplicable action panics.
func (m *Model) ApplyStart(s *State, id ActionID) (*State, Delta) {
	next, d, ok := m.start(s, id)
	if !ok {
		panic(fmt.Sprintf("statespace: start of %s is not applicable", m.checkID(id).Name))
	}
	return next, d
}

// CanEnd reports whether the pending action at index i can end now.
func (m *Model) CanEnd(s *State, i int) bool {
	if i < 0 || i >= len(s.pending) {
		return false
	}
	_, _, ok := m.end(s, i)
	return ok
}

// ApplyEnd ends the pending action at index i. It panics when CanEnd is
// false.
func (m *Model) ApplyEnd(s *State, i int) (*State, Delta) {
	if i < 0 || i >= len(s.pending) {
		panic(fmt.Sprintf("statespace: no pending action at index %d", i))
	}
	next, d, ok := m.end(s, i)
	if !ok {
		panic(fmt.Sprintf("statespace: end of %s is not applicable", m.table.Actions[s.pending[i].Action].Name))
	}
	return next, d
}

// Successors lists every consistent start and end that can follow s, starts
// in action id order followed by ends in pending order.
func (m *Model) Successors(s *State, net *stn.Network) []Successor {
	var out []Successor
	for id := range m.table.Actions {
		if succ, ok := m.Successor(s, net, Step{Action: ActionID(id), Phase: model.PhaseStart}); ok {
			out = append(out, succ)
		}
	}
	for i, p := range s.pending {
		if succ, ok := m.Successor(s, net, Step{Action: p.Action, Phase: model.PhaseEnd, Pending: i}); ok {
			out = append(out, succ)
		}
	}
	return out
}

// Candidates lists the steps Successors would try, in the same order.
func (m *Model) Candidates(s *State) []Step {
	steps := make([]Step, 0, len(m.table.Actions)+len(s.pending))
	for id := range m.table.Actions {
		steps = append(steps, Step{Action: ActionID(id), Phase: model.PhaseStart})
	}
	for i, p := range s.pending {
		steps = append(steps, Step{Action: p.Action, Phase: model.PhaseEnd, Pending: i})
	}
	return steps
}

// Successor evaluates a single step.
func (m *Model) Successor(s *State, net *stn.Network, step Step) (Successor, bool) {
	var (
		next *State
		d    Delta
		ok   bool
	)
	if step.Phase == model.PhaseStart {
		next, d, ok = m.start(s, step.Action)
	} else {
		next, d, ok = m.end(s, step.Pending)
	}
	if !ok {
		return Successor{}, false
	}
	ext, err := d.Apply(net)
	if err != nil {
		return Successor{}, false
	}
	return Successor{Step: step, State: next, Net: ext}, true
}

func (m *Model) checkID(id ActionID) *GroundAction {
	if id < 0 || int(id) >= len(m.table.Actions) {
		panic(fmt.Sprintf("statespace: unknown action id %d", id))
	}
	return m.table.Actions[id]
}

func (m *Model) start(s *State, id ActionID) (*State, Delta, bool) {
	ga := m.checkID(id)
	if !ga.CondStart.Holds(s) {
		return nil, Delta{}, false
	}
	lo, hi, ok := ga.Bounds(s)
	if !ok {
		return nil, Delta{}, false
	}
	// durative actions never take zero time
	if ga.Durative && lo < m.epsilon {
		lo = math.Min(m.epsilon, hi)
	}
	next := s.clone()
	if !next.apply(s, &ga.EffStart, lo) {
		return nil, Delta{}, false
	}
	// the action's own invariant must hold once it is running
	if ga.Durative && !ga.CondOverAll.Holds(next) {
		return nil, Delta{}, false
	}
	if !m.invariantsHold(next, s.pending, -1) {
		return nil, Delta{}, false
	}

	startPt, endPt := s.next, s.next+1
	d := Delta{Points: 2, Constraints: []stn.Constraint{stn.Between(startPt, endPt, lo, hi)}}
	d.Constraints = m.order(s.log, &ga.start, startPt, -1, d.Constraints)

	next.next = s.next + 2
	next.log = s.log.push(Happening{Action: id, Phase: model.PhaseStart, Point: startPt})
	if ga.Durative {
		pending := make([]Pending, len(s.pending), len(s.pending)+1)
		copy(pending, s.pending)
		next.pending = append(pending, Pending{Action: id, Start: startPt, End: endPt, Duration: lo})
	}
	return next, d, true
}

func (m *Model) end(s *State, i int) (*State, Delta, bool) {
	p := s.pending[i]
	ga := m.table.Actions[p.Action]
	if !ga.CondEnd.Holds(s) || !ga.CondOverAll.Holds(s) {
		return nil, Delta{}, false
	}
	next := s.clone()
	if !next.apply(s, &ga.EffEnd, p.Duration) {
		return nil, Delta{}, false
	}
	if !m.invariantsHold(next, s.pending, i) {
		return nil, Delta{}, false
	}

	d := Delta{Constraints: m.order(s.log, &ga.end, p.End, p.Start, nil)}
	pending := make([]Pending, 0, len(s.pending)-1)
	pending = append(pending, s.pending[:i]...)
	next.pending = append(pending, s.pending[i+1:]...)
	next.log = s.log.push(Happening{Action: p.Action, Phase: model.PhaseEnd, Point: p.End})
	return next, d, true
}

// invariantsHold checks the over-all conditions of every pending action
// except skip against s.
func (m *Model) invariantsHold(s *State, pending []Pending, skip int) bool {
	for j, p := range pending {
		if j == skip {
			continue
		}
		if !m.table.Actions[p.Action].CondOverAll.Holds(s) {
			return false
		}
	}
	return true
}

// order appends prev + epsilon <= at for every earlier happening that
// interferes with fp. The happening at point self is skipped.
func (m *Model) order(log *history, fp *footprint, at, self stn.Point, cs []stn.Constraint) []stn.Constraint {
	for h := log; h != nil; h = h.prev {
		if h.h.Point == self {
			continue
		}
		ga := m.table.Actions[h.h.Action]
		other := &ga.start
		if h.h.Phase == model.PhaseEnd {
			other = &ga.end
		}
		if fp.interferes(other) {
			cs = append(cs, stn.After(h.h.Point, at, m.epsilon))
		}
	}
	return cs
}

// Interferes reports whether two happenings touch a common fact or fluent
// that at least one of them writes.
func (m *Model) Interferes(a ActionID, pa model.Phase, b ActionID, pb model.Phase) bool {
	fa, fb := m.footprint(a, pa), m.footprint(b, pb)
	return fa.interferes(fb)
}

func (m *Model) footprint(id ActionID, ph model.Phase) *footprint {
	ga := m.checkID(id)
	if ph == model.PhaseEnd {
		return &ga.end
	}
	return &ga.start
}

// Fingerprint keys s for duplicate detection. With pending set, in-flight
// actions are part of the key.
func (m *Model) Fingerprint(s *State, pending bool) string {
	var sb strings.Builder
	sb.Grow(len(s.facts)*8 + len(s.fluents)*8 + 8)
	var buf [8]byte
	for _, w := range s.facts {
		binary.LittleEndian.PutUint64(buf[:], w)
		sb.Write(buf[:])
	}
	for _, v := range s.fluents {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		sb.Write(buf[:])
	}
	if pending {
		ids := make([]int, len(s.pending))
		for i, p := range s.pending {
			ids[i] = int(p.Action)
		}
		sort.Ints(ids)
		sb.WriteByte('|')
		for _, id := range ids {
			binary.LittleEndian.PutUint64(buf[:], uint64(id))
			sb.Write(buf[:])
		}
	}
	return sb.String()
}
