// Package stn implements a persistent simple temporal network.
//
// A network is a set of time points and interval constraints
// lo <= t(to) - t(from) <= hi. Point 0 is the origin (time 0). Networks are
// never modified after construction: Extend returns a new network that
// shares unchanged adjacency rows with its parent.
package stn

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Point identifies a time point within a network and its descendants.
type Point int

// Origin is the reference point fixed at time 0.
const Origin Point = 0

// ErrInconsistent is returned by Extend when the constraints admit no schedule.
var ErrInconsistent = errors.New("temporal network is inconsistent")

// Inf is an absent bound.
var Inf = math.Inf(1)

// tolerance absorbs float noise from repeated epsilon separations so that
// zero-weight cycles are not reported as negative.
const tolerance = 1e-9

// Constraint bounds t(To) - t(From) to [Min, Max]. Use -Inf/Inf for an
// open side.
type Constraint struct {
	From Point
	To   Point
	Min  float64
	Max  float64
}

func (c Constraint) String() string {
	return fmt.Sprintf("%g <= t%d - t%d <= %g", c.Min, c.To, c.From, c.Max)
}

// Between is shorthand for a two-sided constraint.
func Between(from, to Point, lo, hi float64) Constraint {
	return Constraint{From: from, To: to, Min: lo, Max: hi}
}

// After requires to to happen at least gap after from.
func After(from, to Point, gap float64) Constraint {
	return Constraint{From: from, To: to, Min: gap, Max: Inf}
}

// arc u->v with weight w encodes t(v) - t(u) <= w.
type arc struct {
	to Point
	w  float64
}

type Network struct {
	out [][]arc
	in  [][]arc // reverse arcs, in[v] holds (u, w) for every u->v
	// pot is a feasible potential: pot[v] <= pot[u] + w for every arc u->v.
	pot  []float64
	arcs int

	earliestOnce sync.Once
	earliest     []float64
	latestOnce   sync.Once
	latest       []float64
}

// New returns a network holding only the origin.
func New() *Network {
	return &Network{
		out: make([][]arc, 1),
		in:  make([][]arc, 1),
		pot: make([]float64, 1),
	}
}

// Len is the number of points, origin included.
func (n *Network) Len() int { return len(n.pot) }

// Arcs is the number of distance-graph arcs.
func (n *Network) Arcs() int { return n.arcs }

// Extend adds points new time points, numbered from Len(), and the given
// constraints. Every new point is constrained to t >= 0. The receiver is left
// untouched; on failure the error is ErrInconsistent.
func (n *Network) Extend(points int, cs []Constraint) (*Network, error) {
	if points < 0 {
		return nil, fmt.Errorf("stn: negative point count %d", points)
	}
	size := n.Len() + points
	next := &Network{
		out:  make([][]arc, size),
		in:   make([][]arc, size),
		pot:  make([]float64, size),
		arcs: n.arcs,
	}
	copy(next.out, n.out)
	copy(next.in, n.in)
	copy(next.pot, n.pot)

	b := builder{net: next, ownOut: map[Point]bool{}, ownIn: map[Point]bool{}}
	for p := n.Len(); p < size; p++ {
		if err := b.add(Point(p), Origin, 0); err != nil {
			return nil, err
		}
	}
	for _, c := range cs {
		if int(c.From) < 0 || int(c.From) >= size || int(c.To) < 0 || int(c.To) >= size {
			return nil, fmt.Errorf("stn: constraint %s references an unknown point", c)
		}
		if c.Min > c.Max {
			return nil, ErrInconsistent
		}
		if !math.IsInf(c.Max, 1) {
			if err := b.add(c.From, c.To, c.Max); err != nil {
				return nil, err
			}
		}
		if !math.IsInf(c.Min, -1) {
			if err := b.add(c.To, c.From, -c.Min); err != nil {
				return nil, err
			}
		}
	}
	return next, nil
}

// builder copies adjacency rows on first write so that rows shared with the
// parent network are never modified.
type builder struct {
	net    *Network
	ownOut map[Point]bool
	ownIn  map[Point]bool
	queue  []Point
	queued map[Point]bool
}

func (b *builder) add(u, v Point, w float64) error {
	n := b.net
	if !b.ownOut[u] {
		n.out[u] = append([]arc(nil), n.out[u]...)
		b.ownOut[u] = true
	}
	if !b.ownIn[v] {
		n.in[v] = append([]arc(nil), n.in[v]...)
		b.ownIn[v] = true
	}
	n.out[u] = append(n.out[u], arc{to: v, w: w})
	n.in[v] = append(n.in[v], arc{to: u, w: w})
	n.arcs++
	return b.propagate(u, v, w)
}

// propagate restores potential feasibility after adding u->v. Any improvement
// that reaches u closes a negative cycle through the new arc.
func (b *builder) propagate(u, v Point, w float64) error {
	pot := b.net.pot
	if pot[u]+w >= pot[v]-tolerance {
		return nil
	}
	if u == v {
		return ErrInconsistent
	}
	pot[v] = pot[u] + w
	b.queue = append(b.queue[:0], v)
	b.queued = map[Point]bool{v: true}
	for len(b.queue) > 0 {
		x := b.queue[0]
		b.queue = b.queue[1:]
		b.queued[x] = false
		for _, a := range b.net.out[x] {
			if pot[x]+a.w >= pot[a.to]-tolerance {
				continue
			}
			if a.to == u {
				return ErrInconsistent
			}
			pot[a.to] = pot[x] + a.w
			if !b.queued[a.to] {
				b.queued[a.to] = true
				b.queue = append(b.queue, a.to)
			}
		}
	}
	return nil
}

// Earliest is the earliest feasible time of p, the negated distance p->origin.
func (n *Network) Earliest(p Point) float64 {
	n.earliestOnce.Do(func() {
		d := n.shortest(n.in, true)
		n.earliest = make([]float64, len(d))
		for i, v := range d {
			n.earliest[i] = -v
		}
	})
	return n.earliest[p]
}

// Latest is the latest feasible time of p, the distance origin->p. It is
// Inf when nothing bounds p from above.
func (n *Network) Latest(p Point) float64 {
	n.latestOnce.Do(func() {
		n.latest = n.shortest(n.out, false)
	})
	return n.latest[p]
}

// Makespan is the earliest time by which every point can have happened.
func (n *Network) Makespan() float64 {
	m := 0.0
	for p := range n.pot {
		if e := n.Earliest(Point(p)); e > m {
			m = e
		}
	}
	return m
}

// Check recomputes all-pairs distances with Floyd-Warshall and reports
// ErrInconsistent on a negative cycle. It ignores the maintained potential
// and is meant for validation of small networks.
func (n *Network) Check() error {
	size := n.Len()
	d := make([][]float64, size)
	for i := range d {
		d[i] = make([]float64, size)
		for j := range d[i] {
			if i != j {
				d[i][j] = Inf
			}
		}
		for _, a := range n.out[i] {
			if a.w < d[i][a.to] {
				d[i][a.to] = a.w
			}
		}
	}
	for k := 0; k < size; k++ {
		for i := 0; i < size; i++ {
			if math.IsInf(d[i][k], 1) {
				continue
			}
			for j := 0; j < size; j++ {
				if v := d[i][k] + d[k][j]; v < d[i][j] {
					d[i][j] = v
				}
			}
		}
	}
	for i := 0; i < size; i++ {
		if d[i][i] < -tolerance {
			return ErrInconsistent
		}
	}
	return nil
}
