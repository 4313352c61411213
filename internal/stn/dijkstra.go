package stn

import (
	"container/heap"
)

// shortest runs Dijkstra from the origin over adj using potential-reduced
// weights, which are non-negative for a consistent network. With reverse set,
// adj holds reverse arcs and the result is the distance from each point to
// the origin.
func (n *Network) shortest(adj [][]arc, reverse bool) []float64 {
	size := n.Len()
	dist := make([]float64, size)
	for i := range dist {
		dist[i] = Inf
	}
	done := make([]bool, size)
	dist[Origin] = 0

	reduced := func(from, to Point, w float64) float64 {
		// arc endpoints in graph order
		if reverse {
			from, to = to, from
		}
		r := w + n.pot[from] - n.pot[to]
		if r < 0 {
			r = 0
		}
		return r
	}

	pq := &pointQueue{{p: Origin, d: 0}}
	for pq.Len() > 0 {
		it := heap.Pop(pq).(item)
		if done[it.p] {
			continue
		}
		done[it.p] = true
		for _, a := range adj[it.p] {
			nd := it.d + reduced(it.p, a.to, a.w)
			if nd < dist[a.to] {
				dist[a.to] = nd
				heap.Push(pq, item{p: a.to, d: nd})
			}
		}
	}

	// undo the reduction: d(s,t) = d'(s,t) - pot[s] + pot[t]
	for p := range dist {
		if dist[p] == Inf {
			continue
		}
		if reverse {
			dist[p] = dist[p] - n.pot[p] + n.pot[Origin]
		} else {
			dist[p] = dist[p] - n.pot[Origin] + n.pot[p]
		}
	}
	return dist
}

type item struct {
	p Point
	d float64
}

type pointQueue []item

func (q pointQueue) Len() int { return len(q) }
func (q pointQueue) Less(i, j int) bool {
	if q[i].d != q[j].d {
		return q[i].d < q[j].d
	}
	return q[i].p < q[j].p
}
func (q pointQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *pointQueue) Push(x any)   { *q = append(*q, x.(item)) }
func (q *pointQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}
