package search

import (
	"container/heap"

	"github.com/msageha/temporal_planner/internal/statespace"
	"github.com/msageha/temporal_planner/internal/stn"
)

// node is immutable once pushed.
type node struct {
	state  *statespace.State
	net    *stn.Network
	g, h   float64
	f      float64
	parent *node
	step   statespace.Step
	seq    int
	depth  int
}

// openList orders by f, then h, then insertion sequence.
type openList []*node

func (o openList) Len() int { return len(o) }

func (o openList) Less(i, j int) bool {
	a, b := o[i], o[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}

func (o openList) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openList) Push(x any) { *o = append(*o, x.(*node)) }

func (o *openList) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	return n
}

func (o *openList) push(n *node) { heap.Push(o, n) }

func (o *openList) pop() *node { return heap.Pop(o).(*node) }
