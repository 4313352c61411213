package search

import (
	"golang.org/x/sync/errgroup"

	"github.com/msageha/temporal_planner/internal/statespace"
)

type child struct {
	succ statespace.Successor
	h    float64
	ok   bool
}

// expand evaluates every candidate step of n. The result is indexed like
// Model.Candidates, so merging it in order gives the same open list
// whatever the worker count.
func (r *run) expand(n *node) ([]child, error) {
	cands := r.model.Candidates(n.state)
	out := make([]child, len(cands))
	eval := func(i int) {
		succ, ok := r.model.Successor(n.state, n.net, cands[i])
		if !ok {
			return
		}
		out[i] = child{succ: succ, h: r.est.Estimate(succ.State, succ.Net), ok: true}
	}

	if r.cfg.Workers <= 1 || len(cands) < 2 {
		for i := range cands {
			eval(i)
		}
		return out, nil
	}

	g, ctx := errgroup.WithContext(r.ctx)
	g.SetLimit(r.cfg.Workers)
	for i := range cands {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			eval(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
