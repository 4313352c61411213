// Package search runs temporal best-first search over the transition model.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/msageha/temporal_planner/internal/events"
	"github.com/msageha/temporal_planner/internal/heuristic"
	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/statespace"
	"github.com/msageha/temporal_planner/internal/stn"
)

type Result struct {
	Status model.Status
	Plan   *Plan
	Stats  Stats
}

type Stats struct {
	Reason     model.FailureReason
	Detail     string
	Actions    int
	Expanded   int
	Generated  int
	Duplicates int
	Pruned     int // inapplicable or temporally inconsistent
	DeadEnds   int
	MaxOpen    int
	Elapsed    time.Duration
	Cache      heuristic.CacheStats
}

// Engine is configured once and may run Solve repeatedly. Each call is
// independent.
type Engine struct {
	config    model.Config
	logger    *log.Logger
	logLevel  model.LogLevel
	publisher events.Publisher
}

type Option func(*Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPublisher sends search lifecycle events to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func New(cfg model.Config, opts ...Option) *Engine {
	e := &Engine{
		config:   cfg,
		logger:   log.New(io.Discard, "", 0),
		logLevel: model.ParseLogLevel(cfg.Logging.Level),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Config() model.Config { return e.config }

// Solve grounds task and searches for a plan. Exhaustion, budgets and
// cancellation all end in StatusFailed with the reason in Stats.
func (e *Engine) Solve(ctx context.Context, task *model.Task) Result {
	started := time.Now()
	table, err := statespace.Ground(task)
	if err != nil {
		e.log(model.LogLevelError, "ground task=%s/%s error=%v", task.Domain, task.Problem, err)
		res := Result{Status: model.StatusFailed, Stats: Stats{Reason: model.ReasonInitInvalid, Detail: err.Error()}}
		res.Stats.Elapsed = time.Since(started)
		e.publish(events.EventSearchFailed, map[string]any{"reason": string(res.Stats.Reason), "detail": res.Stats.Detail})
		return res
	}
	m := statespace.NewModel(table, e.config.Temporal.Epsilon)
	return e.SolveModel(ctx, m)
}

// SolveModel searches an already grounded model.
func (e *Engine) SolveModel(ctx context.Context, m *statespace.Model) Result {
	r := newRun(ctx, e, m)
	res := r.search()
	res.Stats.Elapsed = time.Since(r.started)
	res.Stats.Cache = r.est.CacheStats()

	if res.Status == model.StatusSolved {
		e.log(model.LogLevelInfo, "solved steps=%d cost=%.3f makespan=%.3f expanded=%d generated=%d elapsed=%s",
			res.Plan.Len(), res.Plan.Cost, res.Plan.Makespan, res.Stats.Expanded, res.Stats.Generated, res.Stats.Elapsed)
		e.publish(events.EventSolutionFound, map[string]any{
			"steps":    res.Plan.Len(),
			"cost":     res.Plan.Cost,
			"makespan": res.Plan.Makespan,
			"expanded": res.Stats.Expanded,
		})
	} else {
		e.log(model.LogLevelInfo, "failed reason=%s expanded=%d generated=%d elapsed=%s",
			res.Stats.Reason, res.Stats.Expanded, res.Stats.Generated, res.Stats.Elapsed)
		e.publish(events.EventSearchFailed, map[string]any{
			"reason":   string(res.Stats.Reason),
			"expanded": res.Stats.Expanded,
		})
	}
	return res
}

type run struct {
	ctx      context.Context
	engine   *Engine
	cfg      model.SearchConfig
	model    *statespace.Model
	est      *heuristic.Estimator
	open     openList
	best     map[string]float64
	seq      int
	started  time.Time
	deadline time.Time
	stats    Stats
}

func newRun(ctx context.Context, e *Engine, m *statespace.Model) *run {
	r := &run{
		ctx:    ctx,
		engine: e,
		cfg:    e.config.Search,
		model:  m,
		est: heuristic.New(m, heuristic.Options{
			Kind:      e.config.Heuristic.Kind,
			CostModel: e.config.Search.CostModel,
			Epsilon:   m.Epsilon(),
			CacheSize: e.config.Heuristic.CacheSize,
		}),
		best:    map[string]float64{},
		started: time.Now(),
	}
	if r.cfg.TimeoutSec > 0 {
		r.deadline = r.started.Add(time.Duration(r.cfg.TimeoutSec * float64(time.Second)))
	}
	if r.cfg.Workers < 1 {
		r.cfg.Workers = 1
	}
	r.stats.Actions = m.NumActions()
	return r
}

func (r *run) search() Result {
	s0, net0 := r.model.Initial(), stn.New()
	h0 := r.est.Estimate(s0, net0)
	r.engine.log(model.LogLevelInfo, "search_started actions=%d strategy=%s heuristic=%s cost_model=%s h0=%.3f",
		r.model.NumActions(), r.cfg.Strategy, r.est.Kind(), r.cfg.CostModel, h0)
	r.engine.publish(events.EventSearchStarted, map[string]any{
		"actions":  r.model.NumActions(),
		"strategy": string(r.cfg.Strategy),
		"h0":       h0,
	})
	if math.IsInf(h0, 1) {
		return r.fail(model.ReasonInitDeadEnd)
	}

	root := &node{state: s0, net: net0, h: h0}
	root.f = r.priority(0, h0)
	r.remember(root)
	r.open.push(root)

	for r.open.Len() > 0 {
		if reason, stop := r.budgetExceeded(); stop {
			return r.fail(reason)
		}
		n := r.open.pop()
		if r.stale(n) {
			continue
		}
		if r.model.IsGoal(n.state) {
			return Result{Status: model.StatusSolved, Plan: extractPlan(r.model, n), Stats: r.stats}
		}

		r.stats.Expanded++
		if every := r.cfg.ProgressEvery; every > 0 && r.stats.Expanded%every == 0 {
			r.progress(n)
		}

		children, err := r.expand(n)
		if err != nil {
			return r.fail(r.ctxReason(err))
		}
		for _, c := range children {
			r.insert(n, c)
		}
		if r.open.Len() > r.stats.MaxOpen {
			r.stats.MaxOpen = r.open.Len()
		}
	}
	return r.fail(model.ReasonExhausted)
}

// insert turns an evaluated successor into a node unless it is a dead end
// or a duplicate that is no cheaper than what was seen.
func (r *run) insert(parent *node, c child) {
	if !c.ok {
		r.stats.Pruned++
		return
	}
	r.stats.Generated++
	if math.IsInf(c.h, 1) {
		r.stats.DeadEnds++
		return
	}
	g := r.cost(parent, c.succ)
	n := &node{
		state:  c.succ.State,
		net:    c.succ.Net,
		g:      g,
		h:      c.h,
		f:      r.priority(g, c.h),
		parent: parent,
		step:   c.succ.Step,
		depth:  parent.depth + 1,
	}
	if !r.remember(n) {
		r.stats.Duplicates++
		return
	}
	r.seq++
	n.seq = r.seq
	r.open.push(n)
}

func (r *run) cost(parent *node, succ statespace.Successor) float64 {
	switch r.cfg.CostModel {
	case model.CostMakespan:
		return succ.Net.Makespan()
	case model.CostUnit:
		if succ.Step.Phase == model.PhaseStart {
			return parent.g + 1
		}
		return parent.g
	}
	if succ.Step.Phase != model.PhaseStart {
		return parent.g
	}
	d := r.model.Epsilon()
	if p := succ.State.Pending(); len(p) > 0 && r.model.Table().Action(succ.Step.Action).Durative {
		// the new action is the last one queued
		d = math.Max(p[len(p)-1].Duration, d)
	}
	return parent.g + d
}

func (r *run) priority(g, h float64) float64 {
	switch r.cfg.Strategy {
	case model.StrategyGreedy:
		return h
	case model.StrategyWeighted:
		return g + r.cfg.Weight*h
	}
	return g + h
}

func (r *run) key(s *statespace.State) (string, bool) {
	switch r.cfg.Dedup {
	case model.DedupNone:
		return "", false
	case model.DedupLogical:
		return r.model.Fingerprint(s, true), true
	}
	return r.model.Fingerprint(s, false), true
}

// remember records n's g for its fingerprint. It reports false when an
// equal or cheaper visit is already known.
func (r *run) remember(n *node) bool {
	k, ok := r.key(n.state)
	if !ok {
		return true
	}
	if g, seen := r.best[k]; seen && g <= n.g {
		return false
	}
	r.best[k] = n.g
	return true
}

// stale reports whether a cheaper path to n's fingerprint was found after
// n was queued.
func (r *run) stale(n *node) bool {
	k, ok := r.key(n.state)
	if !ok {
		return false
	}
	return r.best[k] < n.g
}

func (r *run) budgetExceeded() (model.FailureReason, bool) {
	if err := r.ctx.Err(); err != nil {
		return r.ctxReason(err), true
	}
	if r.cfg.MaxNodes > 0 && r.stats.Expanded >= r.cfg.MaxNodes {
		return model.ReasonNodeBudget, true
	}
	if !r.deadline.IsZero() && time.Now().After(r.deadline) {
		return model.ReasonDeadline, true
	}
	return model.ReasonNone, false
}

func (r *run) ctxReason(err error) model.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ReasonDeadline
	}
	return model.ReasonCancelled
}

func (r *run) fail(reason model.FailureReason) Result {
	r.stats.Reason = reason
	return Result{Status: model.StatusFailed, Stats: r.stats}
}

func (r *run) progress(n *node) {
	r.engine.log(model.LogLevelDebug, "progress expanded=%d generated=%d open=%d g=%.3f h=%.3f depth=%d",
		r.stats.Expanded, r.stats.Generated, r.open.Len(), n.g, n.h, n.depth)
	r.engine.publish(events.EventProgress, map[string]any{
		"expanded":  r.stats.Expanded,
		"generated": r.stats.Generated,
		"open":      r.open.Len(),
		"g":         n.g,
		"h":         n.h,
	})
}

func (e *Engine) publish(t events.EventType, data map[string]any) {
	if e.publisher != nil {
		e.publisher.Publish(t, data)
	}
}

func (e *Engine) log(level model.LogLevel, format string, args ...any) {
	if level < e.logLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	e.logger.Printf("%s %s search: %s", time.Now().Format(time.RFC3339), level, msg)
}
