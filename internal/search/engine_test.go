package search

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/temporal_planner/fixtures"
	"github.com/msageha/temporal_planner/internal/events"
	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/pddl"
	"github.com/msageha/temporal_planner/internal/statespace"
)

func fixtureTask(t *testing.T, name string) *model.Task {
	t.Helper()
	d, p, err := fixtures.Load(name)
	require.NoError(t, err)
	task, err := pddl.Parse(d, p)
	require.NoError(t, err)
	return task
}

func groundModel(t *testing.T, task *model.Task, cfg model.Config) *statespace.Model {
	t.Helper()
	table, err := statespace.Ground(task)
	require.NoError(t, err)
	return statespace.NewModel(table, cfg.Temporal.Epsilon)
}

// requireValid replays p from the initial state and checks the goal.
func requireValid(t *testing.T, m *statespace.Model, p *Plan) {
	t.Helper()
	final, err := m.Replay(p.TimedSteps())
	require.NoError(t, err)
	require.True(t, m.IsGoal(final))
}

func TestSolve_SimpleDelivery(t *testing.T) {
	cfg := model.DefaultConfig()
	task := fixtureTask(t, "simple-robot")
	res := New(cfg).Solve(context.Background(), task)

	require.Equal(t, model.StatusSolved, res.Status)
	require.Equal(t, 4, res.Plan.Len())

	var names []string
	for _, s := range res.Plan.Steps {
		names = append(names, s.Schema+" "+s.Args[1])
	}
	assert.ElementsMatch(t, []string{
		"pick-up package1", "deliver package1", "pick-up package2", "deliver package2",
	}, names)
	// one hand: each package is picked up before it is delivered
	for _, pkg := range []string{"package1", "package2"} {
		var pick, deliver float64
		for _, s := range res.Plan.Steps {
			if s.Args[1] != pkg {
				continue
			}
			if s.Schema == "pick-up" {
				pick = s.Start
			} else {
				deliver = s.Start
			}
		}
		assert.Less(t, pick, deliver, pkg)
	}
	for _, s := range res.Plan.Steps {
		if s.Schema == "deliver" {
			assert.InDelta(t, 2.0, s.Duration, 1e-9)
		}
	}

	assert.InDelta(t, 4.002, res.Plan.Cost, 1e-9)
	assert.InDelta(t, 4.003, res.Plan.Makespan, 1e-9)
	assert.Equal(t, model.ReasonNone, res.Stats.Reason)
	assert.Greater(t, res.Stats.Expanded, 0)

	requireValid(t, groundModel(t, task, cfg), res.Plan)
}

func TestSolve_Deterministic(t *testing.T) {
	task := fixtureTask(t, "simple-robot")
	e := New(model.DefaultConfig())
	first := e.Solve(context.Background(), task)
	second := e.Solve(context.Background(), task)
	require.Equal(t, model.StatusSolved, first.Status)
	assert.Equal(t, first.Plan, second.Plan)
	assert.Equal(t, first.Stats.Expanded, second.Stats.Expanded)
}

func TestSolve_WorkersMatchSequential(t *testing.T) {
	for _, name := range []string{"simple-robot", "blocks-world"} {
		task := fixtureTask(t, name)
		cfg := model.DefaultConfig()
		seq := New(cfg).Solve(context.Background(), task)

		cfg.Search.Workers = 4
		par := New(cfg).Solve(context.Background(), task)

		require.Equal(t, model.StatusSolved, seq.Status, name)
		assert.Equal(t, seq.Plan, par.Plan, name)
		assert.Equal(t, seq.Stats.Expanded, par.Stats.Expanded, name)
		assert.Equal(t, seq.Stats.Generated, par.Stats.Generated, name)
	}
}

func TestSolve_BlocksWorld(t *testing.T) {
	cfg := model.DefaultConfig()
	task := fixtureTask(t, "blocks-world")
	res := New(cfg).Solve(context.Background(), task)

	require.Equal(t, model.StatusSolved, res.Status)
	// two picks and two slow stacks
	require.Equal(t, 4, res.Plan.Len())
	assert.InDelta(t, 6.002, res.Plan.Cost, 1e-9)
	requireValid(t, groundModel(t, task, cfg), res.Plan)

	stacks := 0
	for _, s := range res.Plan.Steps {
		if s.Schema == "stack-slow" {
			stacks++
			assert.InDelta(t, 3.0, s.Duration, 1e-9)
		}
	}
	assert.Equal(t, 2, stacks)
}

func TestSolve_Factory(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Search.Strategy = model.StrategyGreedy
	cfg.Heuristic.Kind = model.HeuristicAdd
	cfg.Search.MaxNodes = 50000
	task := fixtureTask(t, "factory-automation")
	res := New(cfg).Solve(context.Background(), task)

	require.Equal(t, model.StatusSolved, res.Status, "reason %s", res.Stats.Reason)
	requireValid(t, groundModel(t, task, cfg), res.Plan)
	assert.Greater(t, res.Plan.Makespan, 0.0)
}

func TestSolve_Strategies(t *testing.T) {
	task := fixtureTask(t, "simple-robot")
	tests := []struct {
		name      string
		strategy  model.Strategy
		heuristic model.HeuristicKind
		costModel model.CostModel
		dedup     model.DedupPolicy
	}{
		{"wastar hadd", model.StrategyWeighted, model.HeuristicAdd, model.CostDuration, model.DedupFacts},
		{"gbfs", model.StrategyGreedy, model.HeuristicAdd, model.CostDuration, model.DedupFacts},
		{"blind", model.StrategyAStar, model.HeuristicBlind, model.CostDuration, model.DedupFacts},
		{"unit cost", model.StrategyAStar, model.HeuristicMax, model.CostUnit, model.DedupFacts},
		{"makespan", model.StrategyAStar, model.HeuristicMax, model.CostMakespan, model.DedupFacts},
		{"logical dedup", model.StrategyAStar, model.HeuristicMax, model.CostDuration, model.DedupLogical},
		{"no dedup", model.StrategyGreedy, model.HeuristicAdd, model.CostDuration, model.DedupNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultConfig()
			cfg.Search.Strategy = tt.strategy
			cfg.Search.Weight = 2
			cfg.Search.CostModel = tt.costModel
			cfg.Search.Dedup = tt.dedup
			cfg.Heuristic.Kind = tt.heuristic
			res := New(cfg).Solve(context.Background(), task)
			require.Equal(t, model.StatusSolved, res.Status, "reason %s", res.Stats.Reason)
			requireValid(t, groundModel(t, task, cfg), res.Plan)
		})
	}
}

func TestSolve_NodeBudget(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Search.MaxNodes = 1
	res := New(cfg).Solve(context.Background(), fixtureTask(t, "blocks-world"))

	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Nil(t, res.Plan)
	assert.Equal(t, model.ReasonNodeBudget, res.Stats.Reason)
	assert.Equal(t, 1, res.Stats.Expanded)
}

func TestSolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New(model.DefaultConfig()).Solve(ctx, fixtureTask(t, "simple-robot"))
	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Equal(t, model.ReasonCancelled, res.Stats.Reason)
}

const switchDomain = `(define (domain switch)
  (:predicates (fresh) (a) (b))
  (:action use-a :precondition (fresh) :effect (and (not (fresh)) (a)))
  (:action use-b :precondition (fresh) :effect (and (not (fresh)) (b))))`

func TestSolve_Exhausted(t *testing.T) {
	task, err := pddl.Parse(switchDomain, `(define (problem both) (:domain switch)
  (:init (fresh)) (:goal (and (a) (b))))`)
	require.NoError(t, err)

	res := New(model.DefaultConfig()).Solve(context.Background(), task)
	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Equal(t, model.ReasonExhausted, res.Stats.Reason)
	// both successors lose fresh and cannot reach the other fact
	assert.Equal(t, 1, res.Stats.Expanded)
	assert.Equal(t, 2, res.Stats.DeadEnds)
}

func TestSolve_InitialDeadEnd(t *testing.T) {
	task, err := pddl.Parse(switchDomain, `(define (problem stuck) (:domain switch)
  (:init) (:goal (a)))`)
	require.NoError(t, err)

	res := New(model.DefaultConfig()).Solve(context.Background(), task)
	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Equal(t, model.ReasonInitDeadEnd, res.Stats.Reason)
	assert.Equal(t, 0, res.Stats.Expanded)
}

func TestSolve_GoalAlreadyHolds(t *testing.T) {
	task, err := pddl.Parse(switchDomain, `(define (problem done) (:domain switch)
  (:init (a)) (:goal (a)))`)
	require.NoError(t, err)

	res := New(model.DefaultConfig()).Solve(context.Background(), task)
	require.Equal(t, model.StatusSolved, res.Status)
	assert.Equal(t, 0, res.Plan.Len())
	assert.Equal(t, 0.0, res.Plan.Makespan)
}

type recorder struct {
	mu    sync.Mutex
	types []events.EventType
}

func (r *recorder) Publish(t events.EventType, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, t)
}

func TestSolve_PublishesAndLogs(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Search.ProgressEvery = 1
	cfg.Logging.Level = "debug"
	var buf bytes.Buffer
	rec := &recorder{}

	res := New(cfg, WithLogger(log.New(&buf, "", 0)), WithPublisher(rec)).
		Solve(context.Background(), fixtureTask(t, "simple-robot"))
	require.Equal(t, model.StatusSolved, res.Status)

	require.NotEmpty(t, rec.types)
	assert.Equal(t, events.EventSearchStarted, rec.types[0])
	assert.Equal(t, events.EventSolutionFound, rec.types[len(rec.types)-1])
	assert.Contains(t, rec.types, events.EventProgress)

	out := buf.String()
	assert.Contains(t, out, "DEBUG search: progress")
	assert.Contains(t, out, "INFO search: solved steps=4")
}

func TestSolve_LogLevelFilters(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Logging.Level = "error"
	var buf bytes.Buffer
	New(cfg, WithLogger(log.New(&buf, "", 0))).Solve(context.Background(), fixtureTask(t, "simple-robot"))
	assert.Empty(t, strings.TrimSpace(buf.String()))
}
