package statespace

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/temporal_planner/fixtures"
	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/pddl"
	"github.com/msageha/temporal_planner/internal/stn"
)

const eps = 0.001

func loadModel(t *testing.T, name string) *Model {
	t.Helper()
	d, p, err := fixtures.Load(name)
	require.NoError(t, err)
	task, err := pddl.Parse(d, p)
	require.NoError(t, err)
	table, err := Ground(task)
	require.NoError(t, err)
	return NewModel(table, eps)
}

func mustLookup(t *testing.T, m *Model, name string, args ...string) ActionID {
	t.Helper()
	id, ok := m.Table().Lookup(name, args...)
	require.True(t, ok, "no ground action %s %v", name, args)
	return id
}

func fact(t *testing.T, m *Model, name string) FactID {
	t.Helper()
	id, ok := m.Table().FactID(name)
	require.True(t, ok, "fact %s not interned", name)
	return id
}

// expectedBindings enumerates bindings directly from the object list.
func expectedBindings(task *model.Task, a *model.Action) []string {
	args := [][]string{nil}
	for _, p := range a.Params {
		var nextArgs [][]string
		for _, prefix := range args {
			for _, o := range task.Objects {
				if task.IsSubtype(o.Type, p.Type) {
					nextArgs = append(nextArgs, append(append([]string(nil), prefix...), o.Name))
				}
			}
		}
		args = nextArgs
	}
	var names []string
	for _, as := range args {
		names = append(names, model.Atom{Predicate: a.Name, Args: as}.String())
	}
	sort.Strings(names)
	return names
}

func TestGround_FactoryCompleteness(t *testing.T) {
	m := loadModel(t, "factory-automation")
	table := m.Table()

	assert.Equal(t, 2*3*3, table.Count("move-worker"))
	assert.Equal(t, 2*2*3*3, table.Count("process-ingredient"))
	assert.Equal(t, 2*2*2*3, table.Count("produce-product"))
	assert.Equal(t, 2*2*3, table.Count("ship-product"))
	assert.Len(t, table.Actions, 90)

	for _, schema := range table.Task.Actions {
		var got []string
		for _, ga := range table.Actions {
			if ga.Schema == schema {
				got = append(got, ga.Name)
			}
		}
		sort.Strings(got)
		assert.Equal(t, expectedBindings(table.Task, schema), got, schema.Name)
	}
	for i, ga := range table.Actions {
		assert.Equal(t, ActionID(i), ga.ID)
	}
}

func TestGround_NoObjectsNoInstances(t *testing.T) {
	task := &model.Task{
		Types:      []model.Type{{Name: "robot", Parent: model.RootType}, {Name: "place", Parent: model.RootType}},
		Predicates: []model.Predicate{{Name: "at", Params: []model.Param{{Name: "?r", Type: "robot"}, {Name: "?p", Type: "place"}}}},
		Objects:    []model.Object{{Name: "home", Type: "place"}},
		Actions: []*model.Action{{
			Name:     "go",
			Params:   []model.Param{{Name: "?r", Type: "robot"}, {Name: "?to", Type: "place"}},
			EffStart: []model.Effect{{Kind: model.EffectAdd, Atom: model.Atom{Predicate: "at", Args: []string{"?r", "?to"}}}},
		}},
		Goal: model.AtomFormula("at", "r1", "home"),
	}
	table, err := Ground(task)
	require.NoError(t, err)
	assert.Empty(t, table.Actions)

	m := NewModel(table, eps)
	assert.Empty(t, m.Successors(m.Initial(), stn.New()))
}

func TestGround_StaticDurations(t *testing.T) {
	m := loadModel(t, "factory-automation")
	table := m.Table()

	pt, ok := table.FluentID("(processing-time flour)")
	require.True(t, ok)
	assert.True(t, table.IsStatic(pt))
	stock, ok := table.FluentID("(processed-stock)")
	require.True(t, ok)
	assert.False(t, table.IsStatic(stock))

	s := m.Initial()
	proc := table.Action(mustLookup(t, m, "process-ingredient", "alice", "mixer", "flour", "kitchen"))
	lo, hi, ok := proc.Bounds(s)
	require.True(t, ok)
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 2.0, hi)

	prod := table.Action(mustLookup(t, m, "produce-product", "bob", "oven", "cake", "bakery"))
	lo, _, ok = prod.Bounds(s)
	require.True(t, ok)
	assert.Equal(t, 4.5, lo)
}

func TestModel_DeliverLifecycle(t *testing.T) {
	m := loadModel(t, "simple-robot")
	s, net := m.Initial(), stn.New()

	pick := mustLookup(t, m, "pick-up", "robot1", "package1", "depot")
	deliver := mustLookup(t, m, "deliver", "robot1", "package1", "depot")
	move := mustLookup(t, m, "move", "robot1", "depot", "office")

	assert.False(t, m.Applicable(s, net, deliver), "not holding yet")
	require.True(t, m.Applicable(s, net, pick))

	s, d := m.ApplyStart(s, pick)
	assert.Equal(t, 2, d.Points)
	assert.Equal(t, []stn.Constraint{stn.Between(1, 2, 0, 0)}, d.Constraints)
	net, err := d.Apply(net)
	require.NoError(t, err)
	assert.True(t, s.Has(fact(t, m, "(holding robot1 package1)")))
	assert.False(t, s.Has(fact(t, m, "(hand-empty robot1)")))
	assert.Empty(t, s.Pending())

	require.True(t, m.Applicable(s, net, deliver))
	s, d = m.ApplyStart(s, deliver)
	assert.Contains(t, d.Constraints, stn.Between(3, 4, 2, 2))
	assert.Contains(t, d.Constraints, stn.After(1, 3, eps), "deliver reads what pick-up wrote")
	net, err = d.Apply(net)
	require.NoError(t, err)
	require.Len(t, s.Pending(), 1)
	assert.Equal(t, Pending{Action: deliver, Start: 3, End: 4, Duration: 2}, s.Pending()[0])
	assert.Equal(t, stn.Point(5), s.NextPoint())
	assert.Equal(t, net.Len(), int(s.NextPoint()))

	// moving away would break the over-all condition of deliver
	assert.False(t, m.Applicable(s, net, move))
	assert.False(t, m.IsGoal(s))

	require.True(t, m.CanEnd(s, 0))
	s, d = m.ApplyEnd(s, 0)
	assert.Zero(t, d.Points)
	net, err = d.Apply(net)
	require.NoError(t, err)
	assert.True(t, s.Has(fact(t, m, "(delivered package1)")))
	assert.True(t, s.Has(fact(t, m, "(hand-empty robot1)")))
	assert.Empty(t, s.Pending())
	assert.InDelta(t, 2.001, net.Earliest(4), 1e-9)

	hs := s.Happenings()
	require.Len(t, hs, 3)
	assert.Equal(t, Happening{Action: deliver, Phase: model.PhaseEnd, Point: 4}, hs[2])
	assert.True(t, m.Applicable(s, net, move))
}

func TestModel_ContractViolationsPanic(t *testing.T) {
	m := loadModel(t, "simple-robot")
	s := m.Initial()
	deliver := mustLookup(t, m, "deliver", "robot1", "package1", "depot")

	assert.Panics(t, func() { m.ApplyStart(s, deliver) })
	assert.Panics(t, func() { m.ApplyEnd(s, 0) })
	assert.Panics(t, func() { m.ApplyStart(s, ActionID(len(m.Table().Actions))) })
	assert.False(t, m.CanEnd(s, 0))
}

func TestModel_NumericEffects(t *testing.T) {
	m := loadModel(t, "factory-automation")
	s, net := m.Initial(), stn.New()
	table := m.Table()

	proc := mustLookup(t, m, "process-ingredient", "alice", "mixer", "flour", "kitchen")
	succ, ok := m.Successor(s, net, Step{Action: proc, Phase: model.PhaseStart})
	require.True(t, ok)
	succ, ok = m.Successor(succ.State, succ.Net, Step{Action: proc, Phase: model.PhaseEnd, Pending: 0})
	require.True(t, ok)

	stock, _ := table.FluentID("(processed-stock)")
	v, ok := succ.State.Value(stock)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
	energy, _ := table.FluentID("(energy-used mixer)")
	v, ok = succ.State.Value(energy)
	require.True(t, ok)
	assert.Equal(t, 4.0, v)

	// bread needs one processed ingredient, cake two
	bread := mustLookup(t, m, "produce-product", "alice", "mixer", "bread", "kitchen")
	cake := mustLookup(t, m, "produce-product", "alice", "mixer", "cake", "kitchen")
	assert.True(t, m.Applicable(succ.State, succ.Net, bread))
	assert.False(t, m.Applicable(succ.State, succ.Net, cake))
}

func TestModel_Fingerprint(t *testing.T) {
	m := loadModel(t, "blocks-world")
	s, net := m.Initial(), stn.New()
	pick := mustLookup(t, m, "pick-up", "a")
	put := mustLookup(t, m, "put-down", "a")

	a, ok := m.Successor(s, net, Step{Action: pick, Phase: model.PhaseStart})
	require.True(t, ok)
	b, ok := m.Successor(a.State, a.Net, Step{Action: put, Phase: model.PhaseStart})
	require.True(t, ok)

	assert.Equal(t, m.Fingerprint(s, false), m.Fingerprint(b.State, false))
	assert.NotEqual(t, m.Fingerprint(s, false), m.Fingerprint(a.State, false))
	assert.Equal(t, m.Fingerprint(s, true), m.Fingerprint(b.State, true))

	stack := mustLookup(t, m, "stack-slow", "a", "b")
	c, ok := m.Successor(a.State, a.Net, Step{Action: stack, Phase: model.PhaseStart})
	require.True(t, ok)
	assert.NotEqual(t, m.Fingerprint(c.State, false), m.Fingerprint(c.State, true))
}

func TestModel_SuccessorsOrder(t *testing.T) {
	m := loadModel(t, "simple-robot")
	succs := m.Successors(m.Initial(), stn.New())

	var names []string
	for _, s := range succs {
		names = append(names, m.Name(s.Step.Action))
	}
	assert.ElementsMatch(t, []string{
		"(move robot1 depot office)",
		"(pick-up robot1 package1 depot)",
		"(pick-up robot1 package2 depot)",
	}, names)
	for i := 1; i < len(succs); i++ {
		assert.Less(t, succs[i-1].Step.Action, succs[i].Step.Action)
	}
}

func TestModel_Replay(t *testing.T) {
	m := loadModel(t, "simple-robot")
	pick1 := mustLookup(t, m, "pick-up", "robot1", "package1", "depot")
	del1 := mustLookup(t, m, "deliver", "robot1", "package1", "depot")
	pick2 := mustLookup(t, m, "pick-up", "robot1", "package2", "depot")
	del2 := mustLookup(t, m, "deliver", "robot1", "package2", "depot")

	final, err := m.Replay([]TimedStep{
		{Action: pick1, Start: 0},
		{Action: del1, Start: 0.001, Duration: 2},
		{Action: pick2, Start: 2.002},
		{Action: del2, Start: 2.003, Duration: 2},
	})
	require.NoError(t, err)
	assert.True(t, m.IsGoal(final))

	// second pick-up overlapping the first delivery needs an empty hand
	_, err = m.Replay([]TimedStep{
		{Action: pick1, Start: 0},
		{Action: del1, Start: 0.001, Duration: 2},
		{Action: pick2, Start: 1},
	})
	assert.Error(t, err)
}

func TestModel_ReplayChecksTimings(t *testing.T) {
	m := loadModel(t, "simple-robot")
	pick1 := mustLookup(t, m, "pick-up", "robot1", "package1", "depot")
	del1 := mustLookup(t, m, "deliver", "robot1", "package1", "depot")
	pick2 := mustLookup(t, m, "pick-up", "robot1", "package2", "depot")

	tests := []struct {
		name  string
		steps []TimedStep
	}{
		{"duration differs from the domain", []TimedStep{
			{Action: pick1, Start: 0},
			{Action: del1, Start: 50, Duration: 100},
		}},
		{"duration too short", []TimedStep{
			{Action: pick1, Start: 0},
			{Action: del1, Start: 0.001, Duration: 1},
		}},
		{"interfering happenings closer than epsilon", []TimedStep{
			{Action: pick1, Start: 0},
			{Action: del1, Start: 0.0004, Duration: 2},
		}},
		{"start right at the previous end", []TimedStep{
			{Action: pick1, Start: 0},
			{Action: del1, Start: 0.001, Duration: 2},
			{Action: pick2, Start: 2.001},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Replay(tt.steps)
			assert.ErrorIs(t, err, stn.ErrInconsistent)
		})
	}

	// a later start than necessary is still a valid schedule
	final, err := m.Replay([]TimedStep{
		{Action: pick1, Start: 0},
		{Action: del1, Start: 5, Duration: 2},
	})
	require.NoError(t, err)
	assert.Empty(t, final.Pending())
}

func TestModel_Interferes(t *testing.T) {
	m := loadModel(t, "simple-robot")
	pick1 := mustLookup(t, m, "pick-up", "robot1", "package1", "depot")
	del1 := mustLookup(t, m, "deliver", "robot1", "package1", "depot")
	move := mustLookup(t, m, "move", "robot1", "depot", "office")

	// both touch the robot's hand
	assert.True(t, m.Interferes(pick1, model.PhaseStart, del1, model.PhaseStart))
	assert.True(t, m.Interferes(del1, model.PhaseStart, pick1, model.PhaseStart))
	// deliver keeps the robot at the depot over all, which move deletes
	assert.True(t, m.Interferes(move, model.PhaseStart, del1, model.PhaseEnd))
	assert.False(t, m.Interferes(pick1, model.PhaseStart, pick1, model.PhaseEnd))
}
