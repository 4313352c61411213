package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/statespace"
)

// Step is one scheduled action of a plan. Duration is 0 for
// instantaneous actions.
type Step struct {
	Action   statespace.ActionID
	Name     string
	Schema   string
	Args     []string
	Start    float64
	Duration float64
}

func (s Step) String() string {
	if s.Duration > 0 {
		return fmt.Sprintf("%.3f: %s [%.3f]", s.Start, s.Name, s.Duration)
	}
	return fmt.Sprintf("%.3f: %s", s.Start, s.Name)
}

type Plan struct {
	Steps    []Step
	Cost     float64
	Makespan float64
}

func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Steps)
}

// TimedSteps converts the plan for statespace.Model.Replay.
func (p *Plan) TimedSteps() []statespace.TimedStep {
	out := make([]statespace.TimedStep, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = statespace.TimedStep{Action: s.Action, Start: s.Start, Duration: s.Duration}
	}
	return out
}

func (p *Plan) String() string {
	var sb strings.Builder
	for _, s := range p.Steps {
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "; cost %.3f makespan %.3f\n", p.Cost, p.Makespan)
	return sb.String()
}

// extractPlan walks parent links from goal and stamps each start with its
// earliest time in the goal node's network.
func extractPlan(m *statespace.Model, goal *node) *Plan {
	var path []*node
	for n := goal; n.parent != nil; n = n.parent {
		path = append(path, n)
	}
	var steps []Step
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if n.step.Phase != model.PhaseStart {
			continue
		}
		ga := m.Table().Action(n.step.Action)
		startPt := n.parent.state.NextPoint()
		start := goal.net.Earliest(startPt)
		st := Step{
			Action: ga.ID,
			Name:   ga.Name,
			Schema: ga.Schema.Name,
			Args:   ga.Args,
			Start:  start,
		}
		if ga.Durative {
			st.Duration = goal.net.Earliest(startPt+1) - start
		}
		steps = append(steps, st)
	}
	// stable keeps the search order for equal start times
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Start < steps[j].Start })
	return &Plan{Steps: steps, Cost: goal.g, Makespan: goal.net.Makespan()}
}
