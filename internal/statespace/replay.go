package statespace

import (
	"fmt"
	"sort"

	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/stn"
)

// TimedStep is a scheduled action start. Duration is ignored for
// instantaneous actions.
type TimedStep struct {
	Action   ActionID
	Start    float64
	Duration float64
}

// replayTolerance is how far a happening may drift from its stated time.
const replayTolerance = 1e-6

type replayEvent struct {
	time  float64
	end   bool
	index int
}

// Replay executes a timed plan from the initial state in time order, ends
// before starts at equal times, and returns the final state. Every
// happening is pinned to its stated time, so a plan whose start times or
// durations disagree with the domain fails with stn.ErrInconsistent. It also
// fails when a happening is not applicable or an action is still running at
// the end.
func (m *Model) Replay(steps []TimedStep) (*State, error) {
	var events []replayEvent
	for i, st := range steps {
		ga := m.checkID(st.Action)
		events = append(events, replayEvent{time: st.Start, index: i})
		if ga.Durative {
			events = append(events, replayEvent{time: st.Start + st.Duration, end: true, index: i})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].time != events[j].time {
			return events[i].time < events[j].time
		}
		return events[i].end && !events[j].end
	})

	s, net := m.Initial(), stn.New()
	startPoints := make(map[int]stn.Point, len(steps))
	for _, ev := range events {
		st := steps[ev.index]
		step := Step{Action: st.Action, Phase: model.PhaseStart}
		var at stn.Point
		if ev.end {
			step.Phase = model.PhaseEnd
			step.Pending = -1
			for i, p := range s.pending {
				if p.Start == startPoints[ev.index] {
					step.Pending = i
					at = p.End
					break
				}
			}
			if step.Pending < 0 {
				return nil, fmt.Errorf("step %d %s: end without start", ev.index, m.Name(st.Action))
			}
		} else {
			at = s.next
			startPoints[ev.index] = at
		}
		succ, ok := m.Successor(s, net, step)
		if !ok {
			return nil, fmt.Errorf("step %d %s: %s at %g is not applicable", ev.index, m.Name(st.Action), step.Phase, ev.time)
		}
		pin := stn.Between(stn.Origin, at, ev.time-replayTolerance, ev.time+replayTolerance)
		pinned, err := succ.Net.Extend(0, []stn.Constraint{pin})
		if err != nil {
			return nil, fmt.Errorf("step %d %s: %s at %g: %w", ev.index, m.Name(st.Action), step.Phase, ev.time, err)
		}
		s, net = succ.State, pinned
	}
	if len(s.pending) > 0 {
		return s, fmt.Errorf("%d actions still running at the end of the plan", len(s.pending))
	}
	return s, nil
}
