package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/msageha/temporal_planner/internal/events"
	"github.com/msageha/temporal_planner/internal/lock"
	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/yaml"
	"github.com/msageha/temporal_planner/planner"
)

// solveOptions are the flags shared by solve and watch.
type solveOptions struct {
	out      string
	trace    string
	maxNodes int
	timeout  float64
	workers  int
	strategy string
	heur     string
}

func (o *solveOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.out, "out", "o", "", "write the result as a YAML plan file")
	f.StringVar(&o.trace, "trace", "", "append search events to a JSONL trace file")
	f.IntVar(&o.maxNodes, "max-nodes", -1, "override search.max_nodes (0 = unlimited)")
	f.Float64Var(&o.timeout, "timeout", -1, "override search.timeout_sec")
	f.IntVar(&o.workers, "workers", 0, "override search.workers")
	f.StringVar(&o.strategy, "strategy", "", "override search.strategy (astar|wastar|gbfs)")
	f.StringVar(&o.heur, "heuristic", "", "override heuristic.kind (hmax|hadd|blind)")
}

// apply merges the flag overrides into cfg and validates the result.
func (o *solveOptions) apply(cfg model.Config) (model.Config, error) {
	if o.maxNodes >= 0 {
		cfg.Search.MaxNodes = o.maxNodes
	}
	if o.timeout >= 0 {
		cfg.Search.TimeoutSec = o.timeout
	}
	if o.workers > 0 {
		cfg.Search.Workers = o.workers
	}
	if o.strategy != "" {
		cfg.Search.Strategy = model.Strategy(o.strategy)
	}
	if o.heur != "" {
		cfg.Heuristic.Kind = model.HeuristicKind(o.heur)
	}
	if verrs := cfg.Validate(); verrs != nil {
		return cfg, &exitError{code: 1, err: verrs}
	}
	return cfg, nil
}

func newSolveCmd() *cobra.Command {
	opts := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve <domain.pddl> <problem.pddl>",
		Short: "Search for a plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg, err = opts.apply(cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out, err := solveOnce(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts, args[0], args[1])
			if err != nil {
				return err
			}
			if out.code != planner.CodeSolutionFound {
				return &exitError{code: exitCode(out.code), err: fmt.Errorf("no plan found (%s)", out.result.Stats.Reason)}
			}
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

type solveOutcome struct {
	runID  string
	task   *planner.Task
	result planner.Result
	code   planner.ResultCode
}

// solveOnce reads, parses and solves one domain/problem pair, prints the
// plan to stdout, and writes the optional plan and trace files.
func solveOnce(ctx context.Context, stdout, stderr io.Writer, cfg model.Config, opts *solveOptions, domainPath, problemPath string) (solveOutcome, error) {
	out := solveOutcome{runID: uuid.NewString()}

	domain, err := os.ReadFile(domainPath)
	if err != nil {
		err = &planner.FileError{Path: domainPath, Err: err}
		return out, &exitError{code: exitCode(planner.CodeFileError), err: err}
	}
	problem, err := os.ReadFile(problemPath)
	if err != nil {
		err = &planner.FileError{Path: problemPath, Err: err}
		return out, &exitError{code: exitCode(planner.CodeFileError), err: err}
	}
	task, err := planner.Parse(string(domain), string(problem))
	if err != nil {
		return out, &exitError{code: exitCode(planner.CodeParseError), err: err}
	}
	out.task = task

	solveOpts := []planner.Option{planner.WithLogger(newLogger(stderr))}
	var (
		bus   *events.Bus
		trace *events.TraceLogger
	)
	if opts.trace != "" {
		trace, err = events.NewTraceLogger(opts.trace, out.runID, 0)
		if err != nil {
			return out, err
		}
		bus = events.NewBus(256)
		bus.Subscribe(trace.Record, events.AllTypes...)
		solveOpts = append(solveOpts, planner.WithPublisher(bus))
	}

	out.result = planner.Solve(ctx, task, cfg, solveOpts...)
	out.code = planner.Code(out.result, nil)

	if bus != nil {
		bus.Close()
		if err := trace.Err(); err != nil {
			fmt.Fprintf(stderr, "warning: trace: %v\n", err)
		}
		if err := trace.Close(); err != nil {
			fmt.Fprintf(stderr, "warning: close trace: %v\n", err)
		}
	}

	printResult(stdout, task, out.result)

	if opts.out != "" {
		pf := planFile(out.runID, task, out.result)
		err := lock.WithLock(opts.out, func() error {
			return yaml.WritePlan(opts.out, pf)
		})
		if err != nil {
			return out, fmt.Errorf("write plan: %w", err)
		}
	}
	return out, nil
}

func printResult(w io.Writer, task *planner.Task, res planner.Result) {
	fmt.Fprintf(w, "; domain %s problem %s\n", task.Domain, task.Problem)
	if res.Status != planner.StatusSolved {
		fmt.Fprintf(w, "; no plan found (%s) expanded=%d generated=%d elapsed=%s\n",
			res.Stats.Reason, res.Stats.Expanded, res.Stats.Generated, res.Stats.Elapsed.Round(time.Millisecond))
		return
	}
	fmt.Fprint(w, res.Plan.String())
	fmt.Fprintf(w, "; expanded=%d generated=%d elapsed=%s\n",
		res.Stats.Expanded, res.Stats.Generated, res.Stats.Elapsed.Round(time.Millisecond))
}

func planFile(runID string, task *planner.Task, res planner.Result) *yaml.PlanFile {
	pf := &yaml.PlanFile{
		RunID:     runID,
		Domain:    task.Domain,
		Problem:   task.Problem,
		Status:    string(res.Status),
		Reason:    string(res.Stats.Reason),
		Expanded:  res.Stats.Expanded,
		Generated: res.Stats.Generated,
	}
	if res.Plan != nil {
		pf.Cost = res.Plan.Cost
		pf.Makespan = res.Plan.Makespan
		for _, s := range res.Plan.Steps {
			pf.Steps = append(pf.Steps, yaml.PlanStep{Start: s.Start, Action: s.Name, Duration: s.Duration})
		}
	}
	return pf
}
