package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/msageha/temporal_planner/internal/yaml"
	"github.com/msageha/temporal_planner/planner"
)

// quarantineDir holds corrupt plan files moved aside by show.
const quarantineDir = ".quarantine"

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan.yaml>",
		Short: "Print a plan file written by solve --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			p, err := yaml.LoadPlan(filepath.Join(filepath.Dir(path), quarantineDir), path)
			if err != nil {
				return &exitError{code: exitCode(planner.CodeFileError), err: err}
			}
			printPlanFile(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func printPlanFile(w io.Writer, p *yaml.PlanFile) {
	fmt.Fprintf(w, "; domain %s problem %s run %s\n", p.Domain, p.Problem, p.RunID)
	if p.Status != string(planner.StatusSolved) {
		fmt.Fprintf(w, "; no plan found (%s)\n", p.Reason)
		return
	}
	for _, s := range p.Steps {
		if s.Duration > 0 {
			fmt.Fprintf(w, "%.3f: %s [%.3f]\n", s.Start, s.Action, s.Duration)
		} else {
			fmt.Fprintf(w, "%.3f: %s\n", s.Start, s.Action)
		}
	}
	fmt.Fprintf(w, "; cost %.3f makespan %.3f\n", p.Cost, p.Makespan)
}
