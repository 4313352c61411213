package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/statespace"
	"github.com/msageha/temporal_planner/planner"
)

func newParseCmd() *cobra.Command {
	var ground bool
	cmd := &cobra.Command{
		Use:   "parse <domain.pddl> <problem.pddl>",
		Short: "Parse and validate a domain and problem, then print a summary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			texts := make([]string, 2)
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return &exitError{code: exitCode(planner.CodeFileError), err: &planner.FileError{Path: path, Err: err}}
				}
				texts[i] = string(data)
			}
			task, err := planner.Parse(texts[0], texts[1])
			if err != nil {
				return &exitError{code: exitCode(planner.CodeParseError), err: err}
			}
			return printTask(cmd.OutOrStdout(), task, ground)
		},
	}
	cmd.Flags().BoolVar(&ground, "ground", false, "also ground the task and print instance counts")
	return cmd
}

func printTask(w io.Writer, task *model.Task, ground bool) error {
	fmt.Fprintf(w, "domain:     %s\n", task.Domain)
	fmt.Fprintf(w, "problem:    %s\n", task.Problem)
	fmt.Fprintf(w, "types:      %d\n", len(task.Types))
	fmt.Fprintf(w, "predicates: %d\n", len(task.Predicates))
	fmt.Fprintf(w, "functions:  %d\n", len(task.Functions))
	fmt.Fprintf(w, "objects:    %d\n", len(task.Objects))
	fmt.Fprintf(w, "init:       %d facts, %d fluents\n", len(task.Init), len(task.InitFluents))
	fmt.Fprintf(w, "goal:       %s\n", task.Goal)

	var table *statespace.Table
	if ground {
		var err error
		if table, err = statespace.Ground(task); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "ACTION\tPARAMS\tDURATION\tCOND start/all/end\tEFF start/end"
	if ground {
		header += "\tGROUND"
	}
	fmt.Fprintln(tw, header)
	for _, a := range task.Actions {
		params := make([]string, len(a.Params))
		for i, p := range a.Params {
			params[i] = p.Name + " - " + p.Type
		}
		row := fmt.Sprintf("%s\t%s\t%s\t%d/%d/%d\t%d/%d",
			a.Name, strings.Join(params, " "), durationText(a),
			len(a.CondStart), len(a.CondOverAll), len(a.CondEnd), len(a.EffStart), len(a.EffEnd))
		if ground {
			row += fmt.Sprintf("\t%d", table.Count(a.Name))
		}
		fmt.Fprintln(tw, row)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if ground {
		fmt.Fprintf(w, "ground actions: %d, facts: %d, fluents: %d\n", len(table.Actions), table.NumFacts(), table.NumFluents())
	}
	return nil
}

func durationText(a *model.Action) string {
	if !a.Durative {
		return "instant"
	}
	if d, ok := a.ConstantDuration(); ok {
		return fmt.Sprintf("%g", d)
	}
	parts := make([]string, len(a.Duration))
	for i, d := range a.Duration {
		parts[i] = fmt.Sprintf("(%s ?duration %s)", d.Op, d.Expr)
	}
	return strings.Join(parts, " ")
}
