package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/notify"
	"github.com/msageha/temporal_planner/internal/watch"
	"github.com/msageha/temporal_planner/planner"
)

func newWatchCmd() *cobra.Command {
	opts := &solveOptions{}
	var desktop bool
	cmd := &cobra.Command{
		Use:   "watch <domain.pddl> <problem.pddl>",
		Short: "Solve, then solve again whenever either input file changes",
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

			var send notify.Sender
			if desktop {
				send = notify.Default()
			}
			debounce := time.Duration(cfg.Watch.DebounceSec * float64(time.Second))
			w, err := watch.New(args, debounce, newLogger(cmd.ErrOrStderr()), model.ParseLogLevel(cfg.Logging.Level))
			if err != nil {
				return err
			}
			return w.Run(ctx, func(jobCtx context.Context) {
				resolve(jobCtx, cmd, cfg, opts, send, args[0], args[1])
			})
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&desktop, "notify", false, "send a desktop notification after each solve")
	return cmd
}

// resolve runs one solve for watch. Failures are reported and the watch
// continues.
func resolve(ctx context.Context, cmd *cobra.Command, cfg model.Config, opts *solveOptions, send notify.Sender, domainPath, problemPath string) {
	stderr := cmd.ErrOrStderr()
	out, err := solveOnce(ctx, cmd.OutOrStdout(), stderr, cfg, opts, domainPath, problemPath)
	if ctx.Err() != nil {
		// superseded by a newer change or stopped
		return
	}
	o := notify.Outcome{Problem: problemPath}
	if out.task != nil {
		o.Problem = out.task.Problem
	}
	if err != nil {
		var pe *planner.ParseError
		if errors.As(err, &pe) {
			fmt.Fprint(stderr, pe.FormatStderr())
		} else {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		o.Reason = err.Error()
	} else {
		o.Solved = out.result.Status == planner.StatusSolved
		o.Reason = string(out.result.Stats.Reason)
		if o.Solved {
			o.Steps = out.result.Plan.Len()
			o.Makespan = out.result.Plan.Makespan
		}
	}
	if err := notify.Report(send, o); err != nil {
		fmt.Fprintf(stderr, "warning: notify: %v\n", err)
	}
}
