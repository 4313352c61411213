package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/planner"
)

const version = "0.3.0"

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// Exit codes follow planner.ResultCode with success mapped to 0.
func exitCode(code planner.ResultCode) int {
	switch code {
	case planner.CodeSuccess, planner.CodeSolutionFound:
		return 0
	}
	return int(code)
}

var (
	configPath string
	logLevel   string
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "tplanner",
		Short:         "Temporal PDDL planner",
		Long:          `tplanner parses a PDDL domain and problem and searches for a time-stamped plan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug|info|warn|error)")

	root.AddCommand(newSolveCmd(), newParseCmd(), newWatchCmd(), newShowCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tplanner %s\n", version)
		},
	}
}

// loadConfig applies --config and --log-level on top of the defaults.
func loadConfig() (model.Config, error) {
	cfg := model.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = model.LoadConfig(configPath); err != nil {
			var verrs *model.ValidationErrors
			if errors.As(err, &verrs) {
				return cfg, &exitError{code: 1, err: err}
			}
			return cfg, &exitError{code: exitCode(planner.CodeFileError), err: err}
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if verrs := cfg.Validate(); verrs != nil {
			return cfg, &exitError{code: 1, err: verrs}
		}
	}
	return cfg, nil
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		var verrs *model.ValidationErrors
		var pe *planner.ParseError
		switch {
		case errors.As(err, &verrs):
			fmt.Fprint(os.Stderr, verrs.FormatStderr())
		case errors.As(err, &pe):
			fmt.Fprint(os.Stderr, pe.FormatStderr())
		default:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}
