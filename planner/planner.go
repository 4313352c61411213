// Package planner is the public entry point: parse PDDL text into a task
// and search it for a time-stamped plan.
package planner

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/msageha/temporal_planner/internal/events"
	"github.com/msageha/temporal_planner/internal/model"
	"github.com/msageha/temporal_planner/internal/pddl"
	"github.com/msageha/temporal_planner/internal/search"
)

type (
	Task       = model.Task
	Config     = model.Config
	Status     = model.Status
	Result     = search.Result
	Stats      = search.Stats
	Plan       = search.Plan
	Step       = search.Step
	ParseError = pddl.ParseError
	Option     = search.Option
	Publisher  = events.Publisher
)

const (
	StatusSolved = model.StatusSolved
	StatusFailed = model.StatusFailed
)

var (
	DefaultConfig = model.DefaultConfig
	LoadConfig    = model.LoadConfig
	WithLogger    = search.WithLogger
	WithPublisher = search.WithPublisher
)

// FileError reports an input file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// Parse builds a task from domain and problem text. Errors are *ParseError.
func Parse(domainText, problemText string) (*Task, error) {
	return pddl.Parse(domainText, problemText)
}

// Solve searches task with cfg. It never fails with an error; a run that
// finds no plan has StatusFailed.
func Solve(ctx context.Context, task *Task, cfg Config, opts ...Option) Result {
	return search.New(cfg, opts...).Solve(ctx, task)
}

func SolveFromText(ctx context.Context, domainText, problemText string, cfg Config, opts ...Option) (Result, error) {
	task, err := Parse(domainText, problemText)
	if err != nil {
		return Result{Status: StatusFailed}, err
	}
	return Solve(ctx, task, cfg, opts...), nil
}

// SolveFromPaths reads both files and solves them. Read failures are
// *FileError.
func SolveFromPaths(ctx context.Context, domainPath, problemPath string, cfg Config, opts ...Option) (Result, error) {
	domain, err := readFile(domainPath)
	if err != nil {
		return Result{Status: StatusFailed}, err
	}
	problem, err := readFile(problemPath)
	if err != nil {
		return Result{Status: StatusFailed}, err
	}
	return SolveFromText(ctx, domain, problem, cfg, opts...)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &FileError{Path: path, Err: err}
	}
	return string(data), nil
}

// ResultCode is the fixed integer outcome used across foreign boundaries.
type ResultCode int

const (
	CodeSuccess ResultCode = iota
	CodeSolutionFound
	CodeNoSolution
	CodeParseError
	CodeFileError
	CodeInvalidHandle
)

func (c ResultCode) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeSolutionFound:
		return "solution_found"
	case CodeNoSolution:
		return "no_solution"
	case CodeParseError:
		return "parse_error"
	case CodeFileError:
		return "file_error"
	case CodeInvalidHandle:
		return "invalid_handle"
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Code maps the outcome of a Solve* call onto a ResultCode.
func Code(res Result, err error) ResultCode {
	var fe *FileError
	var pe *ParseError
	switch {
	case errors.As(err, &fe):
		return CodeFileError
	case errors.As(err, &pe):
		return CodeParseError
	case err != nil:
		return CodeNoSolution
	case res.Status == StatusSolved:
		return CodeSolutionFound
	}
	return CodeNoSolution
}
