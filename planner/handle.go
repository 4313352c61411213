package planner

import (
	"context"
	"sync"

	"github.com/msageha/temporal_planner/internal/search"
)

// Handle is an opaque planner instance for callers that only deal in
// result codes. A nil *Handle is valid and reports CodeInvalidHandle.
type Handle struct {
	mu      sync.Mutex
	engine  *search.Engine
	last    Result
	lastErr error
}

func NewHandle(cfg Config, opts ...Option) *Handle {
	return &Handle{engine: search.New(cfg, opts...)}
}

// Check parses the inputs without solving.
func (h *Handle) Check(domainText, problemText string) ResultCode {
	if h == nil {
		return CodeInvalidHandle
	}
	if _, err := Parse(domainText, problemText); err != nil {
		h.record(Result{Status: StatusFailed}, err)
		return CodeParseError
	}
	return CodeSuccess
}

// SolveContent returns the result code and the number of plan steps.
func (h *Handle) SolveContent(ctx context.Context, domainText, problemText string) (ResultCode, int) {
	if h == nil {
		return CodeInvalidHandle, 0
	}
	task, err := Parse(domainText, problemText)
	if err != nil {
		return h.record(Result{Status: StatusFailed}, err)
	}
	return h.record(h.engine.Solve(ctx, task), nil)
}

func (h *Handle) SolveFiles(ctx context.Context, domainPath, problemPath string) (ResultCode, int) {
	if h == nil {
		return CodeInvalidHandle, 0
	}
	domain, err := readFile(domainPath)
	if err != nil {
		return h.record(Result{Status: StatusFailed}, err)
	}
	problem, err := readFile(problemPath)
	if err != nil {
		return h.record(Result{Status: StatusFailed}, err)
	}
	return h.SolveContent(ctx, domain, problem)
}

// Last returns the result and error of the most recent call.
func (h *Handle) Last() (Result, error) {
	if h == nil {
		return Result{}, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.lastErr
}

func (h *Handle) record(res Result, err error) (ResultCode, int) {
	h.mu.Lock()
	h.last, h.lastErr = res, err
	h.mu.Unlock()
	return Code(res, err), res.Plan.Len()
}
