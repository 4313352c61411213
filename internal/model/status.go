package model

import "strings"

// Status is the outcome of a search run.
type Status string

const (
	StatusSolved Status = "solved"
	StatusFailed Status = "failed"
)

// FailureReason distinguishes why a search returned StatusFailed. Callers of
// the public API only see StatusFailed; the reason is kept in search stats.
type FailureReason string

const (
	ReasonNone        FailureReason = ""
	ReasonExhausted   FailureReason = "exhausted"
	ReasonNodeBudget  FailureReason = "node_budget"
	ReasonDeadline    FailureReason = "deadline"
	ReasonCancelled   FailureReason = "cancelled"
	ReasonInitDeadEnd FailureReason = "initial_dead_end"
	ReasonInitInvalid FailureReason = "initial_state_invalid"
)

// Phase identifies which end of an action a happening is.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseEnd   Phase = "end"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	}
	return "INFO"
}
