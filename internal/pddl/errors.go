package pddl

import (
	"errors"
	"fmt"
)

// Error kinds. Every ParseError wraps exactly one of these, so callers can
// classify failures with errors.Is.
var (
	ErrSyntax              = errors.New("syntax error")
	ErrUnsupported         = errors.New("unsupported construct")
	ErrUndeclaredType      = errors.New("undeclared type")
	ErrUndeclaredPredicate = errors.New("undeclared predicate")
	ErrUndeclaredFunction  = errors.New("undeclared function")
	ErrUndeclaredVariable  = errors.New("undeclared variable")
	ErrArityMismatch       = errors.New("arity mismatch")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrDuplicateType       = errors.New("duplicate type")
	ErrDuplicatePredicate  = errors.New("duplicate predicate")
	ErrDuplicateFunction   = errors.New("duplicate function")
	ErrDuplicateAction     = errors.New("duplicate action")
	ErrDuplicateObject     = errors.New("duplicate object")
	ErrUnknownObject       = errors.New("unknown object")
	ErrDomainMismatch      = errors.New("domain name mismatch")
	ErrTypeCycle           = errors.New("type hierarchy cycle")
	ErrInvalidDuration     = errors.New("invalid duration")
)

// ParseError locates a parse failure in the domain or problem text.
type ParseError struct {
	Kind   error
	Source string // "domain" or "problem"
	Line   int
	Col    int
	Symbol string
	Msg    string
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	loc := e.Source
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.Source, e.Line, e.Col)
	}
	msg := e.Kind.Error()
	if e.Symbol != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Symbol)
	}
	if e.Msg != "" {
		msg = msg + ": " + e.Msg
	}
	return loc + ": " + msg
}

func (e *ParseError) Unwrap() error { return e.Kind }

func (e *ParseError) FormatStderr() string {
	return fmt.Sprintf("error: %s\n", e.Error())
}

func (p *parser) errorf(kind error, at *Node, symbol, format string, args ...any) *ParseError {
	pe := &ParseError{Kind: kind, Source: p.source, Symbol: symbol, Msg: fmt.Sprintf(format, args...)}
	if at != nil {
		pe.Line, pe.Col = at.Line, at.Col
	}
	return pe
}
