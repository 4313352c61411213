package pddl

import (
	"strconv"

	"github.com/msageha/temporal_planner/internal/model"
)

// scope maps the variables visible in a formula to their types.
type scope map[string]string

var comparisonOps = map[string]bool{"<": true, "<=": true, "=": true, ">=": true, ">": true}

var numericEffectOps = map[string]bool{
	"assign": true, "increase": true, "decrease": true, "scale-up": true, "scale-down": true,
}

// condition parses a goal description. An empty list yields nil.
func (p *parser) condition(n *Node, sc scope) (*model.Formula, error) {
	if !n.IsList {
		return nil, p.errorf(ErrSyntax, n, n.Symbol, "expected a condition")
	}
	if len(n.List) == 0 {
		return nil, nil
	}
	head := n.Head()
	switch head {
	case "and", "or":
		f := &model.Formula{Kind: model.FormulaAnd}
		if head == "or" {
			f.Kind = model.FormulaOr
		}
		for _, c := range n.Args() {
			child, err := p.condition(c, sc)
			if err != nil {
				return nil, err
			}
			if child != nil {
				f.Children = append(f.Children, child)
			}
		}
		return f, nil
	case "not":
		if len(n.Args()) != 1 {
			return nil, p.errorf(ErrSyntax, n, "not", "takes exactly one argument")
		}
		child, err := p.condition(n.Args()[0], sc)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, p.errorf(ErrSyntax, n, "not", "empty negation")
		}
		return model.Not(child), nil
	case "imply", "exists", "forall", "preference":
		return nil, p.errorf(ErrUnsupported, n, head, "")
	case "at", "over":
		// a domain may declare a predicate with either name
		if _, declared := p.predicates[head]; !declared {
			return nil, p.errorf(ErrSyntax, n, head, "temporal qualifier outside a durative action condition")
		}
	case "":
		return nil, p.errorf(ErrSyntax, n, "", "expected a predicate or connective, got %s", n)
	}
	if comparisonOps[head] {
		return p.comparison(n, sc)
	}
	atom, err := p.atom(n, sc)
	if err != nil {
		return nil, err
	}
	return &model.Formula{Kind: model.FormulaAtom, Atom: atom}, nil
}

func (p *parser) comparison(n *Node, sc scope) (*model.Formula, error) {
	args := n.Args()
	if len(args) != 2 {
		return nil, p.errorf(ErrSyntax, n, n.Head(), "comparison takes two arguments")
	}
	if n.Head() == "=" && !args[0].IsList && !args[1].IsList && !isNumber(args[0].Symbol) && !isNumber(args[1].Symbol) {
		return nil, p.errorf(ErrUnsupported, n, "=", "object equality is not supported")
	}
	left, err := p.expr(args[0], sc, false)
	if err != nil {
		return nil, err
	}
	right, err := p.expr(args[1], sc, false)
	if err != nil {
		return nil, err
	}
	return &model.Formula{Kind: model.FormulaCompare, Compare: &model.Comparison{Op: n.Head(), Left: left, Right: right}}, nil
}

// atom validates a predicate use against its declaration.
func (p *parser) atom(n *Node, sc scope) (model.Atom, error) {
	name := n.Head()
	pred, ok := p.predicates[name]
	if !ok {
		return model.Atom{}, p.errorf(ErrUndeclaredPredicate, n, name, "")
	}
	args := n.Args()
	if len(args) != len(pred.Params) {
		return model.Atom{}, p.errorf(ErrArityMismatch, n, name, "declared with %d arguments, used with %d", len(pred.Params), len(args))
	}
	terms := make([]string, len(args))
	for i, a := range args {
		t, err := p.term(a, sc, pred.Params[i].Type)
		if err != nil {
			return model.Atom{}, err
		}
		terms[i] = t
	}
	return model.Atom{Predicate: name, Args: terms}, nil
}

// term resolves a variable or object and checks it against want.
func (p *parser) term(n *Node, sc scope, want string) (string, error) {
	if n.IsList {
		return "", p.errorf(ErrSyntax, n, "", "expected a variable or object, got %s", n)
	}
	var typ string
	if n.Symbol[0] == '?' {
		t, ok := sc[n.Symbol]
		if !ok {
			return "", p.errorf(ErrUndeclaredVariable, n, n.Symbol, "")
		}
		typ = t
	} else {
		t, ok := p.objects[n.Symbol]
		if !ok {
			return "", p.errorf(ErrUnknownObject, n, n.Symbol, "")
		}
		typ = t
	}
	if !p.isSubtype(typ, want) {
		return "", p.errorf(ErrTypeMismatch, n, n.Symbol, "has type %s, expected %s", typ, want)
	}
	return n.Symbol, nil
}

// expr parses a numeric expression. ?duration is accepted when allowDuration.
func (p *parser) expr(n *Node, sc scope, allowDuration bool) (*model.Expr, error) {
	if !n.IsList {
		if isNumber(n.Symbol) {
			v, _ := strconv.ParseFloat(n.Symbol, 64)
			return model.Const(v), nil
		}
		if n.Symbol == "?duration" {
			if !allowDuration {
				return nil, p.errorf(ErrSyntax, n, n.Symbol, "?duration is only valid in durative actions")
			}
			return &model.Expr{Kind: model.ExprDuration}, nil
		}
		return nil, p.errorf(ErrSyntax, n, n.Symbol, "expected a number or (function ...)")
	}
	head := n.Head()
	switch head {
	case "+", "-", "*", "/":
		args := n.Args()
		if head == "-" && len(args) == 1 {
			inner, err := p.expr(args[0], sc, allowDuration)
			if err != nil {
				return nil, err
			}
			return &model.Expr{Kind: model.ExprNegate, Left: inner}, nil
		}
		if len(args) < 2 {
			return nil, p.errorf(ErrSyntax, n, head, "needs at least two operands")
		}
		acc, err := p.expr(args[0], sc, allowDuration)
		if err != nil {
			return nil, err
		}
		for _, a := range args[1:] {
			right, err := p.expr(a, sc, allowDuration)
			if err != nil {
				return nil, err
			}
			acc = &model.Expr{Kind: model.ExprBinary, Op: head, Left: acc, Right: right}
		}
		return acc, nil
	case "":
		return nil, p.errorf(ErrSyntax, n, "", "expected a numeric expression, got %s", n)
	case "total-time":
		if len(n.Args()) == 0 {
			return &model.Expr{Kind: model.ExprFluent, Fluent: model.Atom{Predicate: head}}, nil
		}
	}
	fl, err := p.fluent(n, sc)
	if err != nil {
		return nil, err
	}
	return &model.Expr{Kind: model.ExprFluent, Fluent: fl}, nil
}

// fluent validates a function application against its declaration.
func (p *parser) fluent(n *Node, sc scope) (model.Atom, error) {
	name := n.Head()
	fn, ok := p.functions[name]
	if !ok {
		return model.Atom{}, p.errorf(ErrUndeclaredFunction, n, name, "")
	}
	args := n.Args()
	if len(args) != len(fn.Params) {
		return model.Atom{}, p.errorf(ErrArityMismatch, n, name, "declared with %d arguments, used with %d", len(fn.Params), len(args))
	}
	terms := make([]string, len(args))
	for i, a := range args {
		t, err := p.term(a, sc, fn.Params[i].Type)
		if err != nil {
			return model.Atom{}, err
		}
		terms[i] = t
	}
	return model.Atom{Predicate: name, Args: terms}, nil
}

// effectList parses an untimed effect.
func (p *parser) effectList(n *Node, sc scope, allowDuration bool) ([]model.Effect, error) {
	if !n.IsList {
		return nil, p.errorf(ErrSyntax, n, n.Symbol, "expected an effect")
	}
	if len(n.List) == 0 {
		return nil, nil
	}
	head := n.Head()
	switch head {
	case "and":
		var out []model.Effect
		for _, c := range n.Args() {
			effs, err := p.effectList(c, sc, allowDuration)
			if err != nil {
				return nil, err
			}
			out = append(out, effs...)
		}
		return out, nil
	case "not":
		if len(n.Args()) != 1 || !n.Args()[0].IsList {
			return nil, p.errorf(ErrSyntax, n, "not", "expected (not (predicate ...))")
		}
		atom, err := p.atom(n.Args()[0], sc)
		if err != nil {
			return nil, err
		}
		return []model.Effect{{Kind: model.EffectDelete, Atom: atom}}, nil
	case "when", "forall":
		return nil, p.errorf(ErrUnsupported, n, head, "")
	case "at", "over":
		// a domain may declare a predicate with either name
		if _, declared := p.predicates[head]; !declared {
			return nil, p.errorf(ErrSyntax, n, head, "temporal qualifier outside a durative action effect")
		}
	case "":
		return nil, p.errorf(ErrSyntax, n, "", "expected an effect, got %s", n)
	}
	if numericEffectOps[head] {
		args := n.Args()
		if len(args) != 2 || !args[0].IsList {
			return nil, p.errorf(ErrSyntax, n, head, "expected (%s (function ...) expression)", head)
		}
		fl, err := p.fluent(args[0], sc)
		if err != nil {
			return nil, err
		}
		e, err := p.expr(args[1], sc, allowDuration)
		if err != nil {
			return nil, err
		}
		return []model.Effect{{Kind: model.EffectNumeric, Op: head, Fluent: fl, Expr: e}}, nil
	}
	atom, err := p.atom(n, sc)
	if err != nil {
		return nil, err
	}
	return []model.Effect{{Kind: model.EffectAdd, Atom: atom}}, nil
}

// timedParts splits (and (at start X) (over all Y) ...) into its qualified
// members. Each returned pair is (qualifier, body).
func (p *parser) timedParts(n *Node, what string) ([][2]*Node, []string, error) {
	if !n.IsList {
		return nil, nil, p.errorf(ErrSyntax, n, n.Symbol, "expected a timed %s", what)
	}
	if len(n.List) == 0 {
		return nil, nil, nil
	}
	if n.Head() == "and" {
		var parts [][2]*Node
		var quals []string
		for _, c := range n.Args() {
			ps, qs, err := p.timedParts(c, what)
			if err != nil {
				return nil, nil, err
			}
			parts = append(parts, ps...)
			quals = append(quals, qs...)
		}
		return parts, quals, nil
	}
	if qual, ok := qualifier(n); ok {
		return [][2]*Node{{n, n.Args()[1]}}, []string{qual}, nil
	}
	return nil, nil, p.errorf(ErrSyntax, n, n.Head(), "%s of a durative action must be qualified with at start, at end or over all", what)
}

// qualifier reports whether n is exactly (at start X), (at end X) or
// (over all X). Anything else headed by at or over is a plain atom.
func qualifier(n *Node) (string, bool) {
	args := n.Args()
	if len(args) != 2 || args[0].IsList {
		return "", false
	}
	qual := n.Head() + " " + args[0].Symbol
	switch qual {
	case "at start", "at end", "over all":
		return qual, true
	}
	return "", false
}

func (p *parser) timedConditions(n *Node, sc scope, a *model.Action) error {
	parts, quals, err := p.timedParts(n, "condition")
	if err != nil {
		return err
	}
	for i, part := range parts {
		if quals[i] == "over all" && part[1].IsList && len(part[1].List) == 0 {
			continue
		}
		f, err := p.condition(part[1], sc)
		if err != nil {
			return err
		}
		switch quals[i] {
		case "at start":
			a.CondStart = append(a.CondStart, f.Conjuncts()...)
		case "over all":
			a.CondOverAll = append(a.CondOverAll, f.Conjuncts()...)
		case "at end":
			a.CondEnd = append(a.CondEnd, f.Conjuncts()...)
		}
	}
	return nil
}

func (p *parser) timedEffects(n *Node, sc scope, a *model.Action) error {
	parts, quals, err := p.timedParts(n, "effect")
	if err != nil {
		return err
	}
	for i, part := range parts {
		if quals[i] == "over all" {
			return p.errorf(ErrUnsupported, part[0], "over all", "continuous effects are not supported")
		}
		effs, err := p.effectList(part[1], sc, true)
		if err != nil {
			return err
		}
		if quals[i] == "at start" {
			a.EffStart = append(a.EffStart, effs...)
		} else {
			a.EffEnd = append(a.EffEnd, effs...)
		}
	}
	return nil
}

// duration parses (= ?duration e), (<= ?duration e), (>= ?duration e) or a
// conjunction of them. Constant durations must be positive.
func (p *parser) duration(n *Node, sc scope) ([]model.DurationConstraint, error) {
	if !n.IsList || len(n.List) == 0 {
		return nil, p.errorf(ErrInvalidDuration, n, n.Symbol, "expected (= ?duration <expression>)")
	}
	if n.Head() == "and" {
		var out []model.DurationConstraint
		for _, c := range n.Args() {
			cs, err := p.duration(c, sc)
			if err != nil {
				return nil, err
			}
			out = append(out, cs...)
		}
		if len(out) == 0 {
			return nil, p.errorf(ErrInvalidDuration, n, "and", "empty duration constraint")
		}
		return out, nil
	}
	op := model.DurationOp(n.Head())
	if op != model.DurationEq && op != model.DurationLE && op != model.DurationGE {
		if n.Head() == "at" {
			return nil, p.errorf(ErrUnsupported, n, "at", "timed duration constraints are not supported")
		}
		return nil, p.errorf(ErrInvalidDuration, n, n.Head(), "expected =, <= or >=")
	}
	args := n.Args()
	if len(args) != 2 || args[0].IsList || args[0].Symbol != "?duration" {
		return nil, p.errorf(ErrInvalidDuration, n, string(op), "expected (%s ?duration <expression>)", op)
	}
	e, err := p.expr(args[1], sc, false)
	if err != nil {
		return nil, err
	}
	if v, ok := e.Constant(); ok && op != model.DurationGE && v <= 0 {
		return nil, p.errorf(ErrInvalidDuration, args[1], args[1].String(), "duration must be positive")
	}
	return []model.DurationConstraint{{Op: op, Expr: e}}, nil
}

// isNumber accepts decimal literals only; ParseFloat alone would also take
// symbols such as "inf" or "nan".
func isNumber(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if c == '-' || c == '+' {
		if len(s) == 1 {
			return false
		}
		c = s[1]
	}
	if (c < '0' || c > '9') && c != '.' {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
