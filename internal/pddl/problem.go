package pddl

import (
	"strconv"

	"github.com/msageha/temporal_planner/internal/model"
)

func (p *parser) parseProblem(text string) error {
	p.source = "problem"
	root, err := p.readTree(text)
	if err != nil {
		return err
	}
	name, secs, err := p.sections(root, "problem")
	if err != nil {
		return err
	}
	p.task.Problem = name

	byKey := map[string]*Node{}
	for _, s := range secs {
		key := s.Head()
		switch key {
		case ":domain", ":requirements", ":objects", ":init", ":goal", ":metric":
		default:
			return p.errorf(ErrUnsupported, s, key, "unknown problem section")
		}
		if _, dup := byKey[key]; dup {
			return p.errorf(ErrSyntax, s, key, "section appears twice")
		}
		byKey[key] = s
	}

	d, ok := byKey[":domain"]
	if !ok {
		return p.errorf(ErrSyntax, root, name, "problem does not name its domain")
	}
	if len(d.Args()) != 1 || d.Args()[0].IsList {
		return p.errorf(ErrSyntax, d, ":domain", "expected (:domain <name>)")
	}
	if got := d.Args()[0].Symbol; got != p.task.Domain {
		return p.errorf(ErrDomainMismatch, d.Args()[0], got, "problem %s is for domain %q, parsed domain is %q", name, got, p.task.Domain)
	}

	if s, ok := byKey[":requirements"]; ok {
		if err := p.requirements(s); err != nil {
			return err
		}
	}
	if s, ok := byKey[":objects"]; ok {
		if err := p.declareObjects(s); err != nil {
			return err
		}
	}
	if s, ok := byKey[":init"]; ok {
		if err := p.init(s); err != nil {
			return err
		}
	}
	g, ok := byKey[":goal"]
	if !ok {
		return p.errorf(ErrSyntax, root, name, "problem has no :goal")
	}
	if len(g.Args()) != 1 {
		return p.errorf(ErrSyntax, g, ":goal", "expected exactly one goal formula")
	}
	goal, err := p.condition(g.Args()[0], nil)
	if err != nil {
		return err
	}
	p.task.Goal = goal

	if s, ok := byKey[":metric"]; ok {
		if err := p.metric(s); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) init(s *Node) error {
	seen := map[string]bool{}
	for _, n := range s.Args() {
		if !n.IsList || n.Head() == "" {
			return p.errorf(ErrSyntax, n, n.Symbol, "expected an initial fact")
		}
		switch n.Head() {
		case "=":
			fv, err := p.initFluent(n)
			if err != nil {
				return err
			}
			key := model.Atom{Predicate: fv.Function, Args: fv.Args}.String()
			if seen[key] {
				return p.errorf(ErrSyntax, n, key, "fluent initialised twice")
			}
			seen[key] = true
			p.task.InitFluents = append(p.task.InitFluents, fv)
			continue
		case "at":
			if args := n.Args(); len(args) == 2 && !args[0].IsList && isNumber(args[0].Symbol) {
				return p.errorf(ErrUnsupported, n, "at", "timed initial literals are not supported")
			}
		case "not":
			// Closed world: negative initial facts carry no information.
			continue
		}
		atom, err := p.atom(n, nil)
		if err != nil {
			return err
		}
		if key := atom.String(); !seen[key] {
			seen[key] = true
			p.task.Init = append(p.task.Init, model.GroundAtom{Predicate: atom.Predicate, Args: atom.Args})
		}
	}
	return nil
}

func (p *parser) initFluent(n *Node) (model.FluentValue, error) {
	args := n.Args()
	if len(args) != 2 || !args[0].IsList || args[1].IsList || !isNumber(args[1].Symbol) {
		return model.FluentValue{}, p.errorf(ErrSyntax, n, "=", "expected (= (function ...) <number>)")
	}
	fl, err := p.fluent(args[0], nil)
	if err != nil {
		return model.FluentValue{}, err
	}
	v, _ := strconv.ParseFloat(args[1].Symbol, 64)
	return model.FluentValue{Function: fl.Predicate, Args: fl.Args, Value: v}, nil
}

func (p *parser) metric(s *Node) error {
	args := s.Args()
	if len(args) != 2 || args[0].IsList || (args[0].Symbol != "minimize" && args[0].Symbol != "maximize") {
		return p.errorf(ErrSyntax, s, ":metric", "expected (:metric minimize|maximize <expression>)")
	}
	e, err := p.expr(args[1], nil, false)
	if err != nil {
		return err
	}
	p.task.Metric = &model.Metric{Minimize: args[0].Symbol == "minimize", Expr: e}
	return nil
}
