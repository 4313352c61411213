package pddl

import (
	"github.com/msageha/temporal_planner/internal/model"
)

// domainOrder is the processing order of domain sections; later sections
// refer to names declared by earlier ones regardless of textual order.
var domainOrder = []string{":requirements", ":types", ":constants", ":predicates", ":functions"}

func (p *parser) parseDomain(text string) error {
	p.source = "domain"
	root, err := p.readTree(text)
	if err != nil {
		return err
	}
	name, secs, err := p.sections(root, "domain")
	if err != nil {
		return err
	}
	p.task.Domain = name

	byKey := map[string]*Node{}
	var actions []*Node
	for _, s := range secs {
		key := s.Head()
		switch key {
		case ":action", ":durative-action":
			actions = append(actions, s)
		case ":requirements", ":types", ":constants", ":predicates", ":functions":
			if _, dup := byKey[key]; dup {
				return p.errorf(ErrSyntax, s, key, "section appears twice")
			}
			byKey[key] = s
		default:
			return p.errorf(ErrUnsupported, s, key, "unknown domain section")
		}
	}

	for _, key := range domainOrder {
		s, ok := byKey[key]
		if !ok {
			continue
		}
		var err error
		switch key {
		case ":requirements":
			err = p.requirements(s)
		case ":types":
			err = p.declareTypes(s)
		case ":constants":
			err = p.declareObjects(s)
		case ":predicates":
			err = p.declarePredicates(s)
		case ":functions":
			err = p.declareFunctions(s)
		}
		if err != nil {
			return err
		}
	}

	for _, s := range actions {
		a, err := p.action(s)
		if err != nil {
			return err
		}
		p.task.Actions = append(p.task.Actions, a)
	}
	return nil
}

func (p *parser) requirements(s *Node) error {
	for _, r := range s.Args() {
		if r.IsList || len(r.Symbol) == 0 || r.Symbol[0] != ':' {
			return p.errorf(ErrSyntax, r, r.Symbol, "expected a :requirement")
		}
		p.task.Requirements = append(p.task.Requirements, r.Symbol)
	}
	return nil
}

func (p *parser) declareTypes(s *Node) error {
	typed, err := p.typedList(s.Args(), false)
	if err != nil {
		return err
	}
	var names []string
	nodes := map[string]*Node{}
	for _, t := range typed {
		if t.name == model.RootType {
			continue
		}
		if _, dup := p.types[t.name]; dup {
			return p.errorf(ErrDuplicateType, t.node, t.name, "")
		}
		p.types[t.name] = t.typ
		nodes[t.name] = t.node
		names = append(names, t.name)
	}
	// Parents that only appear after '-' are declared implicitly.
	for _, t := range typed {
		if t.typ == model.RootType {
			continue
		}
		if _, ok := p.types[t.typ]; !ok {
			p.types[t.typ] = model.RootType
			names = append(names, t.typ)
		}
	}
	sorted, cycle := sortTypes(names, p.types)
	if cycle != nil {
		return p.errorf(ErrTypeCycle, nodes[cycle[0]], cycle[0], "%s", formatCycle(cycle))
	}
	for _, n := range sorted {
		p.task.Types = append(p.task.Types, model.Type{Name: n, Parent: p.types[n]})
	}
	return nil
}

// declareObjects handles both domain :constants and problem :objects.
func (p *parser) declareObjects(s *Node) error {
	typed, err := p.typedList(s.Args(), false)
	if err != nil {
		return err
	}
	for _, t := range typed {
		if err := p.checkType(t.typ, t.node); err != nil {
			return err
		}
		if _, dup := p.objects[t.name]; dup {
			return p.errorf(ErrDuplicateObject, t.node, t.name, "")
		}
		p.objects[t.name] = t.typ
		p.task.Objects = append(p.task.Objects, model.Object{Name: t.name, Type: t.typ})
	}
	return nil
}

func (p *parser) declarePredicates(s *Node) error {
	for _, d := range s.Args() {
		name, params, err := p.signature(d)
		if err != nil {
			return err
		}
		if _, dup := p.predicates[name]; dup {
			return p.errorf(ErrDuplicatePredicate, d, name, "")
		}
		pred := model.Predicate{Name: name, Params: params}
		p.predicates[name] = pred
		p.task.Predicates = append(p.task.Predicates, pred)
	}
	return nil
}

func (p *parser) declareFunctions(s *Node) error {
	args := s.Args()
	for i := 0; i < len(args); i++ {
		d := args[i]
		if !d.IsList && d.Symbol == "-" {
			if i+1 >= len(args) || args[i+1].IsList {
				return p.errorf(ErrSyntax, d, "-", "missing function type")
			}
			if args[i+1].Symbol != "number" {
				return p.errorf(ErrUnsupported, args[i+1], args[i+1].Symbol, "only numeric functions are supported")
			}
			i++
			continue
		}
		name, params, err := p.signature(d)
		if err != nil {
			return err
		}
		if _, dup := p.functions[name]; dup {
			return p.errorf(ErrDuplicateFunction, d, name, "")
		}
		fn := model.Function{Name: name, Params: params}
		p.functions[name] = fn
		p.task.Functions = append(p.task.Functions, fn)
	}
	return nil
}

// signature reads (name ?a - t ...).
func (p *parser) signature(d *Node) (string, []model.Param, error) {
	if !d.IsList || d.Head() == "" {
		return "", nil, p.errorf(ErrSyntax, d, d.Symbol, "expected (name ?param - type ...)")
	}
	params, _, err := p.params(&Node{IsList: true, List: d.Args(), Line: d.Line, Col: d.Col})
	if err != nil {
		return "", nil, err
	}
	return d.Head(), params, nil
}

func (p *parser) action(s *Node) (*model.Action, error) {
	durative := s.Head() == ":durative-action"
	args := s.Args()
	if len(args) == 0 || args[0].IsList {
		return nil, p.errorf(ErrSyntax, s, s.Head(), "missing action name")
	}
	name := args[0].Symbol
	if p.actions[name] {
		return nil, p.errorf(ErrDuplicateAction, args[0], name, "")
	}
	p.actions[name] = true

	fields := map[string]*Node{}
	rest := args[1:]
	if len(rest)%2 != 0 {
		return nil, p.errorf(ErrSyntax, s, name, "action fields must be :keyword value pairs")
	}
	allowed := map[string]bool{":parameters": true, ":precondition": !durative, ":effect": true,
		":duration": durative, ":condition": durative}
	for i := 0; i < len(rest); i += 2 {
		key := rest[i]
		if key.IsList || !allowed[key.Symbol] {
			return nil, p.errorf(ErrUnsupported, key, key.Symbol, "unexpected field in action %s", name)
		}
		if _, dup := fields[key.Symbol]; dup {
			return nil, p.errorf(ErrSyntax, key, key.Symbol, "field appears twice in action %s", name)
		}
		fields[key.Symbol] = rest[i+1]
	}

	a := &model.Action{Name: name, Durative: durative}
	sc := scope{}
	if n, ok := fields[":parameters"]; ok {
		params, psc, err := p.params(n)
		if err != nil {
			return nil, err
		}
		a.Params, sc = params, psc
	}

	if !durative {
		if n, ok := fields[":precondition"]; ok {
			f, err := p.condition(n, sc)
			if err != nil {
				return nil, err
			}
			a.CondStart = f.Conjuncts()
		}
		if n, ok := fields[":effect"]; ok {
			effs, err := p.effectList(n, sc, false)
			if err != nil {
				return nil, err
			}
			a.EffStart = effs
		}
		return a, nil
	}

	dn, ok := fields[":duration"]
	if !ok {
		return nil, p.errorf(ErrInvalidDuration, s, name, "durative action without :duration")
	}
	dur, err := p.duration(dn, sc)
	if err != nil {
		return nil, err
	}
	a.Duration = dur
	if n, ok := fields[":condition"]; ok {
		if err := p.timedConditions(n, sc, a); err != nil {
			return nil, err
		}
	}
	if n, ok := fields[":effect"]; ok {
		if err := p.timedEffects(n, sc, a); err != nil {
			return nil, err
		}
	}
	return a, nil
}
