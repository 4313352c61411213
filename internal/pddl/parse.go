// Package pddl parses PDDL domain and problem text into a model.Task.
//
// The supported fragment covers :strips, :typing, :negative-preconditions,
// :disjunctive-preconditions, :numeric-fluents and :durative-actions.
// Quantifiers, conditional effects and timed initial literals are rejected
// with ErrUnsupported.
package pddl

import (
	"github.com/msageha/temporal_planner/internal/model"
)

type parser struct {
	source     string
	task       *model.Task
	types      map[string]string // type -> parent
	predicates map[string]model.Predicate
	functions  map[string]model.Function
	objects    map[string]string // object -> type
	actions    map[string]bool
}

func newParser() *parser {
	return &parser{
		task:       &model.Task{},
		types:      map[string]string{},
		predicates: map[string]model.Predicate{},
		functions:  map[string]model.Function{},
		objects:    map[string]string{},
		actions:    map[string]bool{},
	}
}

// Parse builds a task from domain and problem text. The returned error is
// always a *ParseError.
func Parse(domainText, problemText string) (*model.Task, error) {
	p := newParser()
	if err := p.parseDomain(domainText); err != nil {
		return nil, err
	}
	if err := p.parseProblem(problemText); err != nil {
		return nil, err
	}
	return p.task, nil
}

// ParseDomain parses a domain on its own. The task has no objects beyond
// the domain constants, no initial state and no goal.
func ParseDomain(domainText string) (*model.Task, error) {
	p := newParser()
	if err := p.parseDomain(domainText); err != nil {
		return nil, err
	}
	return p.task, nil
}

func (p *parser) isSubtype(typ, ancestor string) bool {
	if ancestor == model.RootType || typ == ancestor {
		return true
	}
	seen := map[string]bool{}
	for cur := typ; cur != "" && cur != model.RootType && !seen[cur]; cur = p.types[cur] {
		if cur == ancestor {
			return true
		}
		seen[cur] = true
	}
	return false
}

func (p *parser) checkType(name string, at *Node) error {
	if name == model.RootType {
		return nil
	}
	if _, ok := p.types[name]; !ok {
		return p.errorf(ErrUndeclaredType, at, name, "")
	}
	return nil
}

type typedName struct {
	name string
	typ  string
	node *Node
}

// typedList reads "a b - t c" style lists. Names without a type get object.
func (p *parser) typedList(nodes []*Node, vars bool) ([]typedName, error) {
	var out []typedName
	pending := 0
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if n.IsList {
			return nil, p.errorf(ErrSyntax, n, "", "expected a name, got %s", n)
		}
		if n.Symbol == "-" {
			if i+1 >= len(nodes) {
				return nil, p.errorf(ErrSyntax, n, "-", "missing type after '-'")
			}
			typ := nodes[i+1]
			if typ.IsList {
				if typ.Head() == "either" {
					return nil, p.errorf(ErrUnsupported, typ, "either", "union types are not supported")
				}
				return nil, p.errorf(ErrSyntax, typ, "", "expected a type name, got %s", typ)
			}
			if pending == 0 {
				return nil, p.errorf(ErrSyntax, n, "-", "type %q has nothing to apply to", typ.Symbol)
			}
			for j := len(out) - pending; j < len(out); j++ {
				out[j].typ = typ.Symbol
			}
			pending = 0
			i++
			continue
		}
		isVar := len(n.Symbol) > 0 && n.Symbol[0] == '?'
		if isVar != vars {
			if vars {
				return nil, p.errorf(ErrSyntax, n, n.Symbol, "expected a ?variable")
			}
			return nil, p.errorf(ErrSyntax, n, n.Symbol, "variables are not allowed here")
		}
		out = append(out, typedName{name: n.Symbol, typ: model.RootType, node: n})
		pending++
	}
	return out, nil
}

// params reads and validates a parameter list, returning it with its scope.
func (p *parser) params(n *Node) ([]model.Param, scope, error) {
	if !n.IsList {
		return nil, nil, p.errorf(ErrSyntax, n, n.Symbol, "expected a parameter list")
	}
	typed, err := p.typedList(n.List, true)
	if err != nil {
		return nil, nil, err
	}
	params := make([]model.Param, 0, len(typed))
	sc := scope{}
	for _, t := range typed {
		if err := p.checkType(t.typ, t.node); err != nil {
			return nil, nil, err
		}
		if _, dup := sc[t.name]; dup {
			return nil, nil, p.errorf(ErrSyntax, t.node, t.name, "parameter declared twice")
		}
		sc[t.name] = t.typ
		params = append(params, model.Param{Name: t.name, Type: t.typ})
	}
	return params, sc, nil
}

// sections splits (define (kind name) (:section ...)...) into its parts.
func (p *parser) sections(root *Node, kind string) (string, []*Node, error) {
	if root.Head() != "define" || len(root.List) < 2 {
		return "", nil, p.errorf(ErrSyntax, root, root.Head(), "expected (define (%s <name>) ...)", kind)
	}
	header := root.List[1]
	if header.Head() != kind || len(header.List) != 2 || header.List[1].IsList {
		return "", nil, p.errorf(ErrSyntax, header, "", "expected (%s <name>)", kind)
	}
	secs := root.List[2:]
	for _, s := range secs {
		if !s.IsList || len(s.List) == 0 || len(s.Head()) == 0 || s.Head()[0] != ':' {
			return "", nil, p.errorf(ErrSyntax, s, s.Head(), "expected a (:section ...) in %s", kind)
		}
	}
	return header.List[1].Symbol, secs, nil
}
