package pddl

import "strings"

// Node is an s-expression: either a symbol or a parenthesised list.
type Node struct {
	Symbol string
	List   []*Node
	IsList bool
	Line   int
	Col    int
}

// Head returns the leading symbol of a list, or "" when the list is empty
// or starts with a nested list.
func (n *Node) Head() string {
	if !n.IsList || len(n.List) == 0 || n.List[0].IsList {
		return ""
	}
	return n.List[0].Symbol
}

// Args returns the list members after the head.
func (n *Node) Args() []*Node {
	if !n.IsList || len(n.List) == 0 {
		return nil
	}
	return n.List[1:]
}

func (n *Node) String() string {
	if !n.IsList {
		return n.Symbol
	}
	parts := make([]string, len(n.List))
	for i, c := range n.List {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// readTree builds the single top-level list of a PDDL text.
func (p *parser) readTree(src string) (*Node, error) {
	toks := tokenize(src)
	if len(toks) == 0 {
		return nil, p.errorf(ErrSyntax, nil, "", "empty input")
	}
	pos := 0
	root, err := p.readNode(toks, &pos)
	if err != nil {
		return nil, err
	}
	if pos < len(toks) {
		t := toks[pos]
		return nil, &ParseError{Kind: ErrSyntax, Source: p.source, Line: t.line, Col: t.col, Symbol: t.text,
			Msg: "unexpected input after top-level definition"}
	}
	if !root.IsList {
		return nil, p.errorf(ErrSyntax, root, root.Symbol, "expected (define ...)")
	}
	return root, nil
}

func (p *parser) readNode(toks []token, pos *int) (*Node, error) {
	t := toks[*pos]
	*pos++
	switch t.kind {
	case tokSymbol:
		return &Node{Symbol: t.text, Line: t.line, Col: t.col}, nil
	case tokClose:
		return nil, &ParseError{Kind: ErrSyntax, Source: p.source, Line: t.line, Col: t.col, Msg: "unbalanced ')'"}
	}
	n := &Node{IsList: true, Line: t.line, Col: t.col}
	for {
		if *pos >= len(toks) {
			return nil, &ParseError{Kind: ErrSyntax, Source: p.source, Line: t.line, Col: t.col, Msg: "unclosed '('"}
		}
		if toks[*pos].kind == tokClose {
			*pos++
			return n, nil
		}
		child, err := p.readNode(toks, pos)
		if err != nil {
			return nil, err
		}
		n.List = append(n.List, child)
	}
}
