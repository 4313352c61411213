package pddl

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokOpen tokenKind = iota
	tokClose
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

// tokenize splits PDDL text into parentheses and lower-cased symbols.
// Comments run from ';' to the end of the line.
func tokenize(src string) []token {
	var toks []token
	line, col := 1, 0
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		col++
		switch {
		case r == '\n':
			line++
			col = 0
		case unicode.IsSpace(r):
		case r == ';':
			for i+1 < len(runes) && runes[i+1] != '\n' {
				i++
			}
		case r == '(':
			toks = append(toks, token{kind: tokOpen, text: "(", line: line, col: col})
		case r == ')':
			toks = append(toks, token{kind: tokClose, text: ")", line: line, col: col})
		default:
			start, startCol := i, col
			for i+1 < len(runes) && !isDelimiter(runes[i+1]) {
				i++
				col++
			}
			toks = append(toks, token{
				kind: tokSymbol,
				text: strings.ToLower(string(runes[start : i+1])),
				line: line,
				col:  startCol,
			})
		}
	}
	return toks
}

func isDelimiter(r rune) bool {
	return r == '(' || r == ')' || r == ';' || unicode.IsSpace(r)
}
