package interpreter

import "strings"

// Tokenize splits a raw command line into whitespace-separated tokens,
// treating a single-quoted span as one token with the quotes stripped —
// this preserves PSKd/PSKc literals and other values that must not be
// lower-cased or split on internal whitespace.
func Tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false
	haveToken := false

	flush := func() {
		if haveToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			haveToken = false
		}
	}

	for _, r := range line {
		switch {
		case inQuotes:
			if r == '\'' {
				inQuotes = false
			} else {
				cur.WriteRune(r)
			}
		case r == '\'':
			inQuotes = true
			haveToken = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
			haveToken = true
		}
	}
	flush()
	return tokens
}
