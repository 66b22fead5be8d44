package parse

import (
	"strings"
	"unicode"

	"github.com/gogpu/mslc/token"
)

// lex is a minimal test-only tokenizer standing in for the external
// preprocessor (spec §1 places lexing out of scope for this module): it
// turns a GLSL-superset source string into the pre-tokenized token.List
// contract the Parser actually consumes, tracking 1-based line/column the
// same way naga's own wgsl.Lexer does.
func lex(src string) token.List {
	var out token.List
	line, col := uint32(1), uint32(1)
	i := 0
	runes := []rune(src)

	advance := func(n int) {
		for j := 0; j < n; j++ {
			if runes[i+j] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
		i += n
	}

	for i < len(runes) {
		r := runes[i]
		startLine, startCol := line, col

		switch {
		case r == '\n':
			out = append(out, token.Token{Value: "\n", Kind: token.Newline, Origin: token.Origin{FileName: "test.glsl", Line: startLine, Column: startCol}})
			advance(1)
		case r == ' ' || r == '\t' || r == '\r':
			j := i
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\r') {
				j++
			}
			v := string(runes[i:j])
			advance(j - i)
			out = append(out, token.Token{Value: v, Kind: token.Whitespace, Origin: token.Origin{FileName: "test.glsl", Line: startLine, Column: startCol}})
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			v := string(runes[i:j])
			advance(j - i)
			out = append(out, token.Token{Value: v, Kind: token.Identifier, Origin: token.Origin{FileName: "test.glsl", Line: startLine, Column: startCol}})
		case unicode.IsDigit(r):
			j := i
			isFloat := false
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.' || runes[j] == 'x' || runes[j] == 'X' ||
				(runes[j] >= 'a' && runes[j] <= 'f') || (runes[j] >= 'A' && runes[j] <= 'F')) {
				if runes[j] == '.' {
					isFloat = true
				}
				j++
			}
			v := string(runes[i:j])
			advance(j - i)
			kind := token.IntLit
			if isFloat {
				kind = token.FloatLit
			}
			out = append(out, token.Token{Value: v, Kind: kind, Origin: token.Origin{FileName: "test.glsl", Line: startLine, Column: startCol}})
		case r == '"':
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			j++ // closing quote
			v := string(runes[i:j])
			advance(j - i)
			out = append(out, token.Token{Value: v, Kind: token.StringLit, Origin: token.Origin{FileName: "test.glsl", Line: startLine, Column: startCol}})
		default:
			v := string(r)
			advance(1)
			out = append(out, token.Token{Value: v, Kind: token.Symbol, Origin: token.Origin{FileName: "test.glsl", Line: startLine, Column: startCol}})
		}
	}
	return out
}

// dedent strips a common leading-newline so literal test sources can be
// written as indented Go string literals without affecting line numbers.
func dedent(s string) string {
	return strings.TrimPrefix(s, "\n")
}
