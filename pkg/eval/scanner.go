// Copyright 2024 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package eval

import (
	"strings"
	"unicode"
)

// constants maps Python spelled constants to the expression engine's
// spelling.
var constants = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  noneName,
}

// reserved words that cannot be used as a name.
var reserved = map[string]bool{
	"and": true, "as": true, "assert": true, "async": true, "await": true,
	"break": true, "class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true, "for": true,
	"from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true,
	"pass": true, "raise": true, "return": true, "try": true, "while": true,
	"with": true, "yield": true,
}

// noneName is bound to nil in every evaluation.
const noneName = "None"

// reference of an attribute of a bound object, e.g. led.is_lit
type reference struct {
	Name string
	Attr string
}

// scanned is the result of scanning an expression.
type scanned struct {
	// Expression rewritten in engine syntax
	Expr string
	// Bound names used by the expression, in order of first use
	Names []string
	// Attributes of bound names used by the expression
	Attrs []reference
}

// scan parses the given code and rewrites it into engine syntax.
// Operators the engine does not implement the Python way are rewritten
// into calls of the functions in operators.go.
// Names that are not bound yield a NameError, since evaluated code has
// no builtins. Syntax errors take precedence over those.
func scan(code string, scope Scope) (scanned, error) {
	tokens, err := tokenize(code)
	if err != nil {
		return scanned{}, err
	}
	p := &parser{
		tokens: tokens,
		scope:  scope,
		seen:   make(map[string]bool),
	}
	expr, err := p.expression()
	if err != nil {
		return scanned{}, err
	}
	if p.peek().kind != tokenEOF {
		return scanned{}, syntaxError("invalid syntax")
	}
	if p.deferred != nil {
		return scanned{}, p.deferred
	}
	p.result.Expr = expr
	return p.result, nil
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString
	tokenName
	tokenOperator
)

type token struct {
	kind tokenKind
	text string
}

var (
	longOperators  = []string{"**", "//", "==", "!=", "<=", ">=", "<<", ">>"}
	shortOperators = "+-*/%<>()[]{},:.~&|^"
)

// tokenize splits code into tokens. String literals are converted into
// double quoted literals.
func tokenize(code string) ([]token, error) {
	var tokens []token
	src := []rune(code)
	for i := 0; i < len(src); {
		r := src[i]
		switch {
		case r == '#':
			i = len(src)
		case unicode.IsSpace(r):
			i++
		case r == '\'' || r == '"':
			s, n, err := scanString(src[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, text: s})
			i += n
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(src) && unicode.IsDigit(src[i+1])):
			j := i
			for j < len(src) && (isIdentRune(src[j]) || src[j] == '.' || isExponentSign(src, j)) {
				j++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: string(src[i:j])})
			i = j
		case isIdentStart(r):
			j := i
			for j < len(src) && isIdentRune(src[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokenName, text: string(src[i:j])})
			i = j
		default:
			op := ""
			if i+1 < len(src) {
				for _, o := range longOperators {
					if string(src[i:i+2]) == o {
						op = o
						break
					}
				}
			}
			if op == "" && strings.ContainsRune(shortOperators, r) {
				op = string(r)
			}
			if op == "" {
				return nil, syntaxError("invalid syntax")
			}
			tokens = append(tokens, token{kind: tokenOperator, text: op})
			i += len(op)
		}
	}
	return append(tokens, token{kind: tokenEOF}), nil
}

// scanString reads a quoted string literal at the start of src and
// returns it as a double quoted literal together with the number of
// runes consumed.
func scanString(src []rune) (string, int, error) {
	q := src[0]
	var b strings.Builder
	b.WriteByte('"')
	for i := 1; i < len(src); i++ {
		r := src[i]
		switch {
		case r == q:
			b.WriteByte('"')
			return b.String(), i + 1, nil
		case r == '\\' && i+1 < len(src):
			i++
			if src[i] == '\'' {
				b.WriteRune('\'')
			} else {
				b.WriteRune('\\')
				b.WriteRune(src[i])
			}
		case r == '"':
			b.WriteString(`\"`)
		case r == '\n':
			return "", 0, syntaxError("EOL while scanning string literal")
		default:
			b.WriteRune(r)
		}
	}
	return "", 0, syntaxError("EOL while scanning string literal")
}

// isExponentSign returns true for the sign in a number like 1e-5.
func isExponentSign(src []rune, i int) bool {
	return (src[i] == '-' || src[i] == '+') && i > 0 && (src[i-1] == 'e' || src[i-1] == 'E')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
