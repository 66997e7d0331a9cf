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
)

// binaryLevels lists the binary operators below the unary operators,
// from lowest to highest precedence.
var binaryLevels = [][]string{
	{"|"},
	{"^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "//", "%"},
}

var comparisonOperators = []string{"==", "!=", "<", "<=", ">", ">="}

// parser translates a token stream into engine syntax, following
// Python's grammar and operator precedence.
type parser struct {
	tokens []token
	pos    int
	scope  Scope
	seen   map[string]bool
	result scanned
	// First error that evaluating the expression would raise
	deferred *Error
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokenOperator && t.text == op
}

func (p *parser) isKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokenName && t.text == kw
}

func (p *parser) accept(op string) bool {
	if p.isOp(op) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(op string) error {
	if p.accept(op) {
		return nil
	}
	return unexpected(p.peek())
}

// fail records an error raised during evaluation. Only the first is kept.
func (p *parser) fail(err *Error) {
	if p.deferred == nil {
		p.deferred = err
	}
}

func unexpected(t token) error {
	if t.kind == tokenEOF {
		return syntaxError("unexpected EOF while parsing")
	}
	return syntaxError("invalid syntax")
}

// expression parses `x if cond else y` and everything below it.
func (p *parser) expression() (string, error) {
	x, err := p.or()
	if err != nil || !p.isKeyword("if") {
		return x, err
	}
	p.next()
	cond, err := p.or()
	if err != nil {
		return "", err
	}
	if !p.isKeyword("else") {
		return "", unexpected(p.peek())
	}
	p.next()
	y, err := p.expression()
	if err != nil {
		return "", err
	}
	return call(fnCond, cond, x, y), nil
}

func (p *parser) or() (string, error) {
	x, err := p.and()
	for err == nil && p.isKeyword("or") {
		p.next()
		var y string
		if y, err = p.and(); err == nil {
			x = call(fnOr, x, y)
		}
	}
	return x, err
}

func (p *parser) and() (string, error) {
	x, err := p.not()
	for err == nil && p.isKeyword("and") {
		p.next()
		var y string
		if y, err = p.not(); err == nil {
			x = call(fnAnd, x, y)
		}
	}
	return x, err
}

func (p *parser) not() (string, error) {
	if !p.isKeyword("not") {
		return p.comparison()
	}
	p.next()
	x, err := p.not()
	if err != nil {
		return "", err
	}
	return call(fnNot, x), nil
}

// comparison parses chains like a < b < c, which hold when every
// adjacent pair holds.
func (p *parser) comparison() (string, error) {
	x, err := p.binary(0)
	if err != nil {
		return "", err
	}
	result := ""
	for {
		op, ok := p.comparisonOperator()
		if !ok {
			break
		}
		y, err := p.binary(0)
		if err != nil {
			return "", err
		}
		if c := compare(op, x, y); result == "" {
			result = c
		} else {
			result = call(fnAnd, result, c)
		}
		x = y
	}
	if result == "" {
		return x, nil
	}
	return result, nil
}

func (p *parser) comparisonOperator() (string, bool) {
	t := p.peek()
	switch {
	case t.kind == tokenOperator:
		for _, op := range comparisonOperators {
			if t.text == op {
				p.next()
				return op, true
			}
		}
	case p.isKeyword("in"):
		p.next()
		return "in", true
	case p.isKeyword("not"):
		if n := p.tokens[p.pos+1]; n.kind == tokenName && n.text == "in" {
			p.pos += 2
			return "not in", true
		}
	case p.isKeyword("is"):
		p.next()
		if p.isKeyword("not") {
			p.next()
			return "is not", true
		}
		return "is", true
	}
	return "", false
}

func compare(op, x, y string) string {
	switch op {
	case "==", "is":
		return call(fnEq, x, y)
	case "!=", "is not":
		return call(fnNot, call(fnEq, x, y))
	case "in":
		return call(fnContains, y, x)
	case "not in":
		return call(fnNot, call(fnContains, y, x))
	default:
		return "(" + x + " " + op + " " + y + ")"
	}
}

func (p *parser) binary(level int) (string, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	x, err := p.binary(level + 1)
	if err != nil {
		return "", err
	}
	for {
		op := ""
		for _, o := range binaryLevels[level] {
			if p.isOp(o) {
				op = o
				break
			}
		}
		if op == "" {
			return x, nil
		}
		p.next()
		y, err := p.binary(level + 1)
		if err != nil {
			return "", err
		}
		switch op {
		case "/":
			x = call(fnTrueDiv, x, y)
		case "//":
			x = call(fnFloorDiv, x, y)
		case "%":
			x = call(fnMod, x, y)
		default:
			x = "(" + x + " " + op + " " + y + ")"
		}
	}
}

func (p *parser) unary() (string, error) {
	for _, op := range []string{"-", "+", "~"} {
		if p.accept(op) {
			x, err := p.unary()
			if err != nil {
				return "", err
			}
			if op == "+" {
				return "(" + x + ")", nil
			}
			return "(" + op + x + ")", nil
		}
	}
	return p.power()
}

// power binds tighter than a unary operator on its left, so -2**2 is -4.
func (p *parser) power() (string, error) {
	x, err := p.postfix()
	if err != nil || !p.accept("**") {
		return x, err
	}
	y, err := p.unary()
	if err != nil {
		return "", err
	}
	return call(fnPow, x, y), nil
}

// postfix parses attribute access, subscripts and calls.
func (p *parser) postfix() (string, error) {
	x, bound, err := p.atom()
	if err != nil {
		return "", err
	}
	for {
		switch {
		case p.accept("."):
			t := p.next()
			if t.kind != tokenName {
				return "", unexpected(t)
			}
			if p.isOp("(") {
				return "", syntaxError("method call %s() must be the whole expression", t.text)
			}
			if bound != "" {
				p.result.Attrs = append(p.result.Attrs, reference{Name: bound, Attr: t.text})
			}
			x, bound = x+"."+t.text, ""
		case p.accept("["):
			index, err := p.subscript()
			if err != nil {
				return "", err
			}
			x, bound = x+"["+index+"]", ""
		case p.accept("("):
			if _, err := p.list(")"); err != nil {
				return "", err
			}
			if obj, found := p.scope.Lookup(bound); found {
				p.fail(newError(KindType, "'%s' object is not callable", obj.TypeName()))
			} else {
				p.fail(newError(KindType, "object is not callable"))
			}
			x, bound = noneName, ""
		default:
			return x, nil
		}
	}
}

// subscript parses an index or slice up to and including the closing bracket.
func (p *parser) subscript() (string, error) {
	var lo, hi string
	var err error
	if !p.isOp(":") {
		if lo, err = p.expression(); err != nil {
			return "", err
		}
	}
	if p.accept(":") {
		if !p.isOp("]") {
			if hi, err = p.expression(); err != nil {
				return "", err
			}
		}
		if err := p.expect("]"); err != nil {
			return "", err
		}
		return lo + ":" + hi, nil
	}
	if err := p.expect("]"); err != nil {
		return "", err
	}
	return lo, nil
}

// list parses comma separated expressions up to and including closing.
func (p *parser) list(closing string) ([]string, error) {
	var items []string
	for !p.accept(closing) {
		x, err := p.expression()
		if err != nil {
			return nil, err
		}
		items = append(items, x)
		if !p.accept(",") {
			if err := p.expect(closing); err != nil {
				return nil, err
			}
			break
		}
	}
	return items, nil
}

// atom parses a literal, a name or a parenthesized expression.
// The second result is set when the atom is a bound name.
func (p *parser) atom() (string, string, error) {
	t := p.next()
	switch t.kind {
	case tokenNumber:
		return t.text, "", nil
	case tokenString:
		s := t.text
		for p.peek().kind == tokenString {
			s = "(" + s + " + " + p.next().text + ")"
		}
		return s, "", nil
	case tokenName:
		if c, found := constants[t.text]; found {
			return c, "", nil
		}
		if reserved[t.text] {
			return "", "", syntaxError("invalid syntax")
		}
		if _, found := p.scope.Lookup(t.text); !found {
			p.fail(nameError(t.text))
			return noneName, "", nil
		}
		if !p.seen[t.text] {
			p.seen[t.text] = true
			p.result.Names = append(p.result.Names, t.text)
		}
		return t.text, t.text, nil
	case tokenOperator:
		switch t.text {
		case "(":
			if p.isOp(")") {
				return "", "", syntaxError("tuples are not supported")
			}
			x, err := p.expression()
			if err != nil {
				return "", "", err
			}
			if p.isOp(",") {
				return "", "", syntaxError("tuples are not supported")
			}
			if err := p.expect(")"); err != nil {
				return "", "", err
			}
			return "(" + x + ")", "", nil
		case "[":
			items, err := p.list("]")
			if err != nil {
				return "", "", err
			}
			return "[" + strings.Join(items, ", ") + "]", "", nil
		case "{":
			var entries []string
			for !p.accept("}") {
				k, err := p.expression()
				if err != nil {
					return "", "", err
				}
				if err := p.expect(":"); err != nil {
					return "", "", err
				}
				v, err := p.expression()
				if err != nil {
					return "", "", err
				}
				entries = append(entries, k+": "+v)
				if !p.accept(",") {
					if err := p.expect("}"); err != nil {
						return "", "", err
					}
					break
				}
			}
			return "{" + strings.Join(entries, ", ") + "}", "", nil
		}
	}
	return "", "", unexpected(t)
}

func call(name string, args ...string) string {
	return name + "(" + strings.Join(args, ", ") + ")"
}
