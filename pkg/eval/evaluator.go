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
	"regexp"
	"strings"

	"github.com/maja42/goval"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Mode selects the grammar accepted by the evaluator.
type Mode string

const (
	// ModeExpression accepts expressions over the bound objects.
	ModeExpression Mode = "expression"
	// ModeCommand accepts only a small fixed set of LED commands.
	ModeCommand Mode = "command"
)

// ParseMode parses a mode name. An empty name yields ModeExpression.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeExpression:
		return ModeExpression, nil
	case ModeCommand:
		return ModeCommand, nil
	default:
		return "", errors.Errorf("unknown evaluation mode '%s'", s)
	}
}

var methodCallPattern = regexp.MustCompile(`^([A-Za-z_]\w*)\s*\.\s*([A-Za-z_]\w*)\s*\(`)

// Evaluator evaluates code received from remote clients against a
// fixed scope of objects.
type Evaluator struct {
	log   zerolog.Logger
	mode  Mode
	scope Scope
}

// NewEvaluator creates an evaluator for the given scope.
func NewEvaluator(log zerolog.Logger, mode Mode, scope Scope) *Evaluator {
	if mode == "" {
		mode = ModeExpression
	}
	return &Evaluator{
		log:   log.With().Str("component", "eval").Logger(),
		mode:  mode,
		scope: scope,
	}
}

// Mode returns the grammar used by this evaluator.
func (e *Evaluator) Mode() Mode {
	return e.mode
}

// Evaluate the given code. Failures are returned as part of the result,
// never as a panic.
func (e *Evaluator) Evaluate(code string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("code", code).Msg("Evaluation panicked")
			result = errorResult(newError(KindRuntime, "%v", r))
		}
		evaluationsTotal.WithLabelValues(string(e.mode)).Inc()
		if result.Err != nil {
			kind := KindRuntime
			if ee, ok := errors.Cause(result.Err).(*Error); ok {
				kind = ee.Kind
			}
			evaluationErrorsTotal.WithLabelValues(kind).Inc()
		}
	}()

	switch e.mode {
	case ModeCommand:
		return e.evaluateCommand(code)
	default:
		return e.evaluateExpression(code)
	}
}

func (e *Evaluator) evaluateExpression(code string) Result {
	code = strings.TrimSpace(code)
	if code == "" {
		return errorResult(syntaxError("unexpected EOF while parsing"))
	}
	if obj, found := e.scope.Lookup(code); found {
		return valueResult(obj)
	}
	if name, method, args, ok := splitMethodCall(code); ok {
		return e.callMethod(name, method, args)
	}

	s, err := scan(code, e.scope)
	if err != nil {
		return errorResult(err)
	}
	vars, err := e.snapshot(s)
	if err != nil {
		return errorResult(err)
	}
	value, err := e.run(code, s, vars)
	if err != nil {
		return errorResult(err)
	}
	return valueResult(value)
}

// run evaluates a scanned expression in the expression engine.
func (e *Evaluator) run(code string, s scanned, vars map[string]interface{}) (interface{}, error) {
	ops := &operators{}
	value, err := goval.NewEvaluator().Evaluate(s.Expr, vars, ops.functions())
	if ops.err != nil {
		return nil, ops.err
	}
	if err != nil {
		return nil, e.engineError(code, err)
	}
	return value, nil
}

// snapshot collects the attributes of all objects used by the expression.
func (e *Evaluator) snapshot(s scanned) (map[string]interface{}, error) {
	vars := make(map[string]interface{}, len(s.Names)+1)
	vars[noneName] = nil
	for _, name := range s.Names {
		obj, _ := e.scope.Lookup(name)
		attrs, err := obj.Attributes()
		if err != nil {
			return nil, runtimeError(err)
		}
		vars[name] = attrs
	}
	for _, ref := range s.Attrs {
		attrs, _ := vars[ref.Name].(map[string]interface{})
		if _, found := attrs[ref.Attr]; !found {
			obj, _ := e.scope.Lookup(ref.Name)
			return nil, attributeError(obj, ref.Attr)
		}
	}
	return vars, nil
}

// callMethod invokes a method of a bound object.
func (e *Evaluator) callMethod(name, method, argList string) Result {
	obj, found := e.scope.Lookup(name)
	if !found {
		return errorResult(nameError(name))
	}
	var args []interface{}
	if strings.TrimSpace(argList) != "" {
		s, err := scan("["+argList+"]", e.scope)
		if err != nil {
			return errorResult(err)
		}
		vars, err := e.snapshot(s)
		if err != nil {
			return errorResult(err)
		}
		value, err := e.run(argList, s, vars)
		if err != nil {
			return errorResult(err)
		}
		list, ok := value.([]interface{})
		if !ok {
			return errorResult(syntaxError("invalid syntax"))
		}
		args = list
	}
	e.log.Debug().Str("object", name).Str("method", method).Int("args", len(args)).Msg("Calling method")
	value, err := obj.Call(method, args)
	if errors.Cause(err) == ErrUnknownAttribute {
		return errorResult(attributeError(obj, method))
	} else if err != nil {
		return errorResult(runtimeError(err))
	}
	return valueResult(value)
}

// engineError converts an error of the expression engine.
func (e *Evaluator) engineError(code string, err error) *Error {
	msg := err.Error()
	e.log.Debug().Err(err).Str("code", code).Msg("Expression failed")
	switch {
	case strings.Contains(msg, "syntax error"), strings.Contains(msg, "parse error"), strings.Contains(msg, "unknown token"):
		return syntaxError("invalid syntax")
	default:
		return newError(KindType, "%s", msg)
	}
}

// splitMethodCall splits code of the form name.method(args) where the
// call spans the entire code.
func splitMethodCall(code string) (name, method, args string, ok bool) {
	m := methodCallPattern.FindStringSubmatchIndex(code)
	if m == nil {
		return "", "", "", false
	}
	open := m[1] - 1
	end := matchingParen(code, open)
	if end != len(code)-1 {
		return "", "", "", false
	}
	return code[m[2]:m[3]], code[m[4]:m[5]], code[open+1 : end], true
}

// matchingParen returns the index of the parenthesis closing the one at
// index open, or -1.
func matchingParen(code string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(code); i++ {
		c := code[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
