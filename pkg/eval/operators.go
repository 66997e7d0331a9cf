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
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/maja42/goval"
)

// Functions implementing Python operators inside the expression engine.
// Their names cannot be written by clients, since they are not bound.
const (
	fnTrueDiv  = "__truediv"
	fnFloorDiv = "__floordiv"
	fnMod      = "__mod"
	fnPow      = "__pow"
	fnEq       = "__eq"
	fnContains = "__contains"
	fnNot      = "__not"
	fnAnd      = "__and"
	fnOr       = "__or"
	fnCond     = "__cond"
)

// maxPowBits limits the size of integer powers.
const maxPowBits = 1 << 16

// operators provides the engine functions for a single evaluation and
// keeps the first error they raise, so its kind survives the engine.
type operators struct {
	err *Error
}

func (o *operators) functions() map[string]goval.ExpressionFunction {
	return map[string]goval.ExpressionFunction{
		fnTrueDiv:  o.binary(trueDiv),
		fnFloorDiv: o.binary(floorDiv),
		fnMod:      o.binary(mod),
		fnPow:      o.binary(pow),
		fnContains: o.binary(contains),
		fnEq: o.binary(func(a, b interface{}) (interface{}, *Error) {
			return equal(a, b), nil
		}),
		fnAnd: o.binary(func(a, b interface{}) (interface{}, *Error) {
			if !truth(a) {
				return a, nil
			}
			return b, nil
		}),
		fnOr: o.binary(func(a, b interface{}) (interface{}, *Error) {
			if truth(a) {
				return a, nil
			}
			return b, nil
		}),
		fnNot: func(args ...interface{}) (interface{}, error) {
			return !truth(args[0]), nil
		},
		fnCond: func(args ...interface{}) (interface{}, error) {
			if truth(args[0]) {
				return args[1], nil
			}
			return args[2], nil
		},
	}
}

func (o *operators) binary(f func(a, b interface{}) (interface{}, *Error)) goval.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		result, err := f(args[0], args[1])
		if err != nil {
			if o.err == nil {
				o.err = err
			}
			return nil, err
		}
		return result, nil
	}
}

func trueDiv(a, b interface{}) (interface{}, *Error) {
	x, xInt, ok1 := number(a)
	y, yInt, ok2 := number(b)
	if !ok1 || !ok2 {
		return nil, unsupportedOperand("/", a, b)
	}
	if y == 0 {
		if xInt && yInt {
			return nil, zeroDivision("division by zero")
		}
		return nil, zeroDivision("float division by zero")
	}
	return x / y, nil
}

func floorDiv(a, b interface{}) (interface{}, *Error) {
	if x, ok := integer(a); ok {
		if y, ok := integer(b); ok {
			if y == 0 {
				return nil, zeroDivision("integer division or modulo by zero")
			}
			q := x / y
			if x%y != 0 && (x < 0) != (y < 0) {
				q--
			}
			return q, nil
		}
	}
	x, _, ok1 := number(a)
	y, _, ok2 := number(b)
	if !ok1 || !ok2 {
		return nil, unsupportedOperand("//", a, b)
	}
	if y == 0 {
		return nil, zeroDivision("float divmod()")
	}
	return math.Floor(x / y), nil
}

// mod takes the sign of the divisor.
func mod(a, b interface{}) (interface{}, *Error) {
	if x, ok := integer(a); ok {
		if y, ok := integer(b); ok {
			if y == 0 {
				return nil, zeroDivision("integer division or modulo by zero")
			}
			r := x % y
			if r != 0 && (r < 0) != (y < 0) {
				r += y
			}
			return r, nil
		}
	}
	x, _, ok1 := number(a)
	y, _, ok2 := number(b)
	if !ok1 || !ok2 {
		return nil, unsupportedOperand("%", a, b)
	}
	if y == 0 {
		return nil, zeroDivision("float modulo")
	}
	r := math.Mod(x, y)
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r, nil
}

// pow yields an int for integer operands with a non negative exponent.
// Results that do not fit an int are returned as *big.Int.
func pow(a, b interface{}) (interface{}, *Error) {
	x, xInt, ok1 := number(a)
	y, yInt, ok2 := number(b)
	if !ok1 || !ok2 {
		return nil, unsupportedOperand("** or pow()", a, b)
	}
	if x == 0 && y < 0 {
		return nil, zeroDivision("0.0 cannot be raised to a negative power")
	}
	if xInt && yInt && y >= 0 {
		base, _ := integer(a)
		exp, _ := integer(b)
		if bits := big.NewInt(int64(base)).BitLen(); bits > 1 && exp > maxPowBits/bits {
			return nil, newError(KindRuntime, "result of %d ** %d is too large", base, exp)
		}
		r := new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(exp)), nil)
		if r.IsInt64() && r.Int64() >= math.MinInt && r.Int64() <= math.MaxInt {
			return int(r.Int64()), nil
		}
		return r, nil
	}
	if x < 0 && y != math.Trunc(y) {
		return nil, newError(KindRuntime, "complex results are not supported")
	}
	return math.Pow(x, y), nil
}

func contains(container, item interface{}) (interface{}, *Error) {
	switch c := container.(type) {
	case []interface{}:
		for _, v := range c {
			if equal(v, item) {
				return true, nil
			}
		}
		return false, nil
	case string:
		s, ok := item.(string)
		if !ok {
			return nil, newError(KindType, "'in <string>' requires string as left operand, not %s", typeName(item))
		}
		return strings.Contains(c, s), nil
	case map[string]interface{}:
		s, ok := item.(string)
		if !ok {
			return false, nil
		}
		_, found := c[s]
		return found, nil
	}
	return nil, newError(KindType, "argument of type '%s' is not iterable", typeName(container))
}

// equal compares values the way Python's == does, so 1 == 1.0 == True.
func equal(a, b interface{}) bool {
	if x, _, ok := number(a); ok {
		y, _, ok := number(b)
		return ok && x == y
	}
	switch a := a.(type) {
	case nil:
		return b == nil
	case []interface{}:
		l, ok := b.([]interface{})
		if !ok || len(a) != len(l) {
			return false
		}
		for i := range a {
			if !equal(a[i], l[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		m, ok := b.(map[string]interface{})
		if !ok || len(a) != len(m) {
			return false
		}
		for k, v := range a {
			if w, found := m[k]; !found || !equal(v, w) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// truth returns the truth value of v as Python's bool() does.
func truth(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	case *big.Int:
		return v.Sign() != 0
	}
	return true
}

// number returns v as a float and whether it is an integer.
// Booleans are integers.
func number(v interface{}) (float64, bool, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true, true
	case bool:
		if v {
			return 1, true, true
		}
		return 0, true, true
	case float64:
		return v, false, true
	}
	return 0, false, false
}

func integer(v interface{}) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// typeName returns the Python type name of a value.
func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int, *big.Int:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "dict"
	}
	return "object"
}

func unsupportedOperand(op string, a, b interface{}) *Error {
	return newError(KindType, "unsupported operand type(s) for %s: '%s' and '%s'", op, typeName(a), typeName(b))
}

func zeroDivision(msg string) *Error {
	return newError(KindZeroDivision, "%s", msg)
}
