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
	"fmt"

	"github.com/pkg/errors"
)

// Kinds of evaluation errors.
const (
	KindSyntax         = "SyntaxError"
	KindName           = "NameError"
	KindAttribute      = "AttributeError"
	KindType           = "TypeError"
	KindZeroDivision   = "ZeroDivisionError"
	KindRuntime        = "RuntimeError"
	KindUnknownCommand = "UnknownCommand"
)

var (
	// ErrUnknownAttribute is returned by Object implementations for
	// attributes or methods they do not have.
	ErrUnknownAttribute = errors.New("unknown attribute")
)

// Error is an evaluation failure. Its message is what the caller sees.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsKind returns true if the given error is an evaluation error of the given kind.
func IsKind(err error, kind string) bool {
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind == kind
	}
	return false
}

func newError(kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func syntaxError(format string, args ...interface{}) *Error {
	return newError(KindSyntax, format, args...)
}

func nameError(name string) *Error {
	return newError(KindName, "name '%s' is not defined", name)
}

func attributeError(obj Object, name string) *Error {
	return newError(KindAttribute, "'%s' object has no attribute '%s'", obj.TypeName(), name)
}

// runtimeError converts a failure of a bound object into an evaluation error.
func runtimeError(err error) *Error {
	if e, ok := errors.Cause(err).(*Error); ok {
		return e
	}
	return newError(KindRuntime, "%s", err.Error())
}
