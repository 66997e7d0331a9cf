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

// Object is a value bound into the evaluation scope.
type Object interface {
	// TypeName is used in error messages, e.g. 'LED'
	TypeName() string
	// Attributes returns a snapshot of the readable attributes.
	Attributes() (map[string]interface{}, error)
	// Call invokes the method with given name.
	// Returns ErrUnknownAttribute for unknown methods.
	Call(method string, args []interface{}) (interface{}, error)
	// String renders the object itself.
	String() string
}

// Scope holds the only names visible to evaluated code.
type Scope map[string]Object

// Lookup an object by name.
func (s Scope) Lookup(name string) (Object, bool) {
	obj, found := s[name]
	return obj, found
}
