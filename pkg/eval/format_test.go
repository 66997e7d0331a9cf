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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type named struct{}

func (named) String() string { return "<named>" }

func TestFormat(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected string
	}{
		{nil, "None"},
		{true, "True"},
		{false, "False"},
		{2, "2"},
		{int64(-7), "-7"},
		{1.5, "1.5"},
		{2.0, "2.0"},
		{1e6, "1000000.0"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1e16, "1e+16"},
		{"text", "text"},
		{[]interface{}{1, "a", nil, true}, "[1, 'a', None, True]"},
		{[]interface{}{"it's"}, `["it's"]`},
		{map[string]interface{}{"b": 2, "a": "x"}, "{'a': 'x', 'b': 2}"},
		{named{}, "<named>"},
		{errors.New("boom"), "boom"},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, Format(test.value), "%#v", test.value)
	}
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "None", Result{}.String())
	assert.Equal(t, "name 'x' is not defined", Result{Err: nameError("x")}.String())
	assert.False(t, Result{Value: 1}.IsError())
}
