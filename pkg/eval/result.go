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

// Result of an evaluation. Exactly one of Value or Err is meaningful.
type Result struct {
	Value interface{}
	Err   error
}

// IsError returns true when the evaluation failed.
func (r Result) IsError() bool {
	return r.Err != nil
}

// String renders the result the way it is sent back to the client.
// Errors render as their message.
func (r Result) String() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return Format(r.Value)
}

func valueResult(v interface{}) Result {
	return Result{Value: v}
}

func errorResult(err error) Result {
	return Result{Err: err}
}
