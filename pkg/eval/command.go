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
	"strconv"
	"strings"
)

const (
	// CommandTarget is the bound object that commands act on.
	CommandTarget = "led"
)

// Commands lists the commands accepted in ModeCommand.
var Commands = []string{"on", "off", "toggle", "blink", "status"}

// evaluateCommand runs one of a fixed set of commands against the
// command target. Arguments of blink are numbers: on time, off time (seconds)
// and count.
func (e *Evaluator) evaluateCommand(code string) Result {
	fields := strings.Fields(code)
	if len(fields) == 0 {
		return errorResult(newError(KindUnknownCommand, "empty command, expected one of %s", strings.Join(Commands, ", ")))
	}
	obj, found := e.scope.Lookup(CommandTarget)
	if !found {
		return errorResult(nameError(CommandTarget))
	}
	cmd, params := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "on", "off", "toggle":
		if len(params) != 0 {
			return errorResult(newError(KindType, "%s takes no arguments", cmd))
		}
	case "blink":
		if len(params) > 3 {
			return errorResult(newError(KindType, "blink takes at most 3 arguments"))
		}
	case "status":
		if len(params) != 0 {
			return errorResult(newError(KindType, "status takes no arguments"))
		}
		attrs, err := obj.Attributes()
		if err != nil {
			return errorResult(runtimeError(err))
		}
		lit, _ := attrs["is_lit"].(bool)
		if lit {
			return valueResult("on")
		}
		return valueResult("off")
	default:
		return errorResult(newError(KindUnknownCommand, "unknown command '%s', expected one of %s", fields[0], strings.Join(Commands, ", ")))
	}

	args := make([]interface{}, 0, len(params))
	for _, p := range params {
		if i, err := strconv.Atoi(p); err == nil {
			args = append(args, i)
		} else if f, err := strconv.ParseFloat(p, 64); err == nil {
			args = append(args, f)
		} else {
			return errorResult(newError(KindType, "invalid argument '%s' for %s", p, cmd))
		}
	}
	e.log.Debug().Str("command", cmd).Msg("Running command")
	value, err := obj.Call(cmd, args)
	if err != nil {
		return errorResult(runtimeError(err))
	}
	return valueResult(value)
}
