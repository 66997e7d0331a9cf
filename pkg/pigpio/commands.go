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

package pigpio

import "fmt"

// Command is the numeric identifier of a pigpio socket command.
type Command uint32

const (
	CmdModes Command = 0  // Set GPIO mode
	CmdModeg Command = 1  // Get GPIO mode
	CmdPud   Command = 2  // Set pull up/down
	CmdRead  Command = 3  // Read GPIO level
	CmdWrite Command = 4  // Write GPIO level
	CmdPWM   Command = 5  // Set PWM dutycycle
	CmdHwver Command = 17 // Get hardware revision
	CmdPigpv Command = 26 // Get daemon version
	CmdGdc   Command = 83 // Get PWM dutycycle
)

var commandNames = map[Command]string{
	CmdModes: "MODES",
	CmdModeg: "MODEG",
	CmdPud:   "PUD",
	CmdRead:  "READ",
	CmdWrite: "WRITE",
	CmdPWM:   "PWM",
	CmdHwver: "HWVER",
	CmdPigpv: "PIGPV",
	CmdGdc:   "GDC",
}

// String returns the pigpio name of the command
func (c Command) String() string {
	if name, found := commandNames[c]; found {
		return name
	}
	return fmt.Sprintf("CMD%d", uint32(c))
}

// Mode of a GPIO
type Mode uint32

const (
	ModeInput  Mode = 0
	ModeOutput Mode = 1
)

// Pull up/down setting of a GPIO
type Pull uint32

const (
	PullOff  Pull = 0
	PullDown Pull = 1
	PullUp   Pull = 2
)
