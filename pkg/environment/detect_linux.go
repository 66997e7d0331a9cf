//    Copyright 2018 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package environment

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	deviceTreeModel = "/proc/device-tree/model"
)

// AutoDetectPinFactory detects the default pin factory driver based on
// the environment. On a Raspberry Pi the pins are driven locally,
// everywhere else through a remote pigpio daemon.
func AutoDetectPinFactory(log zerolog.Logger) string {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		log.Debug().Err(err).Msg("Uname failed")
		return PinFactoryRemote
	}
	machine := unix.ByteSliceToString(name.Machine[:])
	model, err := os.ReadFile(deviceTreeModel)
	if err != nil {
		model = nil
	}
	result := detectPinFactory(machine, strings.TrimRight(string(model), "\x00\n"))
	log.Debug().
		Str("machine", machine).
		Str("pin-factory", result).
		Msg("Detected pin factory")
	return result
}
