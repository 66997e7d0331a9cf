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
	"strings"

	"github.com/rs/zerolog"

	"github.com/codelab-eim/RaspberryPiNode/pkg/pinfactory"
)

const (
	// PinFactoryRemote is used when not running on a Raspberry Pi
	PinFactoryRemote = pinfactory.DriverPigpio
	// PinFactoryLocal is used when running on a Raspberry Pi
	PinFactoryLocal = pinfactory.DriverPeriph
	// PinFactoryAuto selects PinFactoryLocal or PinFactoryRemote
	PinFactoryAuto = "auto"
)

// ResolvePinFactory returns the pin factory driver to use for the
// configured name. Only PinFactoryAuto is detected, an empty name
// yields the remote driver.
func ResolvePinFactory(log zerolog.Logger, name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return PinFactoryRemote
	case PinFactoryAuto:
		return AutoDetectPinFactory(log)
	default:
		return name
	}
}

// detectPinFactory selects a pin factory for the given machine type and
// board model.
func detectPinFactory(machine, model string) string {
	if !strings.HasPrefix(machine, "arm") && machine != "aarch64" {
		return PinFactoryRemote
	}
	if strings.Contains(model, "Raspberry Pi") {
		return PinFactoryLocal
	}
	return PinFactoryRemote
}
