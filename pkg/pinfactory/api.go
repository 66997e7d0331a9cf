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

package pinfactory

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	// InvalidPinError is returned for pin numbers a factory cannot supply.
	InvalidPinError = errors.New("invalid pin")
	maskAny         = errors.WithStack
)

// Factory supplies GPIO pins, either locally or over the network.
type Factory interface {
	// Name of the driver that created this factory
	Name() string
	// Output initializes a GPIO output pin with the given pin number
	// and initial (physical) value.
	Output(pinNumber int, initialValue bool) (OutputPin, error)
	// Attributes returns a description of the factory,
	// such as the host it is connected to.
	Attributes() map[string]interface{}
	// Close releases all resources of the factory.
	Close() error
	String() string
}

// OutputPin is the interface satisfied by GPIO output pins.
type OutputPin interface {
	// Number of the pin (BCM numbering)
	Number() int
	// Write the physical level of the pin
	Write(bool) error
	// Read back the physical level of the pin
	Read() (bool, error)
	// Close brings the pin back to a safe (input) state
	Close() error
}

// Options used to open a factory.
type Options struct {
	// Host of the pin daemon (remote drivers only)
	Host string
	// Port of the pin daemon (remote drivers only)
	Port int
	// Limit of a single remote pin operation. Zero means no limit.
	CommandTimeout time.Duration
	Log            zerolog.Logger
}

// PinName returns the name of the pin with given BCM number.
func PinName(pinNumber int) string {
	return fmt.Sprintf("GPIO%d", pinNumber)
}

const (
	// Highest BCM pin number available on a Raspberry Pi header
	maxPinNumber = 27
)

func validatePinNumber(pinNumber int) error {
	if pinNumber < 0 || pinNumber > maxPinNumber {
		return errors.Wrapf(InvalidPinError, "pin %d", pinNumber)
	}
	return nil
}
