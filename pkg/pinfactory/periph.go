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
	"context"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// DriverPeriph controls local pins through the periph.io host drivers.
	DriverPeriph = "periph"
)

func init() {
	Register(NewDriver(DriverPeriph, "Local pins through periph.io host drivers", false, initPeriph,
		func(ctx context.Context, opts Options) (Factory, error) {
			return &periphFactory{}, nil
		}))
}

// initPeriph loads all periph host drivers.
func initPeriph() error {
	if _, err := host.Init(); err != nil {
		return maskAny(err)
	}
	return nil
}

type periphFactory struct{}

// Name of the driver that created this factory
func (f *periphFactory) Name() string { return DriverPeriph }

// Output initializes a GPIO output pin with the given pin number
// and initial value.
func (f *periphFactory) Output(pinNumber int, initialValue bool) (OutputPin, error) {
	if err := validatePinNumber(pinNumber); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(PinName(pinNumber))
	if p == nil {
		return nil, errors.Wrapf(InvalidPinError, "pin %s not found", PinName(pinNumber))
	}
	if err := p.Out(gpio.Level(initialValue)); err != nil {
		return nil, errors.Wrapf(err, "Out[%s] failed", PinName(pinNumber))
	}
	return &periphPin{pin: p, number: pinNumber}, nil
}

func (f *periphFactory) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"name":      DriverPeriph,
		"host":      "localhost",
		"port":      0,
		"connected": true,
	}
}

func (f *periphFactory) Close() error { return nil }

func (f *periphFactory) String() string { return "<PeriphFactory>" }

type periphPin struct {
	pin    gpio.PinIO
	number int
}

func (p *periphPin) Number() int { return p.number }

func (p *periphPin) Write(value bool) error {
	pinWritesTotal.WithLabelValues(DriverPeriph).Inc()
	if err := p.pin.Out(gpio.Level(value)); err != nil {
		pinErrorsTotal.WithLabelValues(DriverPeriph).Inc()
		return maskAny(err)
	}
	return nil
}

func (p *periphPin) Read() (bool, error) {
	return p.pin.Read() == gpio.High, nil
}

// Close halts the pin and turns it into a floating input.
func (p *periphPin) Close() error {
	if err := p.pin.Halt(); err != nil {
		return maskAny(err)
	}
	if err := p.pin.In(gpio.Float, gpio.NoEdge); err != nil {
		return maskAny(err)
	}
	return nil
}
