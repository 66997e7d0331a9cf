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

//go:build linux

package pinfactory

import (
	"context"
	"os"
	"sync"

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

const (
	// DriverSysfs controls local pins through the kernel sysfs interface.
	DriverSysfs = "sysfs"

	sysfsGPIOPath = "/sys/class/gpio"
)

func init() {
	Register(NewDriver(DriverSysfs, "Local pins through /sys/class/gpio", false, initSysfs,
		func(ctx context.Context, opts Options) (Factory, error) {
			return &sysfsFactory{}, nil
		}))
}

// initSysfs verifies that the kernel exposes the GPIO sysfs interface.
func initSysfs() error {
	if _, err := os.Stat(sysfsGPIOPath); err != nil {
		return errors.Wrapf(err, "%s not available", sysfsGPIOPath)
	}
	return nil
}

type sysfsFactory struct{}

// Name of the driver that created this factory
func (f *sysfsFactory) Name() string { return DriverSysfs }

// Output initializes a GPIO output pin with the given pin number
// and initial value.
func (f *sysfsFactory) Output(pinNumber int, initialValue bool) (OutputPin, error) {
	if err := validatePinNumber(pinNumber); err != nil {
		return nil, err
	}
	activeLow := false
	pin, err := gpio.Output(pinNumber, activeLow, initialValue)
	if err != nil {
		return nil, errors.Wrapf(err, "Output[%s] failed", PinName(pinNumber))
	}
	return &sysfsPin{pin: pin, number: pinNumber, value: initialValue}, nil
}

func (f *sysfsFactory) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"name":      DriverSysfs,
		"host":      "localhost",
		"port":      0,
		"connected": true,
	}
}

func (f *sysfsFactory) Close() error { return nil }

func (f *sysfsFactory) String() string { return "<SysfsFactory>" }

type sysfsPin struct {
	mutex  sync.Mutex
	pin    gpio.OutputPin
	number int
	value  bool
}

func (p *sysfsPin) Number() int { return p.number }

func (p *sysfsPin) Write(value bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	pinWritesTotal.WithLabelValues(DriverSysfs).Inc()
	if err := p.pin.Write(value); err != nil {
		pinErrorsTotal.WithLabelValues(DriverSysfs).Inc()
		return errors.Wrap(err, "Write failed")
	}
	p.value = value
	return nil
}

// Read returns the last written value; sysfs output pins are write-only here.
func (p *sysfsPin) Read() (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.value, nil
}

func (p *sysfsPin) Close() error {
	return p.Write(false)
}
