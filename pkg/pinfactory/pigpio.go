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
	"fmt"

	"github.com/pkg/errors"

	"github.com/codelab-eim/RaspberryPiNode/pkg/pigpio"
)

const (
	// DriverPigpio controls pins through a (remote) pigpio daemon.
	DriverPigpio = "pigpio"
)

func init() {
	Register(NewDriver(DriverPigpio, "Remote pins through the pigpio daemon", true, nil, openPigpio))
}

type pigpioFactory struct {
	client   *pigpio.Client
	version  uint32
	revision uint32
}

// openPigpio connects to the pigpio daemon.
func openPigpio(ctx context.Context, opts Options) (Factory, error) {
	client, err := pigpio.Dial(ctx, pigpio.Config{
		Host:           opts.Host,
		Port:           opts.Port,
		CommandTimeout: opts.CommandTimeout,
	})
	if err != nil {
		return nil, maskAny(err)
	}
	f := &pigpioFactory{client: client}
	if f.version, err = client.DaemonVersion(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to query pigpio daemon version")
	}
	if f.revision, err = client.HardwareRevision(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to query hardware revision")
	}
	opts.Log.Debug().
		Str("address", client.Address()).
		Uint32("daemon-version", f.version).
		Str("hardware-revision", fmt.Sprintf("%x", f.revision)).
		Msg("Connected to pigpio daemon")
	return f, nil
}

// newPigpioFactory builds a factory on an existing client.
func newPigpioFactory(client *pigpio.Client) Factory {
	return &pigpioFactory{client: client}
}

// Name of the driver that created this factory
func (f *pigpioFactory) Name() string { return DriverPigpio }

// Output initializes a GPIO output pin with the given pin number
// and initial value.
func (f *pigpioFactory) Output(pinNumber int, initialValue bool) (OutputPin, error) {
	if err := validatePinNumber(pinNumber); err != nil {
		return nil, err
	}
	gpio := uint(pinNumber)
	if err := f.client.SetMode(gpio, pigpio.ModeOutput); err != nil {
		return nil, maskAny(err)
	}
	if err := f.client.Write(gpio, initialValue); err != nil {
		return nil, maskAny(err)
	}
	return &pigpioPin{client: f.client, number: pinNumber}, nil
}

func (f *pigpioFactory) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"name":      DriverPigpio,
		"host":      f.client.Host,
		"port":      f.port(),
		"connected": f.client.Connected(),
		"version":   int(f.version),
		"revision":  fmt.Sprintf("%x", f.revision),
	}
}

func (f *pigpioFactory) port() int {
	if f.client.Port == 0 {
		return pigpio.DefaultPort
	}
	return f.client.Port
}

func (f *pigpioFactory) Close() error {
	return f.client.Close()
}

func (f *pigpioFactory) String() string {
	return fmt.Sprintf("<PiGPIOFactory host=%s port=%d>", f.client.Host, f.port())
}

type pigpioPin struct {
	client *pigpio.Client
	number int
}

func (p *pigpioPin) Number() int { return p.number }

// Write the physical level of the pin
func (p *pigpioPin) Write(value bool) error {
	pinWritesTotal.WithLabelValues(DriverPigpio).Inc()
	if err := p.client.Write(uint(p.number), value); err != nil {
		pinErrorsTotal.WithLabelValues(DriverPigpio).Inc()
		return maskAny(err)
	}
	return nil
}

// Read back the physical level of the pin
func (p *pigpioPin) Read() (bool, error) {
	value, err := p.client.Read(uint(p.number))
	if err != nil {
		pinErrorsTotal.WithLabelValues(DriverPigpio).Inc()
		return false, maskAny(err)
	}
	return value, nil
}

// Close switches the pin back to input
func (p *pigpioPin) Close() error {
	if err := p.client.SetMode(uint(p.number), pigpio.ModeInput); err != nil {
		return maskAny(err)
	}
	return nil
}
