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
	"sync"
)

const (
	// DriverMock keeps pin state in memory, for use without hardware.
	DriverMock = "mock"
)

func init() {
	Register(NewDriver(DriverMock, "In-memory pins without hardware", false, nil,
		func(ctx context.Context, opts Options) (Factory, error) {
			return NewMockFactory(), nil
		}))
}

// MockFactory is an in-memory pin factory.
type MockFactory struct {
	mutex   sync.Mutex
	levels  map[int]bool
	outputs map[int]bool
	failure error
	closed  bool
}

// NewMockFactory creates an empty mock factory.
func NewMockFactory() *MockFactory {
	return &MockFactory{
		levels:  make(map[int]bool),
		outputs: make(map[int]bool),
	}
}

// Name of the driver that created this factory
func (f *MockFactory) Name() string { return DriverMock }

// Output initializes a GPIO output pin with the given pin number
// and initial value.
func (f *MockFactory) Output(pinNumber int, initialValue bool) (OutputPin, error) {
	if err := validatePinNumber(pinNumber); err != nil {
		return nil, err
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.failure != nil {
		return nil, f.failure
	}
	f.levels[pinNumber] = initialValue
	f.outputs[pinNumber] = true
	return &mockPin{factory: f, number: pinNumber}, nil
}

// Level returns the physical level of the given pin.
func (f *MockFactory) Level(pinNumber int) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.levels[pinNumber]
}

// IsOutput returns true if the given pin is configured as output.
func (f *MockFactory) IsOutput(pinNumber int) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.outputs[pinNumber]
}

// SetFailure makes all following pin operations fail with the given error.
// Pass nil to recover.
func (f *MockFactory) SetFailure(err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.failure = err
}

// IsClosed returns true once Close has been called.
func (f *MockFactory) IsClosed() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.closed
}

func (f *MockFactory) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"name":      DriverMock,
		"host":      "",
		"port":      0,
		"connected": !f.IsClosed(),
	}
}

func (f *MockFactory) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.closed = true
	return nil
}

func (f *MockFactory) String() string {
	return "<MockFactory>"
}

type mockPin struct {
	factory *MockFactory
	number  int
}

func (p *mockPin) Number() int { return p.number }

func (p *mockPin) Write(value bool) error {
	f := p.factory
	f.mutex.Lock()
	defer f.mutex.Unlock()
	pinWritesTotal.WithLabelValues(DriverMock).Inc()
	if f.failure != nil {
		pinErrorsTotal.WithLabelValues(DriverMock).Inc()
		return f.failure
	}
	f.levels[p.number] = value
	return nil
}

func (p *mockPin) Read() (bool, error) {
	f := p.factory
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.failure != nil {
		pinErrorsTotal.WithLabelValues(DriverMock).Inc()
		return false, f.failure
	}
	return f.levels[p.number], nil
}

func (p *mockPin) Close() error {
	f := p.factory
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.outputs[p.number] = false
	return nil
}
