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
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Driver is a named way of creating pin factories.
// Drivers register themselves and are resolved by name at startup.
type Driver struct {
	name        string
	description string
	remote      bool
	init        func() error
	open        func(ctx context.Context, opts Options) (Factory, error)

	mutex       sync.Mutex
	initialized bool
}

var (
	driversMutex sync.RWMutex
	drivers      = make(map[string]*Driver)
)

// NewDriver creates a driver.
// The init function is optional; when given the driver is not ready
// until Init has succeeded.
func NewDriver(name, description string, remote bool, init func() error,
	open func(ctx context.Context, opts Options) (Factory, error)) *Driver {
	return &Driver{
		name:        name,
		description: description,
		remote:      remote,
		init:        init,
		open:        open,
		initialized: init == nil,
	}
}

// Register a driver. Panics when a driver with the same name exists.
func Register(d *Driver) {
	driversMutex.Lock()
	defer driversMutex.Unlock()

	if _, found := drivers[d.name]; found {
		panic(fmt.Sprintf("pin factory driver '%s' registered twice", d.name))
	}
	drivers[d.name] = d
}

// Lookup a driver by name.
func Lookup(name string) (*Driver, bool) {
	driversMutex.RLock()
	defer driversMutex.RUnlock()
	d, found := drivers[name]
	return d, found
}

// Names returns the sorted names of all registered drivers.
func Names() []string {
	driversMutex.RLock()
	defer driversMutex.RUnlock()
	result := make([]string, 0, len(drivers))
	for name := range drivers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Name of the driver
func (d *Driver) Name() string { return d.name }

// Description of the driver
func (d *Driver) Description() string { return d.description }

// IsRemote returns true if the driver controls pins over the network.
func (d *Driver) IsRemote() bool { return d.remote }

// Ready returns true when the driver can open factories.
func (d *Driver) Ready() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.initialized
}

// Init loads whatever the driver needs (host drivers, kernel interfaces).
// Calling Init on a ready driver is a no-op.
func (d *Driver) Init() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.initialized {
		return nil
	}
	if err := d.init(); err != nil {
		return errors.Wrapf(err, "failed to initialize pin factory driver '%s'", d.name)
	}
	d.initialized = true
	return nil
}

// Open a factory with the given options.
func (d *Driver) Open(ctx context.Context, opts Options) (Factory, error) {
	if !d.Ready() {
		return nil, errors.Errorf("pin factory driver '%s' is not initialized", d.name)
	}
	factoryOpenTotal.WithLabelValues(d.name).Inc()
	f, err := d.open(ctx, opts)
	if err != nil {
		factoryOpenErrorsTotal.WithLabelValues(d.name).Inc()
		return nil, maskAny(err)
	}
	return f, nil
}
