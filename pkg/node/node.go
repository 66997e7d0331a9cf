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

package node

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/codelab-eim/RaspberryPiNode/pkg/adapter"
	"github.com/codelab-eim/RaspberryPiNode/pkg/devices"
	"github.com/codelab-eim/RaspberryPiNode/pkg/eval"
	"github.com/codelab-eim/RaspberryPiNode/pkg/pinfactory"
	"github.com/codelab-eim/RaspberryPiNode/pkg/requirements"
)

const (
	// DefaultNodeID identifies this node on the message bus
	DefaultNodeID = "eim/node_raspberrypi"
	// DefaultHost of the pin daemon
	DefaultHost = "raspberrypi.local"
	// DefaultLEDPin is the BCM number of the LED pin
	DefaultLEDPin = 17
	// DefaultIdleInterval between checks of the running flag
	DefaultIdleInterval = time.Millisecond * 500
	// RequirementGPIO is the name of the GPIO library requirement
	RequirementGPIO = "gpio"
)

var (
	maskAny = errors.WithStack
)

// Config of a node.
type Config struct {
	// ID of the node on the message bus
	NodeID string
	// Name of the pin factory driver
	PinFactory string
	// Address of the pin daemon (remote drivers only)
	Host string
	Port int
	// Limit of a single remote pin operation. Zero means no limit.
	CommandTimeout time.Duration
	// BCM number of the LED pin
	LEDPin int
	// Grammar accepted for code messages
	EvalMode eval.Mode
	// If set, results carry an is_error field
	MarkErrors bool
	// Interval between checks of the running flag
	IdleInterval time.Duration
}

// setDefaults fills in all empty fields.
func (c *Config) setDefaults() {
	if c.NodeID == "" {
		c.NodeID = DefaultNodeID
	}
	if c.PinFactory == "" {
		c.PinFactory = pinfactory.DriverPigpio
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.LEDPin == 0 {
		c.LEDPin = DefaultLEDPin
	}
	if c.EvalMode == "" {
		c.EvalMode = eval.ModeExpression
	}
	if c.IdleInterval == 0 {
		c.IdleInterval = DefaultIdleInterval
	}
}

// Dependencies of a node.
type Dependencies struct {
	Log    zerolog.Logger
	Bridge adapter.Bridge
}

// Node bridges the message bus to the GPIO pins of a Raspberry Pi.
type Node struct {
	Config
	Dependencies

	running   atomic.Bool
	startedAt time.Time

	mutex     sync.Mutex
	state     State
	driver    *pinfactory.Driver
	factory   pinfactory.Factory
	led       *devices.LED
	evaluator *eval.Evaluator
}

// New creates a node and registers it as handler of the bridge.
func New(conf Config, deps Dependencies) (*Node, error) {
	if deps.Bridge == nil {
		return nil, errors.New("bridge is required")
	}
	conf.setDefaults()
	if _, err := eval.ParseMode(string(conf.EvalMode)); err != nil {
		return nil, maskAny(err)
	}
	deps.Log = deps.Log.With().Str("component", "node").Str("node", conf.NodeID).Logger()
	n := &Node{
		Config:       conf,
		Dependencies: deps,
		startedAt:    time.Now(),
		state:        StateCreated,
	}
	n.running.Store(true)
	nodeStateGauge.Set(float64(StateCreated))
	deps.Bridge.SetHandler(n)
	return n, nil
}

// Run bootstraps the node, connects to the pin factory and then idles
// until the node is terminated or the context is canceled.
func (n *Node) Run(ctx context.Context) error {
	if err := n.bootstrap(ctx); err != nil {
		return maskAny(err)
	}
	if err := n.connect(ctx); err != nil {
		return maskAny(err)
	}
	if !n.setState(StateConnected, StateRunning) {
		return nil
	}
	n.Log.Info().Msg("Running")
	for n.running.Load() {
		select {
		case <-time.After(n.IdleInterval):
			// Continue
		case <-ctx.Done():
			n.Terminate()
			return nil
		}
	}
	return nil
}

// bootstrap makes sure the GPIO library and pin factory driver are available.
func (n *Node) bootstrap(ctx context.Context) error {
	reqs := []requirements.Requirement{
		{
			Name: RequirementGPIO,
			Check: func() error {
				_, err := n.lookupDriver()
				return err
			},
		},
		{
			Name: n.PinFactory,
			Check: func() error {
				d, err := n.lookupDriver()
				if err != nil {
					return err
				}
				if !d.Ready() {
					return errors.Errorf("pin factory driver '%s' is not initialized", d.Name())
				}
				return nil
			},
			Install: func(ctx context.Context) error {
				d, err := n.lookupDriver()
				if err != nil {
					return err
				}
				return d.Init()
			},
		},
	}
	if err := requirements.Ensure(ctx, n.Log, n.Bridge, reqs); err != nil {
		return errors.Wrap(err, "bootstrap failed")
	}
	driver, err := n.lookupDriver()
	if err != nil {
		return maskAny(err)
	}

	n.mutex.Lock()
	n.driver = driver
	n.mutex.Unlock()
	n.setState(StateCreated, StateBootstrapped)
	n.Log.Debug().Str("driver", driver.Name()).Msg("Bootstrapped")
	return nil
}

func (n *Node) lookupDriver() (*pinfactory.Driver, error) {
	d, found := pinfactory.Lookup(n.PinFactory)
	if !found {
		return nil, errors.Errorf("unknown pin factory '%s', expected one of %s",
			n.PinFactory, strings.Join(pinfactory.Names(), ", "))
	}
	return d, nil
}

// connect opens the pin factory and creates the LED.
func (n *Node) connect(ctx context.Context) error {
	n.mutex.Lock()
	driver := n.driver
	n.mutex.Unlock()

	factory, err := driver.Open(ctx, pinfactory.Options{
		Host:           n.Host,
		Port:           n.Port,
		CommandTimeout: n.CommandTimeout,
		Log:            n.Log,
	})
	if err != nil {
		if driver.IsRemote() {
			return errors.Wrapf(err, "failed to connect to %s pin factory at %s", driver.Name(), n.Host)
		}
		return errors.Wrapf(err, "failed to open %s pin factory", driver.Name())
	}
	n.Log.Info().Str("factory", factory.String()).Msg("Connected to pin factory")
	if err := n.Bridge.PublishNotification(ctx, "Pi Connected!", adapter.NotificationSuccess); err != nil {
		n.Log.Warn().Err(err).Msg("Failed to publish notification")
	}

	led, err := devices.NewLED(n.Log, factory, devices.LEDConfig{Pin: n.LEDPin, ActiveHigh: true})
	if err != nil {
		factory.Close()
		return maskAny(err)
	}
	evaluator := eval.NewEvaluator(n.Log, n.EvalMode, eval.Scope{
		"led":     newLEDObject(led),
		"factory": newFactoryObject(factory),
	})

	if !n.attach(factory, led, evaluator) {
		// Terminated while connecting
		var ae aerr.AggregateError
		ae.Add(led.Close())
		ae.Add(factory.Close())
		return maskAny(ae.AsError())
	}
	return nil
}

// attach stores the connected devices and moves to StateConnected.
// Once terminated nothing is stored and false is returned, leaving the
// devices to the caller.
func (n *Node) attach(factory pinfactory.Factory, led *devices.LED, evaluator *eval.Evaluator) bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.state != StateBootstrapped {
		return false
	}
	n.factory = factory
	n.led = led
	n.evaluator = evaluator
	n.state = StateConnected
	nodeStateGauge.Set(float64(StateConnected))
	n.Log.Debug().Stringer("state", StateConnected).Msg("State changed")
	return true
}

// Terminate stops the node and releases the LED, the pin factory and
// the bridge. Only the first call has any effect.
func (n *Node) Terminate() error {
	if !n.running.CompareAndSwap(true, false) {
		return nil
	}
	nodeTerminateTotal.Inc()

	n.mutex.Lock()
	n.state = StateTerminated
	led, factory := n.led, n.factory
	n.mutex.Unlock()
	nodeStateGauge.Set(float64(StateTerminated))

	var ae aerr.AggregateError
	n.Bridge.Terminate()
	if led != nil {
		ae.Add(led.Close())
	}
	if factory != nil {
		ae.Add(factory.Close())
	}
	if err := ae.AsError(); err != nil {
		n.Log.Warn().Err(err).Msg("Terminated with errors")
		return maskAny(err)
	}
	n.Log.Info().Msg("Terminated")
	return nil
}

// Running returns true until the node is terminated.
func (n *Node) Running() bool {
	return n.running.Load()
}

// State returns the current state of the node.
func (n *Node) State() State {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.state
}

// setState changes the state when the node is in the expected state.
func (n *Node) setState(expected, state State) bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.state != expected {
		return false
	}
	n.state = state
	nodeStateGauge.Set(float64(state))
	n.Log.Debug().Stringer("state", state).Msg("State changed")
	return true
}

// Factory returns the pin factory, nil before the node is connected.
func (n *Node) Factory() pinfactory.Factory {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.factory
}

// LED returns the LED, nil before the node is connected.
func (n *Node) LED() *devices.LED {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.led
}

// Status summarizes the node.
type Status struct {
	NodeID     string        `json:"node_id"`
	State      State         `json:"state"`
	PinFactory string        `json:"pin_factory"`
	Factory    string        `json:"factory,omitempty"`
	LED        string        `json:"led,omitempty"`
	EvalMode   eval.Mode     `json:"eval_mode"`
	Uptime     time.Duration `json:"uptime"`
}

// Status returns a summary of the node.
func (n *Node) Status() Status {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	s := Status{
		NodeID:     n.NodeID,
		State:      n.state,
		PinFactory: n.PinFactory,
		EvalMode:   n.EvalMode,
		Uptime:     time.Since(n.startedAt),
	}
	if n.factory != nil {
		s.Factory = n.factory.String()
	}
	if n.led != nil {
		s.LED = n.led.String()
	}
	return s
}

func (n *Node) String() string {
	return fmt.Sprintf("%s (%s)", n.NodeID, n.State())
}
