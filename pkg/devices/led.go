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

package devices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/codelab-eim/RaspberryPiNode/pkg/pinfactory"
)

var (
	// DeviceClosedError is returned when using a closed device.
	DeviceClosedError = errors.New("device is closed or uninitialized")
	maskAny           = errors.WithStack
)

// LEDConfig configures an LED.
type LEDConfig struct {
	// BCM number of the pin the LED is connected to
	Pin int
	// If set, the LED is lit when the pin is high
	ActiveHigh bool
	// Logical state of the LED after creation
	InitialValue bool
}

// LED is a single light emitting diode on an output pin.
type LED struct {
	log        zerolog.Logger
	mutex      sync.Mutex
	pin        pinfactory.OutputPin
	number     int
	activeHigh bool
	value      bool
	closed     bool
	blink      struct {
		cancel context.CancelFunc
		done   chan struct{}
	}
}

var _ Device = &LED{}

// NewLED creates an LED on a pin supplied by the given factory.
func NewLED(log zerolog.Logger, factory pinfactory.Factory, config LEDConfig) (*LED, error) {
	pin, err := factory.Output(config.Pin, config.InitialValue == config.ActiveHigh)
	if err != nil {
		return nil, errors.Wrapf(err, "Output[%s] failed", pinfactory.PinName(config.Pin))
	}
	return &LED{
		log:        log.With().Str("component", "led").Int("pin", config.Pin).Logger(),
		pin:        pin,
		number:     config.Pin,
		activeHigh: config.ActiveHigh,
		value:      config.InitialValue,
	}, nil
}

// On turns the LED on, cancelling any blinking.
func (l *LED) On() error {
	l.stopBlink()
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.write(true)
}

// Off turns the LED off, cancelling any blinking.
func (l *LED) Off() error {
	l.stopBlink()
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.write(false)
}

// Toggle reverses the state of the LED.
func (l *LED) Toggle() error {
	l.stopBlink()
	l.mutex.Lock()
	defer l.mutex.Unlock()
	lit, err := l.isLit()
	if err != nil {
		return err
	}
	return l.write(!lit)
}

// Blink the LED in the background with the given on and off times.
// When n is positive, the LED blinks n times and then stays off,
// otherwise it blinks until another state is set.
func (l *LED) Blink(onTime, offTime time.Duration, n int) error {
	l.stopBlink()
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return maskAny(DeviceClosedError)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.blink.cancel = cancel
	l.blink.done = done
	go l.runBlink(ctx, done, onTime, offTime, n)
	return nil
}

func (l *LED) runBlink(ctx context.Context, done chan struct{}, onTime, offTime time.Duration, n int) {
	defer func() {
		l.mutex.Lock()
		if l.blink.done == done {
			l.blink.cancel()
			l.blink.cancel, l.blink.done = nil, nil
		}
		l.mutex.Unlock()
		close(done)
	}()
	for i := 0; n <= 0 || i < n; i++ {
		for _, step := range []struct {
			value bool
			delay time.Duration
		}{{true, onTime}, {false, offTime}} {
			l.mutex.Lock()
			if ctx.Err() == nil {
				if err := l.write(step.value); err != nil {
					l.log.Warn().Err(err).Msg("Blink write failed")
				}
			}
			l.mutex.Unlock()
			select {
			case <-time.After(step.delay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// stopBlink cancels blinking and waits for the blink loop to end.
func (l *LED) stopBlink() {
	l.mutex.Lock()
	cancel, done := l.blink.cancel, l.blink.done
	l.blink.cancel, l.blink.done = nil, nil
	l.mutex.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// IsLit returns true when the LED is on, as read back from the pin.
func (l *LED) IsLit() (bool, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.isLit()
}

// Value returns 1 when the LED is on, 0 otherwise.
func (l *LED) Value() (int, error) {
	lit, err := l.IsLit()
	if err != nil {
		return 0, err
	}
	if lit {
		return 1, nil
	}
	return 0, nil
}

// IsBlinking returns true while a background blink is active.
func (l *LED) IsBlinking() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.blink.cancel != nil
}

// PinName returns the name of the pin, e.g. GPIO17
func (l *LED) PinName() string {
	return pinfactory.PinName(l.number)
}

// ActiveHigh returns true if the LED is lit when its pin is high.
func (l *LED) ActiveHigh() bool {
	return l.activeHigh
}

// Closed returns true once the LED has been closed.
func (l *LED) Closed() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.closed
}

// Close turns the LED off and releases its pin.
// Closing a closed LED is a no-op.
func (l *LED) Close() error {
	l.stopBlink()
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.pin.Close(); err != nil {
		return errors.Wrap(err, "Close failed")
	}
	return nil
}

// String describes the LED using its last known state.
func (l *LED) String() string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.closed {
		return "<LED object closed>"
	}
	return fmt.Sprintf("<LED object on pin %s, active_high=%s, is_active=%s>",
		pinfactory.PinName(l.number), pythonBool(l.activeHigh), pythonBool(l.value))
}

// write the logical value. Requires the mutex to be held.
func (l *LED) write(value bool) error {
	if l.closed {
		return maskAny(DeviceClosedError)
	}
	if err := l.pin.Write(value == l.activeHigh); err != nil {
		return errors.Wrap(err, "Write failed")
	}
	l.value = value
	return nil
}

// isLit reads the logical value. Requires the mutex to be held.
func (l *LED) isLit() (bool, error) {
	if l.closed {
		return false, maskAny(DeviceClosedError)
	}
	level, err := l.pin.Read()
	if err != nil {
		return false, errors.Wrap(err, "Read failed")
	}
	l.value = level == l.activeHigh
	return l.value, nil
}

func pythonBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
