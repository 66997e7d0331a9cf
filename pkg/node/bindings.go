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
	"fmt"
	"time"

	"github.com/codelab-eim/RaspberryPiNode/pkg/devices"
	"github.com/codelab-eim/RaspberryPiNode/pkg/eval"
	"github.com/codelab-eim/RaspberryPiNode/pkg/pinfactory"
)

// ledObject exposes an LED to evaluated code.
type ledObject struct {
	led *devices.LED
}

func newLEDObject(led *devices.LED) eval.Object {
	return &ledObject{led: led}
}

func (o *ledObject) TypeName() string { return "LED" }

func (o *ledObject) Attributes() (map[string]interface{}, error) {
	lit, err := o.led.IsLit()
	if err != nil {
		return nil, err
	}
	value := 0
	if lit {
		value = 1
	}
	return map[string]interface{}{
		"is_lit":      lit,
		"is_active":   lit,
		"value":       value,
		"pin":         o.led.PinName(),
		"active_high": o.led.ActiveHigh(),
		"closed":      o.led.Closed(),
		"is_blinking": o.led.IsBlinking(),
	}, nil
}

func (o *ledObject) Call(method string, args []interface{}) (interface{}, error) {
	switch method {
	case "on", "off", "toggle", "close":
		if len(args) != 0 {
			return nil, typeErrorf("%s() takes no arguments (%d given)", method, len(args))
		}
	}
	switch method {
	case "on":
		return nil, o.led.On()
	case "off":
		return nil, o.led.Off()
	case "toggle":
		return nil, o.led.Toggle()
	case "close":
		return nil, o.led.Close()
	case "blink":
		onTime, offTime, n, err := blinkArgs(args)
		if err != nil {
			return nil, err
		}
		return nil, o.led.Blink(onTime, offTime, n)
	default:
		return nil, eval.ErrUnknownAttribute
	}
}

func (o *ledObject) String() string { return o.led.String() }

// blinkArgs parses on_time, off_time (seconds, default 1) and n
// (default forever).
func blinkArgs(args []interface{}) (time.Duration, time.Duration, int, error) {
	if len(args) > 3 {
		return 0, 0, 0, typeErrorf("blink() takes at most 3 arguments (%d given)", len(args))
	}
	onTime, offTime, n := time.Second, time.Second, 0
	for i, arg := range args {
		if arg == nil {
			continue
		}
		switch i {
		case 0, 1:
			secs, ok := toFloat(arg)
			if !ok || secs < 0 {
				return 0, 0, 0, typeErrorf("blink() time must be a positive number, not %s", eval.Repr(arg))
			}
			d := time.Duration(secs * float64(time.Second))
			if i == 0 {
				onTime = d
			} else {
				offTime = d
			}
		case 2:
			count, ok := arg.(int)
			if !ok {
				return 0, 0, 0, typeErrorf("blink() n must be an integer, not %s", eval.Repr(arg))
			}
			n = count
		}
	}
	return onTime, offTime, n, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func typeErrorf(format string, args ...interface{}) error {
	return &eval.Error{Kind: eval.KindType, Message: fmt.Sprintf(format, args...)}
}

// factoryObject exposes a pin factory to evaluated code.
type factoryObject struct {
	factory pinfactory.Factory
}

func newFactoryObject(factory pinfactory.Factory) eval.Object {
	return &factoryObject{factory: factory}
}

func (o *factoryObject) TypeName() string { return "PinFactory" }

func (o *factoryObject) Attributes() (map[string]interface{}, error) {
	return o.factory.Attributes(), nil
}

func (o *factoryObject) Call(method string, args []interface{}) (interface{}, error) {
	switch method {
	case "close":
		if len(args) != 0 {
			return nil, typeErrorf("close() takes no arguments (%d given)", len(args))
		}
		return nil, o.factory.Close()
	default:
		return nil, eval.ErrUnknownAttribute
	}
}

func (o *factoryObject) String() string { return o.factory.String() }
