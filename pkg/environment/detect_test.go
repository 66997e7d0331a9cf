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
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDetectPinFactory(t *testing.T) {
	assert.Equal(t, PinFactoryRemote, detectPinFactory("x86_64", ""))
	assert.Equal(t, PinFactoryRemote, detectPinFactory("x86_64", "Raspberry Pi 4 Model B Rev 1.4"))
	assert.Equal(t, PinFactoryLocal, detectPinFactory("aarch64", "Raspberry Pi 4 Model B Rev 1.4"))
	assert.Equal(t, PinFactoryLocal, detectPinFactory("armv7l", "Raspberry Pi 3 Model B Plus Rev 1.3"))
	assert.Equal(t, PinFactoryRemote, detectPinFactory("armv7l", "Xunlong Orange Pi Zero"))
}

func TestAutoDetectPinFactory(t *testing.T) {
	result := AutoDetectPinFactory(zerolog.Nop())
	assert.Contains(t, []string{PinFactoryLocal, PinFactoryRemote}, result)
}

func TestResolvePinFactory(t *testing.T) {
	log := zerolog.Nop()
	assert.Equal(t, PinFactoryRemote, ResolvePinFactory(log, ""))
	assert.Equal(t, "pigpio", ResolvePinFactory(log, "pigpio"))
	assert.Equal(t, "mock", ResolvePinFactory(log, "mock"))
	// Explicit names are never replaced by detection
	assert.Equal(t, "periph", ResolvePinFactory(log, "periph"))
	assert.Contains(t, []string{PinFactoryLocal, PinFactoryRemote}, ResolvePinFactory(log, "auto"))
	assert.Contains(t, []string{PinFactoryLocal, PinFactoryRemote}, ResolvePinFactory(log, " Auto "))
}
