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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse("test", nil, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "eim/node_raspberrypi", cfg.Node.ID)
	assert.Equal(t, "expression", cfg.Node.EvalMode)
	assert.Equal(t, "raspberrypi.local", cfg.GPIO.Host)
	assert.Equal(t, 8888, cfg.GPIO.Port)
	assert.Equal(t, 17, cfg.GPIO.LEDPin)
	assert.Equal(t, "pigpio", cfg.GPIO.PinFactory)
	assert.Equal(t, time.Duration(0), cfg.GPIO.CommandTimeout)
	assert.Equal(t, 1, cfg.Log.MaxSize)
	assert.Equal(t, "info", cfg.Log.ForwardLevel)
	assert.Equal(t, 0, cfg.Server.Port)
	assert.False(t, cfg.Node.MarkErrors)
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node:
  mark_errors: true
gpio:
  host: 192.168.1.3
  port: 9999
  command_timeout: 2s
mqtt:
  broker: broker.local:1883
`), 0600))

	// File only
	cfg, err := Parse("test", []string{"--config", path}, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.3", cfg.GPIO.Host)
	assert.Equal(t, 9999, cfg.GPIO.Port)
	assert.Equal(t, 2*time.Second, cfg.GPIO.CommandTimeout)
	assert.Equal(t, "broker.local:1883", cfg.MQTT.Broker)
	assert.True(t, cfg.Node.MarkErrors)

	// Environment beats file
	e := env(map[string]string{EnvPigpioAddr: "pi.lan", EnvPinFactory: "mock"})
	cfg, err = Parse("test", []string{"-c", path}, e)
	require.NoError(t, err)
	assert.Equal(t, "pi.lan", cfg.GPIO.Host)
	assert.Equal(t, 9999, cfg.GPIO.Port)
	assert.Equal(t, "mock", cfg.GPIO.PinFactory)

	// Flags beat environment
	cfg, err = Parse("test", []string{"-c", path, "--host", "10.0.0.2", "--mark-errors=false"}, e)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", cfg.GPIO.Host)
	assert.Equal(t, "mock", cfg.GPIO.PinFactory)
	assert.False(t, cfg.Node.MarkErrors)
}

func TestInvalid(t *testing.T) {
	_, err := Parse("test", []string{"--eval-mode", "python"}, env(nil))
	assert.Error(t, err)
	_, err = Parse("test", nil, env(map[string]string{EnvPigpioPort: "abc"}))
	assert.Error(t, err)
	_, err = Parse("test", []string{"--port", "0"}, env(nil))
	assert.Error(t, err)
	_, err = Parse("test", []string{"--config", "/does/not/exist.yaml"}, env(nil))
	assert.Error(t, err)
	_, err = Parse("test", []string{"--log-forward-level", "loud"}, env(nil))
	assert.Error(t, err)
	_, err = Parse("test", []string{"--no-such-flag"}, env(nil))
	assert.Error(t, err)
	_, err = Parse("test", []string{"--help"}, env(nil))
	assert.Equal(t, pflag.ErrHelp, err)
}
