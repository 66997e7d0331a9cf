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
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/codelab-eim/RaspberryPiNode/pkg/eval"
	"github.com/codelab-eim/RaspberryPiNode/pkg/node"
	"github.com/codelab-eim/RaspberryPiNode/pkg/pigpio"
	"github.com/codelab-eim/RaspberryPiNode/pkg/pinfactory"
)

const (
	// Environment variables
	EnvPigpioAddr = "PIGPIO_ADDR"
	EnvPigpioPort = "PIGPIO_PORT"
	EnvPinFactory = "GPIOZERO_PIN_FACTORY"
	EnvBroker     = "PINODE_MQTT_BROKER"
	EnvLogLevel   = "PINODE_LOG_LEVEL"

	defaultBroker = "localhost:1883"
)

// Config of the node process.
type Config struct {
	Node   NodeConfig   `yaml:"node"`
	GPIO   GPIOConfig   `yaml:"gpio"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

type NodeConfig struct {
	ID         string `yaml:"id"`
	EvalMode   string `yaml:"eval_mode"`
	MarkErrors bool   `yaml:"mark_errors"`
}

type GPIOConfig struct {
	// "auto" selects a driver based on the machine
	PinFactory     string        `yaml:"pin_factory"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	LEDPin         int           `yaml:"led_pin"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Directory of the debug log. Empty means the node log directory
	// in the home directory.
	Dir string `yaml:"dir"`
	// Size in MB at which the debug log is rotated
	MaxSize int `yaml:"max_size"`
	// If set, log lines are forwarded to the message bus
	Forward bool `yaml:"forward"`
	// Minimum level of forwarded lines
	ForwardLevel string `yaml:"forward_level"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	// Zero disables the server
	Port int `yaml:"port"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Node: NodeConfig{
			ID:       node.DefaultNodeID,
			EvalMode: string(eval.ModeExpression),
		},
		GPIO: GPIOConfig{
			PinFactory: pinfactory.DriverPigpio,
			Host:       node.DefaultHost,
			Port:       pigpio.DefaultPort,
			LEDPin:     node.DefaultLEDPin,
		},
		MQTT: MQTTConfig{
			Broker: defaultBroker,
		},
		Log: LogConfig{
			Level:        "info",
			MaxSize:      1,
			ForwardLevel: "info",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
		},
	}
}

// LoadFile merges the YAML file at given path into the config.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// ApplyEnv overrides fields with values from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPigpioAddr); ok && v != "" {
		c.GPIO.Host = v
	}
	if v, ok := lookup(EnvPigpioPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvPigpioPort)
		}
		c.GPIO.Port = port
	}
	if v, ok := lookup(EnvPinFactory); ok && v != "" {
		c.GPIO.PinFactory = v
	}
	if v, ok := lookup(EnvBroker); ok && v != "" {
		c.MQTT.Broker = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// RegisterFlags adds flags for all fields to the given set.
// The current values are used as flag defaults.
func (c *Config) RegisterFlags(f *pflag.FlagSet) {
	f.StringVar(&c.Node.ID, "node-id", c.Node.ID, "ID of the node on the message bus")
	f.StringVar(&c.Node.EvalMode, "eval-mode", c.Node.EvalMode, "Grammar of code messages (expression|command)")
	f.BoolVar(&c.Node.MarkErrors, "mark-errors", c.Node.MarkErrors, "Add is_error to results")
	f.StringVar(&c.GPIO.PinFactory, "pin-factory", c.GPIO.PinFactory, "Pin factory driver, 'auto' to detect")
	f.StringVar(&c.GPIO.Host, "host", c.GPIO.Host, "Host of the pigpio daemon")
	f.IntVar(&c.GPIO.Port, "port", c.GPIO.Port, "Port of the pigpio daemon")
	f.IntVar(&c.GPIO.LEDPin, "led-pin", c.GPIO.LEDPin, "BCM number of the LED pin")
	f.DurationVar(&c.GPIO.CommandTimeout, "command-timeout", c.GPIO.CommandTimeout, "Limit of a remote pin operation, 0 for none")
	f.StringVar(&c.MQTT.Broker, "mqtt-broker", c.MQTT.Broker, "Address (host:port) of the MQTT broker")
	f.StringVar(&c.MQTT.Username, "mqtt-username", c.MQTT.Username, "Username for the MQTT broker")
	f.StringVar(&c.MQTT.Password, "mqtt-password", c.MQTT.Password, "Password for the MQTT broker")
	f.StringVar(&c.Log.Level, "log-level", c.Log.Level, "Log level")
	f.StringVar(&c.Log.Dir, "log-dir", c.Log.Dir, "Directory of the debug log")
	f.IntVar(&c.Log.MaxSize, "log-max-size", c.Log.MaxSize, "Size in MB at which the debug log is rotated")
	f.BoolVar(&c.Log.Forward, "log-forward", c.Log.Forward, "Forward log lines to the message bus")
	f.StringVar(&c.Log.ForwardLevel, "log-forward-level", c.Log.ForwardLevel, "Minimum level of log lines forwarded to the message bus")
	f.StringVar(&c.Server.Host, "server-host", c.Server.Host, "Host to serve metrics and status on")
	f.IntVar(&c.Server.Port, "server-port", c.Server.Port, "Port to serve metrics and status on, 0 to disable")
}

// Parse builds the configuration from defaults, an optional config file,
// the environment and command line arguments, in increasing precedence.
func Parse(name string, args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	// First pass finds the config file and reports invalid flags
	var path string
	pre := pflag.NewFlagSet(name, pflag.ContinueOnError)
	pre.StringVarP(&path, "config", "c", "", "Path of a YAML config file")
	Defaults().RegisterFlags(pre)
	if err := pre.Parse(args); err != nil {
		return nil, err
	}

	cfg := Defaults()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, maskAny(err)
		}
	}
	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, maskAny(err)
	}

	// Second pass applies flags on top
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "Path of a YAML config file")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, maskAny(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, maskAny(err)
	}
	return cfg, nil
}

// Validate the configuration.
func (c *Config) Validate() error {
	if c.Node.ID == "" {
		return errors.New("node id is empty")
	}
	if _, err := eval.ParseMode(c.Node.EvalMode); err != nil {
		return maskAny(err)
	}
	if c.GPIO.Port <= 0 || c.GPIO.Port > 65535 {
		return errors.Errorf("invalid pigpio port %d", c.GPIO.Port)
	}
	if c.GPIO.LEDPin <= 0 {
		return errors.Errorf("invalid LED pin %d", c.GPIO.LEDPin)
	}
	if c.GPIO.CommandTimeout < 0 {
		return errors.New("command timeout must not be negative")
	}
	if c.MQTT.Broker == "" {
		return errors.New("mqtt broker is empty")
	}
	if c.Log.MaxSize <= 0 {
		return errors.Errorf("invalid log max size %d", c.Log.MaxSize)
	}
	if _, err := zerolog.ParseLevel(c.Log.ForwardLevel); err != nil {
		return errors.Wrap(err, "invalid log forward level")
	}
	return nil
}

var maskAny = errors.WithStack
