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

package pigpio

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultPort is the port pigpiod listens on unless configured otherwise.
	DefaultPort = 8888

	frameSize = 16
)

// Config of a connection to a pigpio daemon.
type Config struct {
	Host string
	Port int
	// Limit of a single command round trip. Zero means no limit.
	CommandTimeout time.Duration
}

// Address returns host:port of the daemon.
func (c Config) Address() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Client talks the pigpiod socket protocol over a single connection.
// Every command is a 16 byte frame (cmd, p1, p2, p3) answered by a
// 16 byte frame whose last word holds the result.
type Client struct {
	Config
	mutex sync.Mutex
	conn  net.Conn
}

// Dial opens a connection to the daemon described by the given config.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Address())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to pigpio daemon at %s", cfg.Address())
	}
	return NewClient(cfg, conn), nil
}

// NewClient wraps an already established connection.
func NewClient(cfg Config, conn net.Conn) *Client {
	return &Client{
		Config: cfg,
		conn:   conn,
	}
}

// SetMode sets the mode of the given GPIO.
func (c *Client) SetMode(gpio uint, mode Mode) error {
	_, err := c.command(CmdModes, uint32(gpio), uint32(mode))
	return err
}

// GetMode returns the mode of the given GPIO.
func (c *Client) GetMode(gpio uint) (Mode, error) {
	res, err := c.command(CmdModeg, uint32(gpio), 0)
	if err != nil {
		return 0, err
	}
	return Mode(res), nil
}

// SetPull sets the pull up/down resistor of the given GPIO.
func (c *Client) SetPull(gpio uint, pull Pull) error {
	_, err := c.command(CmdPud, uint32(gpio), uint32(pull))
	return err
}

// Read the level of the given GPIO.
func (c *Client) Read(gpio uint) (bool, error) {
	res, err := c.command(CmdRead, uint32(gpio), 0)
	if err != nil {
		return false, err
	}
	return res != 0, nil
}

// Write the level of the given GPIO.
func (c *Client) Write(gpio uint, level bool) error {
	value := uint32(0)
	if level {
		value = 1
	}
	_, err := c.command(CmdWrite, uint32(gpio), value)
	return err
}

// SetPWMDutyCycle starts PWM on the given GPIO (0-255 by default).
func (c *Client) SetPWMDutyCycle(gpio uint, dutyCycle uint) error {
	_, err := c.command(CmdPWM, uint32(gpio), uint32(dutyCycle))
	return err
}

// GetPWMDutyCycle returns the PWM dutycycle of the given GPIO.
func (c *Client) GetPWMDutyCycle(gpio uint) (uint, error) {
	res, err := c.command(CmdGdc, uint32(gpio), 0)
	if err != nil {
		return 0, err
	}
	return uint(res), nil
}

// HardwareRevision returns the revision code of the Pi the daemon runs on.
func (c *Client) HardwareRevision() (uint32, error) {
	res, err := c.command(CmdHwver, 0, 0)
	if err != nil {
		return 0, err
	}
	return uint32(res), nil
}

// DaemonVersion returns the version of the pigpio daemon.
func (c *Client) DaemonVersion() (uint32, error) {
	res, err := c.command(CmdPigpv, 0, 0)
	if err != nil {
		return 0, err
	}
	return uint32(res), nil
}

// Connected returns true until the client is closed.
func (c *Client) Connected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.conn != nil
}

// Close the connection to the daemon.
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil
	if err := conn.Close(); err != nil {
		return maskAny(err)
	}
	return nil
}

// command sends a single command frame and waits for its response.
func (c *Client) command(cmd Command, p1, p2 uint32) (int32, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conn == nil {
		return 0, maskAny(ClosedError)
	}
	if c.CommandTimeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.CommandTimeout))
		defer c.conn.SetDeadline(time.Time{})
	}

	var req [frameSize]byte
	binary.LittleEndian.PutUint32(req[0:], uint32(cmd))
	binary.LittleEndian.PutUint32(req[4:], p1)
	binary.LittleEndian.PutUint32(req[8:], p2)
	// p3 (extension length) stays 0
	if _, err := c.conn.Write(req[:]); err != nil {
		return 0, errors.Wrapf(err, "%s: send failed", cmd)
	}
	var resp [frameSize]byte
	if _, err := io.ReadFull(c.conn, resp[:]); err != nil {
		return 0, errors.Wrapf(err, "%s: receive failed", cmd)
	}
	res := int32(binary.LittleEndian.Uint32(resp[12:]))
	if res < 0 && cmd != CmdHwver {
		return res, maskAny(&DaemonError{Command: cmd, Code: res})
	}
	return res, nil
}
