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
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelab-eim/RaspberryPiNode/pkg/pigpio"
)

// servePigpio answers MODES, READ, WRITE and version frames on the given connection.
func servePigpio(conn net.Conn, modes, levels map[uint32]uint32) {
	defer conn.Close()
	for {
		var frame [16]byte
		if _, err := io.ReadFull(conn, frame[:]); err != nil {
			return
		}
		cmd := pigpio.Command(binary.LittleEndian.Uint32(frame[0:]))
		gpio := binary.LittleEndian.Uint32(frame[4:])
		value := binary.LittleEndian.Uint32(frame[8:])
		res := uint32(0)
		switch cmd {
		case pigpio.CmdModes:
			modes[gpio] = value
		case pigpio.CmdWrite:
			levels[gpio] = value
		case pigpio.CmdRead:
			res = levels[gpio]
		case pigpio.CmdPigpv:
			res = 79
		case pigpio.CmdHwver:
			res = 0xa02082
		}
		binary.LittleEndian.PutUint32(frame[12:], res)
		if _, err := conn.Write(frame[:]); err != nil {
			return
		}
	}
}

func TestPigpioFactory(t *testing.T) {
	server, conn := net.Pipe()
	modes := make(map[uint32]uint32)
	levels := make(map[uint32]uint32)
	go servePigpio(server, modes, levels)

	f := newPigpioFactory(pigpio.NewClient(pigpio.Config{Host: "raspberrypi.local"}, conn))
	assert.Equal(t, DriverPigpio, f.Name())
	assert.Equal(t, "<PiGPIOFactory host=raspberrypi.local port=8888>", f.String())
	attrs := f.Attributes()
	assert.Equal(t, "raspberrypi.local", attrs["host"])
	assert.Equal(t, 8888, attrs["port"])
	assert.Equal(t, true, attrs["connected"])

	pin, err := f.Output(17, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(pigpio.ModeOutput), modes[17])

	require.NoError(t, pin.Write(true))
	value, err := pin.Read()
	require.NoError(t, err)
	assert.True(t, value)

	require.NoError(t, pin.Close())
	assert.Equal(t, uint32(pigpio.ModeInput), modes[17])

	require.NoError(t, f.Close())
	assert.Equal(t, false, f.Attributes()["connected"])
	assert.Error(t, pin.Write(false))
}

func TestOpenPigpio(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		servePigpio(conn, make(map[uint32]uint32), make(map[uint32]uint32))
	}()

	d, found := Lookup(DriverPigpio)
	require.True(t, found)
	f, err := d.Open(context.Background(), Options{
		Host: "127.0.0.1",
		Port: l.Addr().(*net.TCPAddr).Port,
		Log:  zerolog.Nop(),
	})
	require.NoError(t, err)
	defer f.Close()
	attrs := f.Attributes()
	assert.Equal(t, 79, attrs["version"])
	assert.Equal(t, "a02082", attrs["revision"])
}
