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
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelab-eim/RaspberryPiNode/pkg/adapter"
	"github.com/codelab-eim/RaspberryPiNode/pkg/eval"
	"github.com/codelab-eim/RaspberryPiNode/pkg/pinfactory"
)

type notification struct {
	Content string
	Type    adapter.NotificationType
}

// fakeBridge records everything the node publishes.
type fakeBridge struct {
	mutex         sync.Mutex
	handler       adapter.Handler
	notifications []notification
	data          []adapter.Payload
	terminated    int
	done          chan struct{}
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{done: make(chan struct{})}
}

func (b *fakeBridge) SetHandler(h adapter.Handler)          { b.handler = h }
func (b *fakeBridge) ReceiveLoop(ctx context.Context) error { return nil }
func (b *fakeBridge) Done() <-chan struct{}                 { return b.done }

func (b *fakeBridge) Publish(ctx context.Context, topic string, msg interface{}) error {
	return nil
}

func (b *fakeBridge) PublishData(ctx context.Context, payload adapter.Payload) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.data = append(b.data, payload)
	return nil
}

func (b *fakeBridge) PublishNotification(ctx context.Context, content string, typ adapter.NotificationType) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.notifications = append(b.notifications, notification{content, typ})
	return nil
}

func (b *fakeBridge) Terminate() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.terminated++
	if b.terminated == 1 {
		close(b.done)
	}
}

func (b *fakeBridge) lastData(t *testing.T) adapter.Payload {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	require.NotEmpty(t, b.data)
	return b.data[len(b.data)-1]
}

func (b *fakeBridge) terminateCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.terminated
}

// startNode runs a node on the mock pin factory until it is running.
func startNode(t *testing.T, conf Config) (*Node, *fakeBridge, *pinfactory.MockFactory) {
	if conf.PinFactory == "" {
		conf.PinFactory = pinfactory.DriverMock
	}
	conf.IdleInterval = time.Millisecond * 5
	bridge := newFakeBridge()
	n, err := New(conf, Dependencies{Log: zerolog.Nop(), Bridge: bridge})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- n.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-runDone:
		case <-time.After(time.Second):
			t.Error("Run did not end")
		}
	})
	require.Eventually(t, func() bool { return n.State() == StateRunning }, time.Second, time.Millisecond)
	return n, bridge, n.Factory().(*pinfactory.MockFactory)
}

func codeMessage(code string) adapter.Payload {
	p := adapter.Payload{
		"node_id":    json.RawMessage(`"eim/node_raspberrypi"`),
		"message_id": json.RawMessage(`"abc-123"`),
		"extra":      json.RawMessage(`{"nested":[1,2,3]}`),
	}
	p.SetContent(code)
	return p
}

// send a code message and return the published content.
func send(t *testing.T, n *Node, b *fakeBridge, code string) string {
	n.HandleMessage(context.Background(), adapter.CommandTopic, codeMessage(code))
	return b.lastData(t).Content()
}

func TestLifecycle(t *testing.T) {
	n, b, f := startNode(t, Config{})
	assert.True(t, n.Running())
	assert.Equal(t, []notification{{"Pi Connected!", adapter.NotificationSuccess}}, b.notifications)
	assert.True(t, f.IsOutput(DefaultLEDPin))
	assert.False(t, f.Level(DefaultLEDPin))

	require.NoError(t, n.Terminate())
	require.NoError(t, n.Terminate())
	assert.Equal(t, StateTerminated, n.State())
	assert.False(t, n.Running())
	assert.Equal(t, 1, b.terminateCount())
	assert.True(t, f.IsClosed())
	assert.True(t, n.LED().Closed())
}

func TestRunEndsOnStop(t *testing.T) {
	n, b, _ := startNode(t, Config{})
	n.HandleStop(context.Background())
	assert.Equal(t, StateTerminated, n.State())
	n.HandleStop(context.Background())
	assert.Equal(t, 1, b.terminateCount())
}

func TestContextCancelTerminates(t *testing.T) {
	bridge := newFakeBridge()
	n, err := New(Config{PinFactory: pinfactory.DriverMock, IdleInterval: time.Millisecond}, Dependencies{Log: zerolog.Nop(), Bridge: bridge})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- n.Run(ctx) }()
	require.Eventually(t, func() bool { return n.State() == StateRunning }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not end")
	}
	assert.Equal(t, StateTerminated, n.State())
	assert.Equal(t, 1, bridge.terminateCount())
}

func TestArithmetic(t *testing.T) {
	n, b, _ := startNode(t, Config{})
	assert.Equal(t, "2", send(t, n, b, "1+1"))
}

func TestLEDOn(t *testing.T) {
	n, b, f := startNode(t, Config{})
	assert.Equal(t, "None", send(t, n, b, "led.on()"))
	assert.True(t, f.Level(DefaultLEDPin))
}

func TestUndefinedName(t *testing.T) {
	n, b, _ := startNode(t, Config{})
	assert.Equal(t, "name 'undefined_name' is not defined", send(t, n, b, "undefined_name"))
	assert.True(t, n.Running())
}

func TestEmptyCode(t *testing.T) {
	n, b, _ := startNode(t, Config{})
	assert.Equal(t, "unexpected EOF while parsing", send(t, n, b, ""))

	// Missing content is treated as empty code
	n.HandleMessage(context.Background(), adapter.CommandTopic, adapter.Payload{})
	assert.Equal(t, "unexpected EOF while parsing", b.lastData(t).Content())
}

func TestIsLitFollowsState(t *testing.T) {
	n, b, _ := startNode(t, Config{})
	assert.Equal(t, "False", send(t, n, b, "led.is_lit"))
	assert.Equal(t, "None", send(t, n, b, "led.on()"))
	assert.Equal(t, "True", send(t, n, b, "led.is_lit"))
	assert.Equal(t, "None", send(t, n, b, "led.toggle()"))
	assert.Equal(t, "False", send(t, n, b, "led.is_lit"))
	assert.Equal(t, "1", send(t, n, b, "led.value + 1"))
}

func TestEvaluationIsIdempotent(t *testing.T) {
	n, b, f := startNode(t, Config{})
	for _, code := range []string{"led.is_lit", "led.value", "factory.name", "1+1", "7/2", "led"} {
		first := send(t, n, b, code)
		second := send(t, n, b, code)
		assert.Equal(t, first, second, code)
	}
	assert.Equal(t, "3.5", send(t, n, b, "7/2"))
	assert.False(t, f.Level(DefaultLEDPin))
	assert.False(t, n.LED().IsBlinking())
}

func TestBoundObjects(t *testing.T) {
	n, b, _ := startNode(t, Config{})
	assert.Equal(t, "<LED object on pin GPIO17, active_high=True, is_active=False>", send(t, n, b, "led"))
	assert.Equal(t, "<MockFactory>", send(t, n, b, "factory"))
	assert.Equal(t, "mock", send(t, n, b, "factory.name"))
	assert.Equal(t, "'LED' object has no attribute 'explode'", send(t, n, b, "led.explode()"))
	assert.Equal(t, "on() takes no arguments (1 given)", send(t, n, b, "led.on(1)"))
}

func TestBlink(t *testing.T) {
	n, b, f := startNode(t, Config{})
	assert.Equal(t, "None", send(t, n, b, "led.blink(0.001, 0.001, 2)"))
	require.Eventually(t, func() bool { return !n.LED().IsBlinking() }, time.Second, time.Millisecond)
	assert.False(t, f.Level(DefaultLEDPin))
	assert.Equal(t, "blink() n must be an integer, not 'x'", send(t, n, b, "led.blink(1, 1, 'x')"))
}

func TestFieldsPreserved(t *testing.T) {
	n, b, _ := startNode(t, Config{})
	send(t, n, b, "1+1")
	p := b.lastData(t)
	assert.JSONEq(t, `"abc-123"`, string(p["message_id"]))
	assert.JSONEq(t, `{"nested":[1,2,3]}`, string(p["extra"]))
	assert.JSONEq(t, `"eim/node_raspberrypi"`, string(p["node_id"]))
	_, found := p["is_error"]
	assert.False(t, found)
}

func TestMarkErrors(t *testing.T) {
	n, b, _ := startNode(t, Config{MarkErrors: true})
	send(t, n, b, "1+1")
	assert.JSONEq(t, `false`, string(b.lastData(t)["is_error"]))
	send(t, n, b, "nope")
	assert.JSONEq(t, `true`, string(b.lastData(t)["is_error"]))
}

func TestHardwareFailure(t *testing.T) {
	n, b, f := startNode(t, Config{})
	f.SetFailure(assert.AnError)
	content := send(t, n, b, "led.on()")
	assert.Contains(t, content, assert.AnError.Error())
	assert.True(t, n.Running())
}

func TestCommandMode(t *testing.T) {
	n, b, f := startNode(t, Config{EvalMode: eval.ModeCommand})
	assert.Equal(t, "None", send(t, n, b, "on"))
	assert.True(t, f.Level(DefaultLEDPin))
	assert.Equal(t, "on", send(t, n, b, "status"))
	assert.Contains(t, send(t, n, b, "led.off()"), "unknown command")
	assert.True(t, f.Level(DefaultLEDPin))
}

func TestEvaluateBeforeConnect(t *testing.T) {
	n, err := New(Config{PinFactory: pinfactory.DriverMock}, Dependencies{Log: zerolog.Nop(), Bridge: newFakeBridge()})
	require.NoError(t, err)
	assert.Equal(t, StateCreated, n.State())
	r := n.Evaluate("1+1")
	assert.True(t, r.IsError())
}

func TestUnknownPinFactory(t *testing.T) {
	bridge := newFakeBridge()
	n, err := New(Config{PinFactory: "unknown"}, Dependencies{Log: zerolog.Nop(), Bridge: bridge})
	require.NoError(t, err)
	err = n.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap failed")
	assert.Equal(t, StateCreated, n.State())
	require.NotEmpty(t, bridge.notifications)
	assert.Equal(t, "try to install gpio unknown...", bridge.notifications[0].Content)
}

// closeCounter counts how often a mock factory is closed.
type closeCounter struct {
	*pinfactory.MockFactory
	mutex  sync.Mutex
	closes int
}

func (f *closeCounter) Close() error {
	f.mutex.Lock()
	f.closes++
	f.mutex.Unlock()
	return f.MockFactory.Close()
}

func (f *closeCounter) closeCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.closes
}

const driverTerminating = "terminating"

var (
	registerTerminating sync.Once
	terminatingOpen     func() (pinfactory.Factory, error)
)

func TestTerminateWhileConnecting(t *testing.T) {
	registerTerminating.Do(func() {
		pinfactory.Register(pinfactory.NewDriver(driverTerminating, "Terminates the node while opening", false, nil,
			func(ctx context.Context, opts pinfactory.Options) (pinfactory.Factory, error) {
				return terminatingOpen()
			}))
	})
	bridge := newFakeBridge()
	n, err := New(Config{PinFactory: driverTerminating}, Dependencies{Log: zerolog.Nop(), Bridge: bridge})
	require.NoError(t, err)
	factory := &closeCounter{MockFactory: pinfactory.NewMockFactory()}
	terminatingOpen = func() (pinfactory.Factory, error) {
		require.NoError(t, n.Terminate())
		return factory, nil
	}

	require.NoError(t, n.Run(context.Background()))
	assert.Equal(t, StateTerminated, n.State())
	assert.Nil(t, n.LED())
	assert.Nil(t, n.Factory())
	assert.Equal(t, 1, factory.closeCount())
	assert.Equal(t, 1, bridge.terminateCount())
}

func TestConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	bridge := newFakeBridge()
	n, err := New(Config{Host: "127.0.0.1", Port: port}, Dependencies{Log: zerolog.Nop(), Bridge: bridge})
	require.NoError(t, err)
	err = n.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to pigpio pin factory at 127.0.0.1")
	assert.Equal(t, StateBootstrapped, n.State())
	assert.Empty(t, bridge.notifications)
}

func TestNewRequiresBridge(t *testing.T) {
	_, err := New(Config{}, Dependencies{Log: zerolog.Nop()})
	assert.Error(t, err)
	_, err = New(Config{EvalMode: "python"}, Dependencies{Log: zerolog.Nop(), Bridge: newFakeBridge()})
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	n, _, _ := startNode(t, Config{})
	s := n.Status()
	assert.Equal(t, DefaultNodeID, s.NodeID)
	assert.Equal(t, StateRunning, s.State)
	assert.Equal(t, "<MockFactory>", s.Factory)
	assert.Equal(t, eval.ModeExpression, s.EvalMode)
	assert.Equal(t, "RUNNING", n.Status().State.String())
}
