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

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	maskAny = errors.WithStack
)

const (
	defaultConnectTimeout = time.Second * 10
	defaultPublishTimeout = time.Second
	disconnectQuiesce     = 250 // ms
	qos                   = 0
	inboundQueueSize      = 64
)

// Config of an MQTT bridge.
type Config struct {
	// host:port of the broker
	BrokerAddress string
	// Client ID, defaults to node ID
	ClientID string
	// ID of the node, used to filter messages
	NodeID   string
	Username string
	Password string
	// Timeouts, zero for defaults
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Dependencies of an MQTT bridge.
type Dependencies struct {
	Log zerolog.Logger
}

type inboundMessage struct {
	topic   string
	payload Payload
}

type mqttBridge struct {
	Config
	Dependencies

	mutex     sync.Mutex
	client    mqttapi.Client
	newClient func(*mqttapi.ClientOptions) mqttapi.Client
	handler   Handler
	inbound   chan inboundMessage
	done      chan struct{}
	terminate sync.Once
}

// NewMQTTBridge creates a bridge to an MQTT broker.
// The connection is made on first use.
func NewMQTTBridge(conf Config, deps Dependencies) Bridge {
	if conf.ClientID == "" {
		conf.ClientID = strings.ReplaceAll(conf.NodeID, "/", "-")
	}
	if conf.ConnectTimeout == 0 {
		conf.ConnectTimeout = defaultConnectTimeout
	}
	if conf.PublishTimeout == 0 {
		conf.PublishTimeout = defaultPublishTimeout
	}
	deps.Log = deps.Log.With().Str("component", "mqtt-bridge").Logger()
	return &mqttBridge{
		Config:       conf,
		Dependencies: deps,
		newClient:    mqttapi.NewClient,
		inbound:      make(chan inboundMessage, inboundQueueSize),
		done:         make(chan struct{}),
	}
}

// SetHandler sets the handler of incoming messages.
func (b *mqttBridge) SetHandler(h Handler) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.handler = h
}

// Done is closed once the bridge is terminated.
func (b *mqttBridge) Done() <-chan struct{} {
	return b.done
}

// ReceiveLoop connects and delivers messages until the context is
// canceled or the bridge is terminated.
// The handler is invoked from this goroutine, one message at a time.
func (b *mqttBridge) ReceiveLoop(ctx context.Context) error {
	if _, err := b.getClient(); err != nil {
		return maskAny(err)
	}
	b.Log.Info().Str("broker", b.BrokerAddress).Msg("Receiving messages")
	for {
		select {
		case msg := <-b.inbound:
			b.dispatch(ctx, msg)
		case <-ctx.Done():
			b.Terminate()
			return nil
		case <-b.done:
			return nil
		}
	}
}

// dispatch a received message to the handler.
func (b *mqttBridge) dispatch(ctx context.Context, msg inboundMessage) {
	b.mutex.Lock()
	handler := b.handler
	b.mutex.Unlock()
	if handler == nil {
		b.Log.Warn().Str("topic", msg.topic).Msg("No handler for message")
		return
	}

	switch msg.topic {
	case OperateTopic:
		if msg.payload.Content() == OperateStop {
			handler.HandleStop(ctx)
		}
	case CommandTopic:
		handler.HandleMessage(ctx, msg.topic, msg.payload)
	}
}

// getClient returns the connected client, connecting when needed.
func (b *mqttBridge) getClient() (mqttapi.Client, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	select {
	case <-b.done:
		return nil, errors.New("bridge is terminated")
	default:
	}
	if b.client != nil {
		return b.client, nil
	}

	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + b.BrokerAddress).
		SetClientID(b.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(b.ConnectTimeout)
	opts.SetOrderMatters(true)
	opts.SetAutoReconnect(true)
	if b.Username != "" {
		opts.SetUsername(b.Username)
		opts.SetPassword(b.Password)
	}
	opts.SetDefaultPublishHandler(func(c mqttapi.Client, m mqttapi.Message) {
		// Ignore messages when no subscription match
	})
	opts.SetOnConnectHandler(func(c mqttapi.Client) {
		b.Log.Debug().Msg("Connected to MQTT")
		for _, topic := range []string{CommandTopic, OperateTopic} {
			if token := c.Subscribe(topic, qos, b.onMessage); token.Wait() && token.Error() != nil {
				b.Log.Error().Err(token.Error()).Msgf("failed to subscribe to '%s'", topic)
			} else {
				b.Log.Debug().Msgf("Subscribed to MQTT topic '%s'", topic)
			}
		}
	})
	opts.SetConnectionLostHandler(func(c mqttapi.Client, err error) {
		b.Log.Warn().Err(err).Msg("Lost connection to MQTT")
	})

	client := b.newClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		mqttConnectErrorsTotal.Inc()
		return nil, errors.Wrapf(token.Error(), "failed to connect to mqtt at %s", b.BrokerAddress)
	}
	b.client = client
	return client, nil
}

// Publish the JSON encoding of msg on the given topic.
func (b *mqttBridge) Publish(ctx context.Context, topic string, msg interface{}) error {
	encoded, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode message")
	}
	client, err := b.getClient()
	if err != nil {
		return maskAny(err)
	}
	token := client.Publish(topic, qos, false, encoded)
	select {
	case <-token.Done():
	case <-ctx.Done():
		mqttPublishErrorsTotal.WithLabelValues(topic).Inc()
		return maskAny(ctx.Err())
	case <-time.After(b.PublishTimeout):
		mqttPublishErrorsTotal.WithLabelValues(topic).Inc()
		return errors.Errorf("failed to deliver message to '%s' in time", topic)
	}
	if err := token.Error(); err != nil {
		mqttPublishErrorsTotal.WithLabelValues(topic).Inc()
		return errors.Wrapf(err, "failed to publish to '%s'", topic)
	}
	mqttPublishTotal.WithLabelValues(topic).Inc()
	return nil
}

// PublishData publishes the payload on the data topic.
// The node ID is added unless the payload already has one.
func (b *mqttBridge) PublishData(ctx context.Context, payload Payload) error {
	if err := payload.setDefault(keyNodeID, b.NodeID); err != nil {
		return maskAny(err)
	}
	return b.Publish(ctx, DataTopic, Envelope{Payload: payload})
}

// PublishNotification publishes a notification with given content and type.
func (b *mqttBridge) PublishNotification(ctx context.Context, content string, typ NotificationType) error {
	payload := Payload{}
	payload.Set("type", string(typ))
	payload.SetContent(content)
	payload.Set(keyNodeID, b.NodeID)
	b.Log.Debug().Str("type", string(typ)).Str("content", content).Msg("Notification")
	return b.Publish(ctx, NotificationTopic, Envelope{Payload: payload})
}

// Terminate disconnects from the broker.
func (b *mqttBridge) Terminate() {
	b.terminate.Do(func() {
		b.mutex.Lock()
		defer b.mutex.Unlock()

		if b.client != nil {
			b.client.Disconnect(disconnectQuiesce)
			b.client = nil
		}
		close(b.done)
		b.Log.Info().Msg("Terminated")
	})
}

// onMessage queues a received message for the receive loop.
// It is called by the MQTT client and must not call the client.
func (b *mqttBridge) onMessage(client mqttapi.Client, msg mqttapi.Message) {
	mqttReceivedTotal.WithLabelValues(msg.Topic()).Inc()
	env, err := ParseEnvelope(msg.Payload())
	if err != nil {
		b.Log.Warn().Err(err).Str("topic", msg.Topic()).Msg("Ignoring message")
		return
	}
	if nodeID := env.Payload.NodeID(); nodeID != b.NodeID {
		// Addressed to another node
		return
	}
	select {
	case b.inbound <- inboundMessage{topic: msg.Topic(), payload: env.Payload}:
	case <-b.done:
	}
}

func (b *mqttBridge) String() string {
	return fmt.Sprintf("mqtt://%s (%s)", b.BrokerAddress, b.NodeID)
}
