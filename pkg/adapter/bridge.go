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
)

// Handler processes messages received by a bridge.
type Handler interface {
	// HandleMessage is called for every code message addressed to this node.
	HandleMessage(ctx context.Context, topic string, payload Payload)
	// HandleStop is called when the node is asked to stop.
	HandleStop(ctx context.Context)
}

// Publisher sends messages.
type Publisher interface {
	// Publish the JSON encoding of msg on the given topic.
	Publish(ctx context.Context, topic string, msg interface{}) error
}

// Notifier sends notifications to the user.
type Notifier interface {
	// PublishNotification publishes a notification with given content and type.
	PublishNotification(ctx context.Context, content string, typ NotificationType) error
}

// Bridge connects the node to the message bus.
type Bridge interface {
	Publisher
	Notifier

	// SetHandler sets the handler of incoming messages.
	// Must be called before ReceiveLoop.
	SetHandler(h Handler)
	// ReceiveLoop connects and delivers messages to the handler until
	// the given context is canceled or the bridge is terminated.
	ReceiveLoop(ctx context.Context) error
	// PublishData publishes the payload on the data topic.
	PublishData(ctx context.Context, payload Payload) error
	// Terminate disconnects the bridge. Calls after the first are ignored.
	Terminate()
	// Done is closed once the bridge is terminated.
	Done() <-chan struct{}
}
