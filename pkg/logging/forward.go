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

package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/codelab-eim/RaspberryPiNode/pkg/adapter"
)

const (
	// DefaultBacklog is the number of log lines kept while the bus is slow
	DefaultBacklog = 512
)

// ForwarderConfig configures the forwarding of log lines to the bus.
type ForwarderConfig struct {
	// Topic the log lines are published on
	Topic string
	// ID of the node reported as sender
	NodeID string
	// Lines below this level stay local
	MinLevel zerolog.Level
	// Lines waiting to be published. When full, the oldest line is dropped.
	Backlog int
}

// Forwarder publishes log lines of the node on the message bus, so
// they show up in the adapter's log view.
// Publishing happens in the background; a slow bus never blocks logging.
type Forwarder struct {
	ForwarderConfig
	publisher adapter.Publisher
	lines     chan string
}

var _ zerolog.LevelWriter = &Forwarder{}

// forwardedLine is the payload of a forwarded log line.
type forwardedLine struct {
	Content string `json:"content"`
	NodeID  string `json:"node_id"`
}

type forwardedEnvelope struct {
	Payload forwardedLine `json:"payload"`
}

// NewForwarder starts forwarding lines written to it until ctx is canceled.
func NewForwarder(ctx context.Context, conf ForwarderConfig, publisher adapter.Publisher) *Forwarder {
	if conf.Topic == "" {
		conf.Topic = adapter.LogTopic
	}
	if conf.Backlog <= 0 {
		conf.Backlog = DefaultBacklog
	}
	f := &Forwarder{
		ForwarderConfig: conf,
		publisher:       publisher,
		lines:           make(chan string, conf.Backlog),
	}
	go f.run(ctx)
	return f
}

// Write queues a line without a level.
func (f *Forwarder) Write(p []byte) (int, error) {
	return f.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel queues a line when its level is high enough.
func (f *Forwarder) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.MinLevel {
		return len(p), nil
	}
	line := strings.TrimRight(string(p), "\n")
	if line == "" {
		return len(p), nil
	}
	for {
		select {
		case f.lines <- line:
			forwardedLinesTotal.Inc()
			return len(p), nil
		default:
		}
		select {
		case <-f.lines:
			droppedLinesTotal.Inc()
		default:
		}
	}
}

func (f *Forwarder) run(ctx context.Context) {
	for {
		select {
		case line := <-f.lines:
			msg := forwardedEnvelope{Payload: forwardedLine{Content: line, NodeID: f.NodeID}}
			// Logging the failure would be forwarded again
			if err := f.publisher.Publish(ctx, f.Topic, msg); err != nil {
				failedLinesTotal.Inc()
			}
		case <-ctx.Done():
			return
		}
	}
}
