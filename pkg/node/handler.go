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

	"github.com/codelab-eim/RaspberryPiNode/pkg/adapter"
	"github.com/codelab-eim/RaspberryPiNode/pkg/eval"
)

const (
	keyIsError = "is_error"
)

var _ adapter.Handler = &Node{}

// HandleMessage evaluates the content of the payload and publishes the
// payload with its content replaced by the result.
// All other fields are published unchanged.
func (n *Node) HandleMessage(ctx context.Context, topic string, payload adapter.Payload) {
	code := payload.Content()
	n.Log.Info().Str("code", code).Msg("Received code")
	nodeMessagesTotal.Inc()

	result := n.Evaluate(code)
	if result.IsError() {
		nodeFailuresTotal.Inc()
		n.Log.Debug().Err(result.Err).Str("code", code).Msg("Evaluation failed")
	}

	reply := payload.Clone()
	reply.SetContent(result.String())
	if n.MarkErrors {
		reply.Set(keyIsError, result.IsError())
	}
	if err := n.Bridge.PublishData(ctx, reply); err != nil {
		nodePublishErrors.Inc()
		n.Log.Error().Err(err).Msg("Failed to publish result")
	}
}

// HandleStop terminates the node.
func (n *Node) HandleStop(ctx context.Context) {
	n.Log.Info().Msg("Stop requested")
	n.Terminate()
}

// Evaluate the given code against the LED and pin factory.
func (n *Node) Evaluate(code string) eval.Result {
	n.mutex.Lock()
	evaluator := n.evaluator
	n.mutex.Unlock()
	if evaluator == nil {
		return eval.Result{Err: &eval.Error{Kind: eval.KindRuntime, Message: "GPIO is not connected"}}
	}
	return evaluator.Evaluate(code)
}
