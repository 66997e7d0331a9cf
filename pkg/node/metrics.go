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
	"github.com/codelab-eim/RaspberryPiNode/pkg/metrics"
)

const (
	subSystem = "node"
)

var (
	nodeStateGauge     = metrics.MustRegisterGauge(subSystem, "state", "Current state of the node")
	nodeMessagesTotal  = metrics.MustRegisterCounter(subSystem, "messages_total", "Number of handled code messages")
	nodeFailuresTotal  = metrics.MustRegisterCounter(subSystem, "evaluation_failures_total", "Number of code messages that resulted in an error")
	nodePublishErrors  = metrics.MustRegisterCounter(subSystem, "publish_errors_total", "Number of results that could not be published")
	nodeTerminateTotal = metrics.MustRegisterCounter(subSystem, "terminate_total", "Number of times the node terminated")
)
