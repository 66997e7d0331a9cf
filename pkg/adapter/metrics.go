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
	"github.com/codelab-eim/RaspberryPiNode/pkg/metrics"
)

const (
	subSystem = "mqtt"
)

var (
	mqttConnectErrorsTotal = metrics.MustRegisterCounter(subSystem, "connect_errors_total", "Number of failed connections to the broker")
	mqttPublishTotal       = metrics.MustRegisterCounterVec(subSystem, "publish_total", "Number of published messages", "topic")
	mqttPublishErrorsTotal = metrics.MustRegisterCounterVec(subSystem, "publish_errors_total", "Number of messages that failed to publish", "topic")
	mqttReceivedTotal      = metrics.MustRegisterCounterVec(subSystem, "received_total", "Number of received messages", "topic")
)
