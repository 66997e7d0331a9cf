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
	"github.com/codelab-eim/RaspberryPiNode/pkg/metrics"
)

const (
	subSystem = "log"
)

var (
	forwardedLinesTotal = metrics.MustRegisterCounter(subSystem, "forwarded_lines_total", "Number of log lines queued for the message bus")
	droppedLinesTotal   = metrics.MustRegisterCounter(subSystem, "dropped_lines_total", "Number of log lines dropped because the backlog was full")
	failedLinesTotal    = metrics.MustRegisterCounter(subSystem, "failed_lines_total", "Number of log lines that failed to publish")
)
