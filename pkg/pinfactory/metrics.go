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
	"github.com/codelab-eim/RaspberryPiNode/pkg/metrics"
)

const (
	subSystem = "pinfactory"
)

var (
	// Total number of times a factory is opened
	factoryOpenTotal = metrics.MustRegisterCounterVec(subSystem,
		"open_total",
		"Total number of times a pin factory is opened",
		"driver")
	// Total number of times opening a factory failed
	factoryOpenErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"open_errors_total",
		"Total number of times opening a pin factory failed",
		"driver")
	// Total number of pin writes
	pinWritesTotal = metrics.MustRegisterCounterVec(subSystem,
		"pin_writes_total",
		"Total number of pin writes",
		"driver")
	// Total number of failed pin operations
	pinErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"pin_errors_total",
		"Total number of failed pin operations",
		"driver")
)
