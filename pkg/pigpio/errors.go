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

package pigpio

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ClosedError is returned when a command is send over a closed client.
	ClosedError = errors.New("pigpio client closed")
	maskAny     = errors.WithStack
)

// DaemonError is returned when the pigpio daemon responds with
// a negative status code.
type DaemonError struct {
	Command Command
	Code    int32
}

// Known pigpio status codes
var daemonErrorMessages = map[int32]string{
	-1:  "gpioInitialise failed",
	-2:  "GPIO not 0-31",
	-3:  "GPIO not 0-53",
	-4:  "mode not 0-7",
	-5:  "level not 0-1",
	-6:  "pud not 0-2",
	-7:  "pulsewidth not 0 or 500-2500",
	-8:  "dutycycle outside set range",
	-41: "GPIO operation not permitted",
}

// Error implements the error interface
func (e *DaemonError) Error() string {
	if msg, found := daemonErrorMessages[e.Code]; found {
		return fmt.Sprintf("%s failed: %s", e.Command, msg)
	}
	return fmt.Sprintf("%s failed: pigpio error %d", e.Command, e.Code)
}

// IsDaemonError returns true when the cause of the given error
// is a DaemonError.
func IsDaemonError(err error) bool {
	_, ok := errors.Cause(err).(*DaemonError)
	return ok
}
