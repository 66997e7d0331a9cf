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

package requirements

import (
	"context"
	"fmt"
	"strings"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/codelab-eim/RaspberryPiNode/pkg/adapter"
)

var (
	maskAny = errors.WithStack
)

// Requirement is something the node needs before it can connect.
type Requirement struct {
	// Name as shown to the user
	Name string
	// Check returns nil when the requirement is met.
	Check func() error
	// Install tries to meet the requirement. Nil when it cannot be installed.
	Install func(ctx context.Context) error
}

// Names returns the names of the given requirements.
func Names(reqs []Requirement) []string {
	names := make([]string, 0, len(reqs))
	for _, r := range reqs {
		names = append(names, r.Name)
	}
	return names
}

// Ensure makes sure that all requirements are met.
// When one or more are not met, the user is notified, the missing
// requirements are installed once and all are checked again.
func Ensure(ctx context.Context, log zerolog.Logger, notifier adapter.Notifier, reqs []Requirement) error {
	missing := unresolved(reqs)
	if len(missing) == 0 {
		log.Debug().Strs("requirements", Names(reqs)).Msg("All requirements met")
		return nil
	}
	names := strings.Join(Names(reqs), " ")
	log.Info().Strs("missing", Names(missing)).Msg("Installing requirements")
	if err := notifier.PublishNotification(ctx, fmt.Sprintf("try to install %s...", names), adapter.NotificationInfo); err != nil {
		log.Warn().Err(err).Msg("Failed to publish notification")
	}
	for _, r := range missing {
		if r.Install == nil {
			return errors.Errorf("requirement '%s' cannot be installed", r.Name)
		}
		if err := r.Install(ctx); err != nil {
			return errors.Wrapf(err, "failed to install '%s'", r.Name)
		}
	}
	if err := notifier.PublishNotification(ctx, fmt.Sprintf("%s installed!", names), adapter.NotificationInfo); err != nil {
		log.Warn().Err(err).Msg("Failed to publish notification")
	}

	var ae aerr.AggregateError
	for _, r := range reqs {
		if err := r.Check(); err != nil {
			ae.Add(errors.Wrapf(err, "requirement '%s' not met after install", r.Name))
		}
	}
	return maskAny(ae.AsError())
}

// unresolved returns all requirements whose check fails.
func unresolved(reqs []Requirement) []Requirement {
	var result []Requirement
	for _, r := range reqs {
		if err := r.Check(); err != nil {
			result = append(result, r)
		}
	}
	return result
}
