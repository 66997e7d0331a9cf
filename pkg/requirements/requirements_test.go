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
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelab-eim/RaspberryPiNode/pkg/adapter"
)

type notification struct {
	Content string
	Type    adapter.NotificationType
}

type recordingNotifier struct {
	notifications []notification
}

func (n *recordingNotifier) PublishNotification(ctx context.Context, content string, typ adapter.NotificationType) error {
	n.notifications = append(n.notifications, notification{content, typ})
	return nil
}

// installable returns a requirement that is met after installing it.
func installable(name string, installed bool) (*Requirement, *int) {
	installs := 0
	return &Requirement{
		Name: name,
		Check: func() error {
			if !installed {
				return errors.New(name + " not found")
			}
			return nil
		},
		Install: func(ctx context.Context) error {
			installs++
			installed = true
			return nil
		},
	}, &installs
}

func TestEnsureAllMet(t *testing.T) {
	gpio, installs := installable("gpio", true)
	n := &recordingNotifier{}
	require.NoError(t, Ensure(context.Background(), zerolog.Nop(), n, []Requirement{*gpio}))
	assert.Empty(t, n.notifications)
	assert.Equal(t, 0, *installs)
}

func TestEnsureInstallsMissing(t *testing.T) {
	gpio, gpioInstalls := installable("gpio", true)
	pigpio, pigpioInstalls := installable("pigpio", false)
	n := &recordingNotifier{}
	require.NoError(t, Ensure(context.Background(), zerolog.Nop(), n, []Requirement{*gpio, *pigpio}))
	assert.Equal(t, 0, *gpioInstalls)
	assert.Equal(t, 1, *pigpioInstalls)
	assert.Equal(t, []notification{
		{"try to install gpio pigpio...", adapter.NotificationInfo},
		{"gpio pigpio installed!", adapter.NotificationInfo},
	}, n.notifications)
}

func TestEnsureInstallFails(t *testing.T) {
	r := Requirement{
		Name:    "pigpio",
		Check:   func() error { return errors.New("missing") },
		Install: func(ctx context.Context) error { return errors.New("no network") },
	}
	n := &recordingNotifier{}
	err := Ensure(context.Background(), zerolog.Nop(), n, []Requirement{r})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no network")
	assert.Len(t, n.notifications, 1)
}

func TestEnsureStillMissingAfterInstall(t *testing.T) {
	installs := 0
	r := Requirement{
		Name:  "pigpio",
		Check: func() error { return errors.New("missing") },
		Install: func(ctx context.Context) error {
			installs++
			return nil
		},
	}
	err := Ensure(context.Background(), zerolog.Nop(), &recordingNotifier{}, []Requirement{r})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not met after install")
	assert.Equal(t, 1, installs)
}

func TestEnsureNotInstallable(t *testing.T) {
	r := Requirement{Name: "gpio", Check: func() error { return errors.New("unknown driver") }}
	err := Ensure(context.Background(), zerolog.Nop(), &recordingNotifier{}, []Requirement{r})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be installed")
}
