// Copyright 2018 Ewout Prangsma
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
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DebugLogName is the name of the debug log file
	DebugLogName = "debug.log"
)

// DefaultDir returns the directory of the debug log of the node with given ID,
// ~/codelab_adapter/node_log/<node>.
func DefaultDir(nodeID string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to find home directory")
	}
	return filepath.Join(home, "codelab_adapter", "node_log", path.Base(nodeID)), nil
}

// NewFileWriter creates a debug log in the given directory that is
// rotated when it reaches the given size.
func NewFileWriter(dir string, maxSizeMB int) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create log directory %s", dir)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, DebugLogName),
		MaxSize:    maxSizeMB,
		MaxBackups: 5,
		LocalTime:  true,
	}, nil
}
