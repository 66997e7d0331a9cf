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
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// MultiWriter writes log lines to all of its outputs.
type MultiWriter interface {
	zerolog.LevelWriter
	// Add an output
	Add(w io.Writer)
}

type multiWriter struct {
	mutex   sync.RWMutex
	writers []io.Writer
}

// NewMultiWriter creates a new output for logs and can add outputs
// on the fly.
func NewMultiWriter(writers ...io.Writer) MultiWriter {
	return &multiWriter{
		writers: writers,
	}
}

// Add an output.
func (l *multiWriter) Add(w io.Writer) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.writers = append(l.writers, w)
}

// Write to all outputs. A failing output does not stop the others,
// the first error is returned.
func (l *multiWriter) Write(p []byte) (n int, err error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	for _, w := range l.writers {
		if _, werr := w.Write(p); werr != nil && err == nil {
			err = werr
		}
	}
	return len(p), err
}

// WriteLevel passes the level on to outputs that filter on it.
func (l *multiWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	for _, w := range l.writers {
		var werr error
		if lw, ok := w.(zerolog.LevelWriter); ok {
			_, werr = lw.WriteLevel(level, p)
		} else {
			_, werr = w.Write(p)
		}
		if werr != nil && err == nil {
			err = werr
		}
	}
	return len(p), err
}
