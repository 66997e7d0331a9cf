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
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config of the process logger.
type Config struct {
	// Level of console output
	Level string
	// Directory of the debug log, empty to use DefaultDir
	Dir string
	// Size in MB at which the debug log is rotated
	MaxSize int
	NodeID  string
	// Console output, defaults to stderr
	Console io.Writer
}

// Output holds the outputs of a logger.
type Output struct {
	MultiWriter
	file io.Closer
	// Path of the debug log
	Path string
}

// Close the debug log.
func (o *Output) Close() error {
	if o.file != nil {
		return o.file.Close()
	}
	return nil
}

// New creates a logger that writes to the console at the configured
// level and everything (debug and up) to a rotating debug log.
func New(conf Config) (zerolog.Logger, *Output, error) {
	level, err := zerolog.ParseLevel(conf.Level)
	if err != nil {
		return zerolog.Nop(), nil, errors.Wrapf(err, "invalid log level '%s'", conf.Level)
	}
	dir := conf.Dir
	if dir == "" {
		if dir, err = DefaultDir(conf.NodeID); err != nil {
			return zerolog.Nop(), nil, err
		}
	}
	file, err := NewFileWriter(dir, conf.MaxSize)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	console := conf.Console
	if console == nil {
		console = os.Stderr
	}

	out := &Output{
		MultiWriter: NewMultiWriter(
			&levelWriter{Writer: zerolog.ConsoleWriter{Out: console}, level: level},
			file,
		),
		file: file,
		Path: file.Filename,
	}
	logger := zerolog.New(out).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	logger.Debug().
		Str("path", out.Path).
		Str("max-size", humanize.Bytes(uint64(conf.MaxSize)*humanize.MByte)).
		Msg("Writing debug log")
	return logger, out, nil
}

// levelWriter drops lines below a level.
type levelWriter struct {
	io.Writer
	level zerolog.Level
}

// WriteLevel implements zerolog.LevelWriter.
func (w *levelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < w.level {
		return len(p), nil
	}
	return w.Writer.Write(p)
}
