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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := NewMultiWriter(&a)
	w.Add(&b)
	n, err := w.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "line\n", a.String())
	assert.Equal(t, "line\n", b.String())
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	log, out, err := New(Config{Level: "info", Dir: dir, MaxSize: 1, NodeID: "eim/node_raspberrypi", Console: &console})
	require.NoError(t, err)
	defer out.Close()

	log.Debug().Msg("only in file")
	log.Info().Msg("everywhere")

	assert.Equal(t, filepath.Join(dir, DebugLogName), out.Path)
	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "only in file")
	assert.Contains(t, string(data), "everywhere")
	assert.NotContains(t, console.String(), "only in file")
	assert.Contains(t, console.String(), "everywhere")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud", Dir: t.TempDir(), MaxSize: 1})
	assert.Error(t, err)
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("HOME", "/home/pi")
	dir, err := DefaultDir("eim/node_raspberrypi")
	require.NoError(t, err)
	assert.Equal(t, "/home/pi/codelab_adapter/node_log/node_raspberrypi", dir)
}

// recordingPublisher records published messages. When release is set,
// every publish waits for it.
type recordingPublisher struct {
	mutex    sync.Mutex
	topics   []string
	messages []interface{}
	release  chan struct{}
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, msg interface{}) error {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.messages)
}

func (p *recordingPublisher) contents() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	var result []string
	for _, m := range p.messages {
		result = append(result, m.(forwardedEnvelope).Payload.Content)
	}
	return result
}

func TestForwarder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &recordingPublisher{}
	f := NewForwarder(ctx, ForwarderConfig{NodeID: "eim/node_raspberrypi"}, p)
	assert.Equal(t, "core/nodes/log", f.Topic)
	assert.Equal(t, DefaultBacklog, f.Backlog)

	buf := []byte("hello\n")
	n, err := f.Write(buf)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	copy(buf, "xxxxx")
	require.Eventually(t, func() bool { return p.count() == 1 }, time.Second, time.Millisecond)
	p.mutex.Lock()
	defer p.mutex.Unlock()
	assert.Equal(t, "core/nodes/log", p.topics[0])
	assert.Equal(t, forwardedEnvelope{Payload: forwardedLine{Content: "hello", NodeID: "eim/node_raspberrypi"}}, p.messages[0])
}

func TestForwarderMinLevel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &recordingPublisher{}
	var console bytes.Buffer
	log, out, err := New(Config{Level: "debug", Dir: t.TempDir(), MaxSize: 1, Console: &console})
	require.NoError(t, err)
	defer out.Close()
	out.Add(NewForwarder(ctx, ForwarderConfig{NodeID: "eim/node_raspberrypi", MinLevel: zerolog.InfoLevel}, p))

	log.Debug().Msg("stays local")
	log.Warn().Msg("goes to the bus")
	require.Eventually(t, func() bool { return p.count() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	contents := p.contents()
	require.Len(t, contents, 1)
	assert.Contains(t, contents[0], "goes to the bus")
	assert.Contains(t, console.String(), "stays local")
}

func TestForwarderDropsOldest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &recordingPublisher{release: make(chan struct{})}
	f := NewForwarder(ctx, ForwarderConfig{Backlog: 2}, p)

	// The first line is taken by the publisher, which is blocked.
	f.Write([]byte("1"))
	require.Eventually(t, func() bool { return len(f.lines) == 0 }, time.Second, time.Millisecond)
	for _, line := range []string{"2", "3", "4"} {
		f.Write([]byte(line))
	}
	assert.Len(t, f.lines, 2)
	close(p.release)
	require.Eventually(t, func() bool { return p.count() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"1", "3", "4"}, p.contents())
}
