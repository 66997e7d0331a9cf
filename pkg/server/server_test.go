// Copyright 2023 Ewout Prangsma
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

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelab-eim/RaspberryPiNode/pkg/node"
)

type staticService struct {
	status node.Status
}

func (s staticService) Status() node.Status { return s.status }

func newTestServer(t *testing.T) *Server {
	s, err := New(Config{Host: "127.0.0.1"}, zerolog.Nop(), staticService{node.Status{
		NodeID: "eim/node_raspberrypi",
		State:  node.StateRunning,
		Uptime: time.Minute * 3,
	}})
	require.NoError(t, err)
	return s
}

func TestStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "eim/node_raspberrypi", body["node_id"])
	assert.Equal(t, "RUNNING", body["state"])
	assert.Equal(t, "3 minutes ago", body["started"])
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRequiresService(t *testing.T) {
	_, err := New(Config{}, zerolog.Nop(), nil)
	assert.Error(t, err)
}
