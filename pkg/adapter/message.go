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

package adapter

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	keyContent   = "content"
	keyNodeID    = "node_id"
	keyMessageID = "message_id"
)

// Payload of a message. Fields are kept as raw JSON so that fields
// this node does not know about are passed through unchanged.
type Payload map[string]json.RawMessage

// Envelope wraps a payload as it is sent on the wire.
type Envelope struct {
	Payload Payload `json:"payload"`
}

// NotificationType is the severity of a notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "INFO"
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationWarning NotificationType = "WARNING"
	NotificationError   NotificationType = "ERROR"
)

// ParseEnvelope decodes a message envelope.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "invalid message")
	}
	if env.Payload == nil {
		return Envelope{}, errors.New("message has no payload")
	}
	return env, nil
}

// Content returns the content field.
// A missing content yields an empty string, content that is not a
// string yields its JSON text.
func (p Payload) Content() string {
	return p.GetString(keyContent)
}

// NodeID returns the node_id field.
func (p Payload) NodeID() string {
	return p.GetString(keyNodeID)
}

// MessageID returns the raw message_id field, if any.
func (p Payload) MessageID() (json.RawMessage, bool) {
	raw, found := p[keyMessageID]
	return raw, found
}

// GetString returns the field with given key as a string.
func (p Payload) GetString(key string) string {
	raw, found := p[key]
	if !found {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Set the field with given key to the JSON encoding of value.
func (p Payload) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode field '%s'", key)
	}
	p[key] = raw
	return nil
}

// SetContent sets the content field.
func (p Payload) SetContent(content string) {
	p.Set(keyContent, content)
}

// setDefault sets the field only when it is absent.
func (p Payload) setDefault(key string, value interface{}) error {
	if _, found := p[key]; found {
		return nil
	}
	return p.Set(key, value)
}

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	result := make(Payload, len(p))
	for k, v := range p {
		result[k] = v
	}
	return result
}
