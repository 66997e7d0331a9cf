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

const (
	// CommandTopic receives code to evaluate.
	CommandTopic = "scratch/extensions/command"
	// DataTopic receives the results of evaluations.
	DataTopic = "adapter/nodes/data"
	// NotificationTopic receives notifications for the user.
	NotificationTopic = "core/notification"
	// OperateTopic receives node operations such as stop.
	OperateTopic = "core/nodes/operate"
	// LogTopic receives forwarded log lines.
	LogTopic = "core/nodes/log"

	// OperateStop is the content of an operate message that stops a node.
	OperateStop = "stop"
)
