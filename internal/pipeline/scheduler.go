// Copyright (c) 2026 WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package pipeline

import "time"

// Scheduler runs a render task now or later. Schedule is called after the
// pipeline lock is released, so running the task inline is allowed.
type Scheduler interface {
	Schedule(task func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(task func())

func (f SchedulerFunc) Schedule(task func()) { f(task) }

// DeferredScheduler runs each task on its own goroutine after Delay.
// Mutations arriving within Delay are coalesced into the same render.
type DeferredScheduler struct {
	Delay time.Duration
}

func (s DeferredScheduler) Schedule(task func()) {
	time.AfterFunc(s.Delay, task)
}
