/*
 * Copyright 2026 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

// Pool is a goroutine pool abstraction. If a Config does not supply one,
// callers fall back to a plain `go func()`. The default concrete
// implementation is pool.WorkerPool.
type Pool interface {
	// Submit schedules fn for execution. It returns an error if the pool
	// cannot accept more work right now.
	Submit(fn func()) error
	// Release shuts the pool down.
	Release()
}
